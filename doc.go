// Package cocoon turns cold event sources into shared, hot relays.
//
// A cold [Source] starts fresh work for every subscriber:
// a new network stream, a new file read, a new timer.
// Wrapping it with [Wrap] produces a [*Relay],
// which keeps at most one subscription to the source at any time
// and fans every event out to all of its own subscribers,
// in the order they subscribed.
//
// The relay reference-counts its subscribers.
// The first subscriber connects the relay to the source,
// and when the last subscriber detaches the upstream subscription is torn down,
// unless [RelayConfig.Persistent] is set.
// Subscribers joining later only see events emitted after they joined;
// nothing is buffered or replayed.
//
// # Scheduling
//
// Relays never start goroutines of their own.
// Two pieces of work are deferred to the configured [csched.Scheduler]:
// the proactive connection requested by [RelayConfig.ConnectImmediately],
// so that subscriptions made right after [Wrap] are registered first;
// and compaction of detached subscribers,
// which may be detached from inside a callback
// while the relay is still iterating its subscribers.
//
// A relay must only be used from the goroutine driving its scheduler.
// With a [*csched.Loop], use [*csched.Loop.Do]
// to subscribe or detach from other goroutines.
//
// # Termination
//
// When the source delivers an error or completion,
// every open subscriber receives it and is then detached.
// What a later subscriber sees is controlled by [RelayConfig.LatePolicy]:
// by default the source is started again,
// but [ReplayTerminal] instead hands the recorded
// terminal event to the newcomer.
package cocoon
