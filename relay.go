package cocoon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gordian-engine/cocoon/csched"
	"github.com/gordian-engine/cocoon/internal/cregistry"
	"github.com/gordian-engine/cocoon/internal/ctrace"
)

// LatePolicy decides what a subscriber sees when it subscribes
// after the source has already delivered an error or completion.
type LatePolicy uint8

const (
	// RestartSource activates the source again for the new subscriber,
	// which then observes a fresh run from the start.
	RestartSource LatePolicy = iota

	// ReplayTerminal immediately delivers the recorded error or completion
	// to the new subscriber, and never activates the source again.
	ReplayTerminal
)

func (p LatePolicy) String() string {
	switch p {
	case RestartSource:
		return "RestartSource"
	case ReplayTerminal:
		return "ReplayTerminal"
	default:
		return fmt.Sprintf("LatePolicy(%d)", uint8(p))
	}
}

// RelayConfig is the configuration passed to [Wrap].
type RelayConfig struct {
	// Connect to the source at the scheduler's next idle point,
	// rather than waiting for the first subscriber.
	// Subscriptions made synchronously after Wrap returns
	// are registered before that connection happens.
	ConnectImmediately bool

	// Keep the upstream connection once established,
	// even after every subscriber has detached.
	Persistent bool

	// How to treat subscribers arriving after the source terminated.
	// The zero value is RestartSource.
	LatePolicy LatePolicy

	// Where deferred work runs.
	// Required.
	Scheduler csched.Scheduler

	// Optional; if nil, tracing is disabled.
	TracerProvider ctrace.TracerProvider
}

func (c RelayConfig) validate() error {
	var errs error

	if c.Scheduler == nil {
		errs = errors.Join(errs, errors.New("RelayConfig.Scheduler may not be nil"))
	}

	switch c.LatePolicy {
	case RestartSource, ReplayTerminal:
		// Okay.
	default:
		errs = errors.Join(errs, fmt.Errorf("RelayConfig.LatePolicy has unknown value %d", c.LatePolicy))
	}

	return errs
}

// Relay shares a single subscription to a source among any number of subscribers.
//
// The source is subscribed at most once at any time.
// When the last subscriber detaches, the upstream subscription
// is torn down unless the relay is persistent;
// the next subscriber then starts the source again.
//
// Relay is itself a [Source], so relays can be stacked.
//
// Relay is not safe for concurrent use.
// All calls, and all events from the source,
// must happen on the goroutine driving the configured scheduler.
type Relay[T any] struct {
	log *slog.Logger

	id uuid.UUID

	tracer ctrace.Tracer

	src   Source[T]
	sched csched.Scheduler

	persistent bool
	latePolicy LatePolicy

	subs *cregistry.Registry[*subscription[T]]

	// Nil when disconnected.
	up *upstream

	// The connection whose source Subscribe call is on the stack, if any.
	// It may already have been released from up.
	activating *upstream

	// A connect attempted while a released connection was still activating
	// is retried at the next idle point.
	// forceRetry records whether any of those attempts came from
	// Connect or ConnectImmediately rather than a subscriber.
	retryScheduled bool
	forceRetry     bool

	// Number of upstream connections made so far.
	connections int

	// The most recent error or completion from the source.
	terminal *terminalEvent

	sweepScheduled bool
}

// upstream is the relay's own subscription to its source.
type upstream struct {
	// Nil while the source's Subscribe call is still in progress.
	h Handle

	// Set once the source delivered an error or completion.
	done bool

	span  ctrace.Span
	ended bool
}

func (u *upstream) end(err error) {
	if u.ended {
		return
	}
	u.ended = true

	if err != nil {
		ctrace.SpanError(u.span, err)
	}
	u.span.End()
}

type terminalEvent struct {
	// Nil for completion.
	err error
}

// Wrap returns a Relay sharing src among its subscribers.
//
// Wrap panics if cfg is invalid or if src or log is nil.
// If cfg.ConnectImmediately is set, Wrap schedules the first connection
// on cfg.Scheduler rather than connecting synchronously.
func Wrap[T any](log *slog.Logger, src Source[T], cfg RelayConfig) *Relay[T] {
	var panicErrs error
	if log == nil {
		panicErrs = errors.Join(panicErrs, errors.New("log may not be nil"))
	}
	if src == nil {
		panicErrs = errors.Join(panicErrs, errors.New("source may not be nil"))
	}
	panicErrs = errors.Join(panicErrs, cfg.validate())
	if panicErrs != nil {
		panic(panicErrs)
	}

	tp := cfg.TracerProvider
	if tp == nil {
		tp = ctrace.NopTracerProvider()
	}

	id := uuid.New()
	r := &Relay[T]{
		log: log.With("relay", id.String()),

		id: id,

		tracer: tp.Tracer(ctrace.InstrumentationName),

		src:   src,
		sched: cfg.Scheduler,

		persistent: cfg.Persistent,
		latePolicy: cfg.LatePolicy,

		subs: cregistry.New[*subscription[T]](),
	}

	if cfg.ConnectImmediately {
		r.sched.Schedule(func() {
			// If the source already ran to completion for a chained subscriber,
			// connecting again would restart it with nobody asking.
			if r.terminal != nil {
				return
			}
			r.connectUpstream(true)
		})
	}

	return r
}

// ID returns the unique identifier of r,
// which is also attached to its log lines and trace spans.
func (r *Relay[T]) ID() uuid.UUID {
	return r.id
}

// Active reports whether r currently holds a live upstream subscription.
func (r *Relay[T]) Active() bool {
	u := r.up
	return u != nil && !u.done && (u.h == nil || !u.h.Terminated())
}

// Len returns the number of subscribers that have not detached.
func (r *Relay[T]) Len() int {
	return r.subs.Live()
}

// Connect subscribes to the source if r is not already connected,
// without adding a subscriber.
// It returns r so that subscriptions can be chained.
//
// With [ReplayTerminal], Connect does nothing once the source has terminated.
func (r *Relay[T]) Connect() *Relay[T] {
	r.connectUpstream(true)
	return r
}

// Subscribe registers o and returns a handle to detach it.
//
// If r is not connected, Subscribe connects before returning,
// and o receives any events the source emits synchronously while connecting.
func (r *Relay[T]) Subscribe(o Observer[T]) Handle {
	s := &subscription[T]{r: r, obs: o}

	if r.latePolicy == ReplayTerminal && r.terminal != nil {
		s.closed = true

		r.log.Debug("Replaying terminal event to late subscriber", "err", r.terminal.err)
		if r.terminal.err != nil {
			o.Error(r.terminal.err)
		} else {
			o.Complete()
		}

		return s
	}

	s.id = r.subs.Add(s)

	r.log.Debug(
		"Added subscriber",
		"subscriber_id", s.id,
		"active_subscribers", r.subs.Live(),
	)
	if u := r.up; u != nil {
		u.span.AddEvent("subscribe", ctrace.WithAttributes(
			ctrace.SubscriberIDAttr(s.id),
		))
	}

	if !r.Active() {
		r.connectUpstream(false)
	}

	return s
}

// connectUpstream subscribes to the source unless already connected.
// forced is false when the connection is only wanted by subscribers,
// in which case a deferred retry is dropped if they have all left by then.
func (r *Relay[T]) connectUpstream(forced bool) {
	if r.Active() {
		return
	}

	if r.latePolicy == ReplayTerminal && r.terminal != nil {
		return
	}

	if a := r.activating; a != nil && a != r.up && !a.done {
		// Every subscriber left while the source was still inside Subscribe,
		// and a callback on that stack wants to connect again.
		// The old activation is only detached once Subscribe returns,
		// so a new one now would overlap with it.
		r.deferConnect(forced)
		return
	}

	if r.up != nil {
		// Finished but not yet released,
		// which happens in persistent mode or when the source
		// terminated its handle without notifying us.
		r.releaseUpstream()
	}

	r.connections++

	_, span := r.tracer.Start(
		context.Background(),
		"upstream connection",
		ctrace.WithAttributes(
			ctrace.RelayIDAttr(r.id.String()),
			ctrace.ActiveSubscribersAttr(r.subs.Live()),
		),
	)
	u := &upstream{span: span}
	r.up = u

	r.log.Debug(
		"Connecting to source",
		"connection", r.connections,
		"active_subscribers", r.subs.Live(),
	)

	prevActivating := r.activating
	r.activating = u

	// Events are only fanned out while u is the current connection.
	// A source that keeps emitting after being detached is ignored.
	h := r.src.Subscribe(Observer[T]{
		OnNext: func(v T) {
			if r.up != u || u.done {
				return
			}
			r.fanOutNext(v)
		},
		OnError: func(err error) {
			if r.up != u || u.done {
				return
			}
			r.fanOutTerminal(u, err)
		},
		OnComplete: func() {
			if r.up != u || u.done {
				return
			}
			r.fanOutTerminal(u, nil)
		},
	})
	u.h = h
	r.activating = prevActivating

	if r.up != u && !h.Terminated() {
		// Every subscriber left while the source was still
		// emitting synchronously from inside Subscribe,
		// so the teardown could not reach this handle.
		h.Detach()
	}
}

func (r *Relay[T]) deferConnect(forced bool) {
	r.forceRetry = r.forceRetry || forced
	if r.retryScheduled {
		return
	}
	r.retryScheduled = true

	r.log.Debug("Deferring connection until previous activation returns")

	r.sched.Schedule(func() {
		r.retryScheduled = false
		forced := r.forceRetry
		r.forceRetry = false

		if !forced && r.subs.Empty() {
			return
		}
		r.connectUpstream(forced)
	})
}

// releaseUpstream detaches from the source if needed
// and clears the current connection.
func (r *Relay[T]) releaseUpstream() {
	u := r.up
	if u == nil {
		return
	}
	r.up = nil

	if u.h != nil && !u.done && !u.h.Terminated() {
		u.h.Detach()
	}

	u.end(nil)
}

func (r *Relay[T]) fanOutNext(v T) {
	r.subs.Each(func(_ uint64, s *subscription[T]) bool {
		s.obs.Next(v)
		return true
	})
}

// fanOutTerminal delivers an error, or completion if err is nil,
// to every open subscriber.
// Each subscriber is detached after delivery,
// so the usual teardown applies once the last one is reached.
func (r *Relay[T]) fanOutTerminal(u *upstream, err error) {
	u.done = true
	if err != nil {
		u.span.AddEvent("source failed", ctrace.WithAttributes(
			ctrace.ErrorAttr(err),
		))
	}
	u.end(err)

	r.terminal = &terminalEvent{err: err}

	if err != nil {
		r.log.Info(
			"Source failed",
			"err", err,
			"active_subscribers", r.subs.Live(),
		)
	} else {
		r.log.Debug(
			"Source completed",
			"active_subscribers", r.subs.Live(),
		)
	}

	r.subs.Each(func(_ uint64, s *subscription[T]) bool {
		if err != nil {
			s.obs.Error(err)
		} else {
			s.obs.Complete()
		}

		r.detach(s)
		return true
	})
}

func (r *Relay[T]) detach(s *subscription[T]) {
	if s.closed {
		// Rerunning the empty check here could tear down
		// a connection made by Connect after the first detach.
		return
	}
	s.closed = true

	// The entry may already be gone if the registry was reset.
	_ = r.subs.Close(s.id)

	if u := r.up; u != nil {
		u.span.AddEvent("detach", ctrace.WithAttributes(
			ctrace.SubscriberIDAttr(s.id),
		))
	}

	if r.subs.Empty() && !r.persistent {
		if r.up != nil {
			r.log.Debug("Last subscriber detached; disconnecting from source", "subscriber_id", s.id)
		}
		r.releaseUpstream()
		r.subs.Reset()
	}

	r.scheduleSweep()
}

// scheduleSweep arranges for closed entries to be compacted
// once the current call stack has unwound.
// A fan-out pass may still be walking the registry right now.
func (r *Relay[T]) scheduleSweep() {
	if r.sweepScheduled {
		return
	}
	r.sweepScheduled = true

	r.sched.Schedule(r.sweep)
}

func (r *Relay[T]) sweep() {
	r.sweepScheduled = false

	if n := r.subs.Sweep(); n > 0 {
		r.log.Debug("Swept detached subscribers", "n", n)
	}
}

// subscription is the Handle returned from [*Relay.Subscribe].
type subscription[T any] struct {
	r *Relay[T]

	// Zero if the subscription was never registered.
	id uint64

	obs Observer[T]

	closed bool
}

func (s *subscription[T]) Detach() {
	s.r.detach(s)
}

func (s *subscription[T]) Terminated() bool {
	return s.closed
}
