// Package csched contains the cooperative schedulers
// that cocoon relays use for deferred work.
//
// A relay never runs its own goroutines.
// Work that must wait until the current call stack has unwound,
// such as a proactive upstream connection
// or compacting closed subscriber entries,
// is handed to a [Scheduler] instead.
package csched

import "errors"

// Scheduler runs tasks at a later idle point,
// after the caller's current call stack has unwound.
//
// Implementations must run tasks one at a time, in the order scheduled,
// and must never run a task synchronously inside Schedule.
type Scheduler interface {
	Schedule(fn func())
}

// ErrLoopStopped is returned from [*Loop.Do]
// when the loop stopped before running the task.
var ErrLoopStopped = errors.New("csched: loop stopped")
