// Package csource contains cold [cocoon.Source] implementations.
//
// Synchronous sources ([Of], [Empty], [Fail]) deliver every event
// from inside Subscribe.
// Asynchronous sources ([Func], [Channel]) produce values on their own goroutine
// and hand each event to a [csched.Scheduler],
// so that observers only ever run on the scheduler's goroutine.
package csource

import (
	"context"

	"github.com/gordian-engine/cocoon"
	"github.com/gordian-engine/cocoon/csched"
)

// Of returns a source that, on every subscription,
// synchronously emits vals in order and then completes.
func Of[T any](vals ...T) cocoon.Source[T] {
	return cocoon.SourceFunc[T](func(o cocoon.Observer[T]) cocoon.Handle {
		for _, v := range vals {
			o.Next(v)
		}
		o.Complete()
		return finished{}
	})
}

// Empty returns a source that completes immediately on every subscription.
func Empty[T any]() cocoon.Source[T] {
	return Of[T]()
}

// Fail returns a source that delivers err immediately on every subscription.
func Fail[T any](err error) cocoon.Source[T] {
	return cocoon.SourceFunc[T](func(o cocoon.Observer[T]) cocoon.Handle {
		o.Error(err)
		return finished{}
	})
}

// finished is the handle of a subscription that ended inside Subscribe.
type finished struct{}

func (finished) Detach()          {}
func (finished) Terminated() bool { return true }

// EmitFunc is the body of an asynchronous source activation.
//
// It runs on its own goroutine and calls emit for each value.
// Returning nil completes the subscription;
// returning a non-nil error fails it.
// If the subscription was detached, the return value is ignored.
type EmitFunc[T any] func(ctx context.Context, emit func(T)) error

// Func returns a source that runs fn on a new goroutine for each subscription.
//
// Events are scheduled on sched in the order fn produces them,
// so the observer runs on sched's goroutine.
// Detaching cancels the context passed to fn,
// and any events still queued on sched are dropped.
// ctx bounds the lifetime of every activation.
func Func[T any](ctx context.Context, sched csched.Scheduler, fn EmitFunc[T]) cocoon.Source[T] {
	return cocoon.SourceFunc[T](func(o cocoon.Observer[T]) cocoon.Handle {
		actCtx, cancel := context.WithCancel(ctx)
		a := &activation[T]{
			obs:    o,
			sched:  sched,
			cancel: cancel,
		}

		go a.run(actCtx, fn)

		return a
	})
}

// activation is a single running subscription of a [Func] source.
//
// The terminated field is only accessed on the scheduler goroutine.
type activation[T any] struct {
	obs   cocoon.Observer[T]
	sched csched.Scheduler

	cancel context.CancelFunc

	terminated bool
}

func (a *activation[T]) run(ctx context.Context, fn EmitFunc[T]) {
	defer a.cancel()

	err := fn(ctx, func(v T) {
		if ctx.Err() != nil {
			return
		}

		a.sched.Schedule(func() {
			if a.terminated {
				return
			}
			a.obs.Next(v)
		})
	})

	a.sched.Schedule(func() {
		if a.terminated {
			return
		}
		a.terminated = true

		if err != nil {
			a.obs.Error(err)
		} else {
			a.obs.Complete()
		}
	})
}

func (a *activation[T]) Detach() {
	if a.terminated {
		return
	}
	a.terminated = true
	a.cancel()
}

func (a *activation[T]) Terminated() bool {
	return a.terminated
}

// Channel returns a source that calls open for each subscription
// and forwards the returned channel's values until it is closed,
// at which point the subscription completes.
//
// The producer behind the channel should stop when ctx is canceled;
// the forwarding goroutine stops reading at that point.
func Channel[T any](ctx context.Context, sched csched.Scheduler, open func(ctx context.Context) <-chan T) cocoon.Source[T] {
	return Func(ctx, sched, func(ctx context.Context, emit func(T)) error {
		ch := open(ctx)
		for {
			select {
			case <-ctx.Done():
				return context.Cause(ctx)
			case v, ok := <-ch:
				if !ok {
					return nil
				}
				emit(v)
			}
		}
	})
}
