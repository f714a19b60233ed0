package csched

import (
	"context"
	"log/slog"
	"sync"
)

// Loop is a [Scheduler] backed by a single goroutine
// that runs scheduled tasks one at a time, in FIFO order.
//
// Relays and sources bound to a Loop must only be touched
// from within tasks running on that Loop;
// use [*Loop.Do] to call into them from other goroutines.
type Loop struct {
	log *slog.Logger

	mu    sync.Mutex
	queue []func()

	// Buffered with capacity 1;
	// a pending signal means the queue may be non-empty.
	wake chan struct{}

	done chan struct{}
}

// NewLoop returns a new Loop whose goroutine runs
// until ctx is canceled.
func NewLoop(ctx context.Context, log *slog.Logger) *Loop {
	l := &Loop{
		log: log,

		wake: make(chan struct{}, 1),

		done: make(chan struct{}),
	}

	go l.mainLoop(ctx)

	return l
}

// Schedule appends fn to the task queue.
// It never blocks, and it is safe to call from any goroutine,
// including from within a running task;
// in that case fn runs after the current task returns.
//
// Tasks scheduled after the loop has stopped are discarded.
func (l *Loop) Schedule(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}

	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
		// Already signaled.
	}
}

// Do schedules fn and blocks until it has run on the loop goroutine,
// or until ctx is canceled or the loop stops.
//
// Do must not be called from a task running on l;
// that would deadlock until ctx is canceled.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	l.Schedule(func() {
		defer close(ran)
		fn()
	})

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-l.done:
		// The loop may have run fn just before stopping.
		select {
		case <-ran:
			return nil
		default:
			return ErrLoopStopped
		}
	case <-ran:
		return nil
	}
}

// Wait blocks until the loop goroutine has stopped.
func (l *Loop) Wait() {
	<-l.done
}

// Done returns a channel that is closed once the loop goroutine has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) mainLoop(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			l.log.Debug("Stopping due to context cancellation", "cause", context.Cause(ctx))
			l.discard()
			return

		case <-l.wake:
			if !l.drain(ctx) {
				l.discard()
				return
			}
		}
	}
}

// drain runs queued tasks until the queue is empty.
// It reports false if ctx was canceled partway through.
func (l *Loop) drain(ctx context.Context) bool {
	for {
		if ctx.Err() != nil {
			return false
		}

		fn, ok := l.pop()
		if !ok {
			return true
		}

		fn()
	}
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return nil, false
	}

	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) discard() {
	l.mu.Lock()
	n := len(l.queue)
	l.queue = nil
	l.mu.Unlock()

	if n > 0 {
		l.log.Debug("Discarded pending tasks on stop", "n", n)
	}
}
