// Package cschedtest contains a deterministic scheduler for tests.
package cschedtest

// Manual is a csched.Scheduler that only runs tasks
// when the test explicitly asks it to.
// The zero value is ready to use.
//
// Manual is not safe for concurrent use;
// it models the single-threaded idle point of an event loop,
// where the test goroutine plays the role of the loop.
type Manual struct {
	queue []func()

	ran int
}

// Schedule queues fn until the next call to [*Manual.RunIdle] or [*Manual.Step].
func (m *Manual) Schedule(fn func()) {
	m.queue = append(m.queue, fn)
}

// Pending returns the number of queued tasks.
func (m *Manual) Pending() int {
	return len(m.queue)
}

// Ran returns the total number of tasks run so far.
func (m *Manual) Ran() int {
	return m.ran
}

// Step runs the oldest queued task,
// reporting whether there was one.
func (m *Manual) Step() bool {
	if len(m.queue) == 0 {
		return false
	}

	fn := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]

	m.ran++
	fn()
	return true
}

// RunIdle runs queued tasks in FIFO order until the queue is empty,
// including tasks scheduled by the tasks it runs.
// It returns the number of tasks run.
func (m *Manual) RunIdle() int {
	n := 0
	for m.Step() {
		n++
	}
	return n
}
