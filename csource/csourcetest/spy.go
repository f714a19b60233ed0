// Package csourcetest contains a controllable source for tests.
package csourcetest

import (
	"github.com/gordian-engine/cocoon"
)

// Spy is a cold source that records every activation
// and lets the test emit events to them by hand.
//
// Spy is not safe for concurrent use.
type Spy[T any] struct {
	// Optional hook run synchronously inside Subscribe,
	// after the activation is recorded.
	// Use it to emulate sources that emit during subscription.
	OnActivate func(a *Activation[T])

	activations []*Activation[T]

	active    int
	maxActive int
}

// Activation is a single subscription to a [Spy].
type Activation[T any] struct {
	spy *Spy[T]
	obs cocoon.Observer[T]

	detached   bool
	terminated bool
}

// Subscribe records a new activation.
func (s *Spy[T]) Subscribe(o cocoon.Observer[T]) cocoon.Handle {
	a := &Activation[T]{spy: s, obs: o}
	s.activations = append(s.activations, a)

	s.active++
	s.maxActive = max(s.maxActive, s.active)

	if s.OnActivate != nil {
		s.OnActivate(a)
	}

	return a
}

// Activations returns the number of times the spy has been subscribed.
func (s *Spy[T]) Activations() int {
	return len(s.activations)
}

// Active returns the number of activations
// that have neither been detached nor terminated.
func (s *Spy[T]) Active() int {
	return s.active
}

// MaxActive returns the highest number of simultaneously live activations
// the spy has seen.
func (s *Spy[T]) MaxActive() int {
	return s.maxActive
}

// Last returns the most recent activation, or nil if there are none.
func (s *Spy[T]) Last() *Activation[T] {
	if len(s.activations) == 0 {
		return nil
	}
	return s.activations[len(s.activations)-1]
}

// Emit sends v to the most recent activation.
// It panics if there has been no activation.
func (s *Spy[T]) Emit(v T) {
	s.mustLast().Next(v)
}

// Fail sends err to the most recent activation.
func (s *Spy[T]) Fail(err error) {
	s.mustLast().Fail(err)
}

// Complete completes the most recent activation.
func (s *Spy[T]) Complete() {
	s.mustLast().Complete()
}

func (s *Spy[T]) mustLast() *Activation[T] {
	a := s.Last()
	if a == nil {
		panic("BUG: Spy has no activations")
	}
	return a
}

// Next delivers v unless a has ended.
func (a *Activation[T]) Next(v T) {
	if a.detached || a.terminated {
		return
	}
	a.obs.Next(v)
}

// Fail delivers err and terminates a, unless a has already ended.
func (a *Activation[T]) Fail(err error) {
	if !a.end() {
		return
	}
	a.terminated = true
	a.obs.Error(err)
}

// Complete delivers completion and terminates a, unless a has already ended.
func (a *Activation[T]) Complete() {
	if !a.end() {
		return
	}
	a.terminated = true
	a.obs.Complete()
}

// end marks a as no longer live,
// reporting false if it had already ended.
func (a *Activation[T]) end() bool {
	if a.detached || a.terminated {
		return false
	}
	a.spy.active--
	return true
}

// Detach implements [cocoon.Handle].
func (a *Activation[T]) Detach() {
	if !a.end() {
		return
	}
	a.detached = true
}

// Terminated implements [cocoon.Handle].
func (a *Activation[T]) Terminated() bool {
	return a.detached || a.terminated
}

// Detached reports whether the subscriber detached a,
// as opposed to a ending through Fail or Complete.
func (a *Activation[T]) Detached() bool {
	return a.detached
}
