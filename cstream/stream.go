package cstream

import (
	"context"

	"github.com/gordian-engine/cocoon"
)

// Stream is a linked list of event-driven values.
// The list has a single writer and many readers.
// Readers can each consume the list at their own pace.
//
// A node is either a value node, where Val and Next are set,
// or a terminal node, where Next stays nil
// and Err is set if the source failed.
//
// If readers do not actively consume the list,
// the node they observe will never be garbage collected,
// which is a memory leak.
type Stream[T any] struct {
	Ready chan struct{}
	Next  *Stream[T]
	Val   T
	Err   error
}

// NewStream returns an initialized stream.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{
		Ready: make(chan struct{}),
	}
}

// Publish assigns s's value and initializes s.Next.
// Then s.Ready is closed, notifying any observers that
// s.Val can now be safely read.
//
// If s has already been published or terminated, Publish panics.
func (s *Stream[T]) Publish(t T) {
	s.Val = t
	s.Next = NewStream[T]()
	close(s.Ready)
}

// Complete marks s as the terminal node of a successful stream.
//
// If s has already been published or terminated, Complete panics.
func (s *Stream[T]) Complete() {
	close(s.Ready)
}

// Fail marks s as the terminal node of a failed stream.
//
// If s has already been published or terminated, Fail panics.
func (s *Stream[T]) Fail(err error) {
	s.Err = err
	close(s.Ready)
}

// Terminal reports whether s is a terminal node.
// It must only be called after s.Ready is closed.
func (s *Stream[T]) Terminal() bool {
	return s.Next == nil
}

// Observer returns a [cocoon.Observer] that writes events into the list
// starting at s, advancing its own cursor after each value.
//
// The returned observer must only be used for a single subscription.
func Observer[T any](s *Stream[T]) cocoon.Observer[T] {
	cur := s
	return cocoon.Observer[T]{
		OnNext: func(v T) {
			cur.Publish(v)
			cur = cur.Next
		},
		OnError: func(err error) {
			cur.Fail(err)
		},
		OnComplete: func() {
			cur.Complete()
		},
	}
}

// Subscribe subscribes a new stream to src
// and returns the head of the stream along with the subscription handle.
//
// Subscribe must be called on the goroutine that owns src,
// but the returned stream may be read from any goroutine.
// Detaching the handle leaves the stream without a terminal node.
func Subscribe[T any](src cocoon.Source[T]) (*Stream[T], cocoon.Handle) {
	s := NewStream[T]()
	h := src.Subscribe(Observer(s))
	return s, h
}

// Collect reads values from s until a terminal node,
// returning the values read and the terminal error.
//
// If ctx is canceled first, Collect returns the values read so far
// and the context's cause.
func Collect[T any](ctx context.Context, s *Stream[T]) ([]T, error) {
	var out []T
	for {
		select {
		case <-ctx.Done():
			return out, context.Cause(ctx)

		case <-s.Ready:
			if s.Terminal() {
				return out, s.Err
			}
			out = append(out, s.Val)
			s = s.Next
		}
	}
}
