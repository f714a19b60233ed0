package cocoon

// Observer is the set of callbacks a subscriber provides.
// Every field is optional; a nil callback is skipped.
type Observer[T any] struct {
	OnNext     func(T)
	OnError    func(error)
	OnComplete func()
}

// Next calls o.OnNext if it is set.
func (o Observer[T]) Next(v T) {
	if o.OnNext != nil {
		o.OnNext(v)
	}
}

// Error calls o.OnError if it is set.
func (o Observer[T]) Error(err error) {
	if o.OnError != nil {
		o.OnError(err)
	}
}

// Complete calls o.OnComplete if it is set.
func (o Observer[T]) Complete() {
	if o.OnComplete != nil {
		o.OnComplete()
	}
}

// Source is a producer of values that can be subscribed to.
//
// A cold Source starts fresh work for every call to Subscribe.
// Sources may deliver events synchronously from within Subscribe,
// before the returned Handle is available to the caller.
//
// After delivering an error or completion,
// a Source must not deliver any further events for that subscription,
// and the subscription's Handle must report Terminated.
type Source[T any] interface {
	Subscribe(Observer[T]) Handle
}

// Handle controls a single subscription to a [Source].
type Handle interface {
	// Detach stops delivery to the subscription.
	// Calling Detach more than once is a no-op.
	Detach()

	// Terminated reports whether the subscription has ended,
	// either through Detach or through the source
	// delivering an error or completion.
	Terminated() bool
}

// SourceFunc adapts a function to the [Source] interface.
// The function is called once per subscription.
type SourceFunc[T any] func(Observer[T]) Handle

func (f SourceFunc[T]) Subscribe(o Observer[T]) Handle {
	return f(o)
}
