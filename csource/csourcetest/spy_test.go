package csourcetest_test

import (
	"errors"
	"testing"

	"github.com/gordian-engine/cocoon"
	"github.com/gordian-engine/cocoon/csource/csourcetest"
	"github.com/stretchr/testify/require"
)

var _ cocoon.Source[int] = (*csourcetest.Spy[int])(nil)

func TestSpy_tracksActivations(t *testing.T) {
	t.Parallel()

	spy := new(csourcetest.Spy[int])
	require.Nil(t, spy.Last())

	var got []int
	h1 := spy.Subscribe(cocoon.Observer[int]{
		OnNext: func(v int) { got = append(got, v) },
	})
	h2 := spy.Subscribe(cocoon.Observer[int]{})

	require.Equal(t, 2, spy.Activations())
	require.Equal(t, 2, spy.Active())
	require.Equal(t, 2, spy.MaxActive())

	h2.Detach()
	h2.Detach()
	require.Equal(t, 1, spy.Active())
	require.True(t, h2.Terminated())

	// Emit goes to the most recent activation, which is detached.
	spy.Emit(1)
	require.Empty(t, got)

	spy.Subscribe(cocoon.Observer[int]{})
	require.Equal(t, 2, spy.Active())
	require.Equal(t, 2, spy.MaxActive())

	h1.Detach()
	require.Equal(t, 1, spy.Active())
}

func TestActivation_terminalEvents(t *testing.T) {
	t.Parallel()

	spy := new(csourcetest.Spy[int])

	var errs []error
	completions := 0
	h := spy.Subscribe(cocoon.Observer[int]{
		OnError:    func(err error) { errs = append(errs, err) },
		OnComplete: func() { completions++ },
	})

	errBoom := errors.New("boom")
	spy.Fail(errBoom)
	spy.Fail(errBoom)
	spy.Complete()

	require.Equal(t, []error{errBoom}, errs)
	require.Zero(t, completions)
	require.True(t, h.Terminated())
	require.False(t, spy.Last().Detached())
	require.Zero(t, spy.Active())
}
