package cregistry_test

import (
	"testing"

	"github.com/gordian-engine/cocoon/internal/cregistry"
	"github.com/stretchr/testify/require"
)

func collect(r *cregistry.Registry[string]) []string {
	var out []string
	r.Each(func(_ uint64, e string) bool {
		out = append(out, e)
		return true
	})
	return out
}

func TestRegistry_Add_idsIncrease(t *testing.T) {
	t.Parallel()

	r := cregistry.New[string]()

	a := r.Add("a")
	b := r.Add("b")
	c := r.Add("c")

	require.Equal(t, uint64(1), a)
	require.Less(t, a, b)
	require.Less(t, b, c)

	require.Equal(t, 3, r.Live())
	require.Equal(t, []string{"a", "b", "c"}, collect(r))
}

func TestRegistry_Close(t *testing.T) {
	t.Parallel()

	r := cregistry.New[string]()

	a := r.Add("a")
	b := r.Add("b")

	require.True(t, r.Close(a))
	require.Equal(t, []string{"b"}, collect(r))

	// Second close is a no-op.
	require.False(t, r.Close(a))

	// Unknown id.
	require.False(t, r.Close(100))

	require.Equal(t, 1, r.Live())
	require.Equal(t, 2, r.Len())
	require.False(t, r.Empty())

	require.True(t, r.Close(b))
	require.True(t, r.Empty())

	// Tombstones still occupy slots.
	require.Equal(t, 2, r.Len())
}

func TestRegistry_Each_skipsEntriesClosedDuringPass(t *testing.T) {
	t.Parallel()

	r := cregistry.New[string]()

	a := r.Add("a")
	b := r.Add("b")
	_ = r.Add("c")

	var seen []string
	r.Each(func(id uint64, e string) bool {
		seen = append(seen, e)
		if id == a {
			// Closing self and a later entry mid-pass.
			require.True(t, r.Close(a))
			require.True(t, r.Close(b))
		}
		return true
	})

	require.Equal(t, []string{"a", "c"}, seen)
}

func TestRegistry_Each_ignoresEntriesAddedDuringPass(t *testing.T) {
	t.Parallel()

	r := cregistry.New[string]()
	r.Add("a")
	r.Add("b")

	var seen []string
	r.Each(func(_ uint64, e string) bool {
		seen = append(seen, e)
		r.Add(e + "'")
		return true
	})

	require.Equal(t, []string{"a", "b"}, seen)
	require.Equal(t, []string{"a", "b", "a'", "b'"}, collect(r))
}

func TestRegistry_Each_stopsOnReset(t *testing.T) {
	t.Parallel()

	r := cregistry.New[string]()
	r.Add("a")
	r.Add("b")
	r.Add("c")

	var seen []string
	r.Each(func(_ uint64, e string) bool {
		seen = append(seen, e)
		if e == "a" {
			r.Reset()
			r.Add("x")
			r.Add("y")
		}
		return true
	})

	require.Equal(t, []string{"a"}, seen)
	require.Equal(t, []string{"x", "y"}, collect(r))
}

func TestRegistry_Each_stopEarly(t *testing.T) {
	t.Parallel()

	r := cregistry.New[string]()
	r.Add("a")
	r.Add("b")

	var seen []string
	r.Each(func(_ uint64, e string) bool {
		seen = append(seen, e)
		return false
	})

	require.Equal(t, []string{"a"}, seen)
}

func TestRegistry_Reset_keepsIDCounter(t *testing.T) {
	t.Parallel()

	r := cregistry.New[string]()
	a := r.Add("a")
	r.Reset()

	require.True(t, r.Empty())
	require.Zero(t, r.Len())
	require.False(t, r.Close(a))

	b := r.Add("b")
	require.Greater(t, b, a)
}

func TestRegistry_Sweep(t *testing.T) {
	t.Parallel()

	r := cregistry.New[string]()

	a := r.Add("a")
	b := r.Add("b")
	c := r.Add("c")
	d := r.Add("d")

	require.Zero(t, r.Sweep())

	require.True(t, r.Close(b))
	require.True(t, r.Close(d))

	require.Equal(t, 2, r.Sweep())
	require.Equal(t, 2, r.Len())
	require.Equal(t, []string{"a", "c"}, collect(r))

	// Lookup by id still works after compaction.
	require.False(t, r.Close(b))
	require.True(t, r.Close(c))
	require.Equal(t, []string{"a"}, collect(r))
	require.True(t, r.Close(a))
	require.Empty(t, collect(r))

	e := r.Add("e")
	require.Greater(t, e, d)
	require.Equal(t, []string{"e"}, collect(r))
}
