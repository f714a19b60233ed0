// Package cregistry contains the subscriber arena used by a relay.
//
// Entries live in an index-stable slice, in insertion order.
// Closing an entry only clears its bit in the live set;
// the slot itself stays in place until [*Registry.Sweep]
// compacts the arena.
// That allows closing entries while an [*Registry.Each] pass
// higher on the call stack is still walking the slice by index.
package cregistry

import (
	"slices"

	"github.com/bits-and-blooms/bitset"
)

// Registry is an ordered arena of entries with soft-delete flags.
//
// Registry is not safe for concurrent use.
type Registry[E any] struct {
	slots []slot[E]

	// Bit i is set iff slots[i] is still open.
	live *bitset.BitSet

	nextID uint64

	// Incremented on every Reset,
	// so an in-progress Each pass can notice the arena was replaced.
	gen uint64
}

type slot[E any] struct {
	id uint64
	e  E
}

// New returns an empty Registry.
func New[E any]() *Registry[E] {
	return &Registry[E]{
		live: new(bitset.BitSet),
	}
}

// Add appends e and returns its newly assigned id.
// IDs start at 1 and are never reused for the lifetime of r,
// including across calls to [*Registry.Reset].
func (r *Registry[E]) Add(e E) uint64 {
	r.nextID++
	id := r.nextID

	r.live.Set(uint(len(r.slots)))
	r.slots = append(r.slots, slot[E]{id: id, e: e})

	return id
}

// Close marks the entry with the given id as closed.
// It reports whether the entry was found and open;
// closing an unknown or already-closed id is a no-op.
func (r *Registry[E]) Close(id uint64) bool {
	idx, ok := r.index(id)
	if !ok || !r.live.Test(uint(idx)) {
		return false
	}

	r.live.Clear(uint(idx))
	return true
}

func (r *Registry[E]) index(id uint64) (int, bool) {
	// IDs are assigned in increasing order and sweeping preserves order,
	// so the slots are always sorted by id.
	return slices.BinarySearchFunc(r.slots, id, func(s slot[E], id uint64) int {
		switch {
		case s.id < id:
			return -1
		case s.id > id:
			return 1
		default:
			return 0
		}
	})
}

// Live returns the number of open entries.
func (r *Registry[E]) Live() int {
	return int(r.live.Count())
}

// Empty reports whether every entry is closed.
// An arena holding only tombstones is empty.
func (r *Registry[E]) Empty() bool {
	return r.live.None()
}

// Len returns the number of slots, including tombstones.
func (r *Registry[E]) Len() int {
	return len(r.slots)
}

// Each calls fn for every open entry in insertion order,
// stopping early if fn returns false.
//
// Only entries present when the pass started are visited.
// Liveness is re-checked before each call,
// so entries closed by an earlier fn call in the same pass are skipped.
// If r is reset during the pass, the pass ends.
func (r *Registry[E]) Each(fn func(id uint64, e E) bool) {
	n := uint(len(r.slots))
	gen := r.gen

	for i, ok := r.live.NextSet(0); ok && i < n; i, ok = r.live.NextSet(i + 1) {
		s := r.slots[i]
		if !fn(s.id, s.e) {
			return
		}

		if r.gen != gen {
			return
		}
	}
}

// Reset drops every entry, open or closed.
// The id counter is retained.
func (r *Registry[E]) Reset() {
	r.slots = nil
	r.live.ClearAll()
	r.gen++
}

// Sweep removes closed entries from the arena, preserving order,
// and returns the number of entries removed.
//
// Sweep must not be called while an Each pass is in progress.
func (r *Registry[E]) Sweep() int {
	if uint(len(r.slots)) == r.live.Count() {
		return 0
	}

	kept := r.slots[:0]
	live := bitset.MustNew(r.live.Count())
	for i, ok := r.live.NextSet(0); ok && i < uint(len(r.slots)); i, ok = r.live.NextSet(i + 1) {
		live.Set(uint(len(kept)))
		kept = append(kept, r.slots[i])
	}

	removed := len(r.slots) - len(kept)

	// Clear the tail so removed entries can be collected.
	clear(r.slots[len(kept):])
	r.slots = kept
	r.live = live

	return removed
}
