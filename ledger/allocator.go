/*
allocator.go - Monotonic identifier allocation per collection

PURPOSE:
  Assigns unique, monotonically increasing integer identifiers for each
  entity collection. The counter is recomputed from the data itself
  whenever a collection is bulk-replaced, never merely incremented in
  isolation, so restored data with gaps or out-of-order ids can never
  produce a future collision.

CONTRACT:
  next id = max(existing ids) + 1, or 1 for an empty collection.

SEE ALSO:
  - store.go: Owns one allocator per collection and triggers the
    recompute on every ReplaceAll
*/
package ledger

// =============================================================================
// ALLOCATOR - One per collection, owned by the Store
// =============================================================================

type allocator struct {
	next int64
}

// allocate returns the next id and advances the counter.
func (a *allocator) allocate() int64 {
	if a.next < 1 {
		a.next = 1
	}
	id := a.next
	a.next++
	return id
}

// recompute resets the counter from existing ids: max + 1, or 1 when empty.
func (a *allocator) recompute(ids []int64) {
	a.next = 1
	for _, id := range ids {
		if id >= a.next {
			a.next = id + 1
		}
	}
}
