package reactant

// Batch runs fn within a batching window on the default Runtime. See
// Runtime.Batch for the full contract.
func Batch(fn func()) { Default().Batch(fn) }

// Untracked runs fn with dependency recording suspended on the default
// Runtime. See Runtime.Untracked.
func Untracked(fn func()) { Default().Untracked(fn) }

// UntrackedGet calls peek with dependency recording suspended on the
// default Runtime and returns its result. Passing a Signal's Peek method
// is equivalent to calling Peek directly but useful when the handle is
// behind a narrower interface; Memo.Peek returns an error as well and so
// does not fit peek's signature.
func UntrackedGet[T any](peek func() T) T {
	var v T
	Untracked(func() { v = peek() })
	return v
}

// Batch coalesces every Signal write performed by fn (on this Runtime, on
// this goroutine) into a single propagation pass. Each Signal's final
// value is compared against its value at batch start; if they are equal
// by that Signal's equality predicate, no pass runs for it at all.
// Batches nest: only the outermost Batch triggers the pass.
func (rt *Runtime) Batch(fn func()) {
	rt.tracking.beginBatch()
	var commits map[NodeID]func()
	func() {
		defer func() {
			commits = rt.tracking.endBatch()
		}()
		fn()
	}()

	if commits == nil {
		// A nested batch closed; the outermost Batch call will flush.
		return
	}
	for _, commit := range commits {
		commit()
	}
	// Always drain once at the outermost close, even with zero commits:
	// an Effect constructed inside the batch with no Signal write of its
	// own still needs its first run drained, and drain is a no-op on an
	// empty queue.
	rt.sched.drain()
}

// Untracked evaluates fn with Signal/Memo reads on this goroutine excluded
// from dependency tracking.
func (rt *Runtime) Untracked(fn func()) {
	rt.tracking.untracked(fn)
}
