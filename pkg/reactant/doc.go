// Package reactant implements a fine-grained, incremental reactive runtime:
// Signals hold mutable state, Memos derive cached values from other nodes,
// and Effects run side effects whenever their sources change. Dependencies
// are discovered automatically: reading a Signal or Memo while a Memo or
// Effect is being evaluated records that read as a dependency edge.
//
// # Core types
//
// Signal[T] is a leaf source of truth:
//
//	count := reactant.NewSignal(0)
//	n := count.Get()  // reads, and subscribes the current evaluation
//	count.Set(5)      // equality-gated write; no-op if 5 == current value
//
// Memo[T] is a cached derived value, recomputed lazily on read:
//
//	doubled := reactant.NewMemo(func() int { return count.Get() * 2 })
//	n, err := doubled.Read()
//
// Effect runs eagerly whenever its sources change:
//
//	e := reactant.NewEffect(func() {
//	    fmt.Println("count is now", count.Get())
//	})
//	defer e.Dispose()
//
// # Batching
//
// Batch coalesces multiple Signal writes into one propagation pass, gating
// on the value at batch start rather than on every intermediate write:
//
//	reactant.Batch(func() {
//	    a.Set(1)
//	    b.Set(2)
//	})
//
// # Scopes
//
// Scope groups Effects under a single disposal boundary:
//
//	dispose := reactant.Root(func(s *reactant.Scope) {
//	    s.Effect(func() { fmt.Println(count.Get()) })
//	})
//	defer dispose()
//
// # Thread safety
//
// A Runtime (and the default one these package-level constructors use) is
// safe for concurrent use from multiple goroutines. The tracking context
// that records dependencies is per-goroutine: a Memo or Effect that spawns
// another goroutine must not expect reads on that goroutine to be tracked
// against it.
package reactant
