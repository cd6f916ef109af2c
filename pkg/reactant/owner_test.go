package reactant

import "testing"

func TestScopeDisposeDisposesOwnedEffects(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewSignal(0)
	runs := 0

	dispose := rt.Root(func(sc *Scope) {
		sc.Effect(func() {
			runs++
			s.Get()
		})
	})
	if runs != 1 {
		t.Fatalf("after creation: runs = %d, want 1", runs)
	}

	dispose()
	s.Set(1)
	if runs != 1 {
		t.Fatalf("effect ran after owning scope disposed: runs = %d, want 1", runs)
	}
}

func TestScopeDisposeIsDepthFirstThroughChildren(t *testing.T) {
	rt := NewRuntime()
	var order []string

	dispose := rt.Root(func(sc *Scope) {
		child := sc.NewChild()
		child.OnCleanup(func() { order = append(order, "child") })
		sc.OnCleanup(func() { order = append(order, "parent") })
	})
	dispose()

	if len(order) != 2 || order[0] != "child" || order[1] != "parent" {
		t.Fatalf("dispose order = %v, want [child parent]", order)
	}
}

func TestScopeOnCleanupRunsInLIFOOrder(t *testing.T) {
	rt := NewRuntime()
	var order []int
	dispose := rt.Root(func(sc *Scope) {
		sc.OnCleanup(func() { order = append(order, 1) })
		sc.OnCleanup(func() { order = append(order, 2) })
		sc.OnCleanup(func() { order = append(order, 3) })
	})
	dispose()
	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Fatalf("cleanup order = %v, want [3 2 1]", order)
	}
}

func TestScopeDisposeIsIdempotent(t *testing.T) {
	rt := NewRuntime()
	calls := 0
	dispose := rt.Root(func(sc *Scope) {
		sc.OnCleanup(func() { calls++ })
	})
	dispose()
	dispose()
	if calls != 1 {
		t.Fatalf("cleanup ran %d times, want 1", calls)
	}
}
