package reactant

import "testing"

// These tests mirror the six concrete scenarios used to validate this
// runtime's behavior: equality short-circuiting through a chain of memos,
// glitch-free diamond dependencies, batched writes, disposal, and cycle
// detection.

func TestScenarioBasicMemoEffect(t *testing.T) {
	rt := NewRuntime()
	count := rt.NewSignal(0)
	d := rt.NewMemo(func() int { return count.Get() * 2 })

	runs := 0
	rt.NewEffect(func() {
		runs++
		d.Read()
	})

	if runs != 1 {
		t.Fatalf("after creation: runs = %d, want 1", runs)
	}

	count.Set(0)
	if runs != 1 {
		t.Fatalf("after writing same value: runs = %d, want 1", runs)
	}

	count.Set(5)
	if runs != 2 {
		t.Fatalf("after writing new value: runs = %d, want 2", runs)
	}
	v, err := d.Read()
	if err != nil || v != 10 {
		t.Fatalf("d.Read() = %d, %v, want 10, nil", v, err)
	}

	count.Set(5)
	if runs != 2 {
		t.Fatalf("after re-writing same value: runs = %d, want 2", runs)
	}
}

func TestScenarioGlitchFreeDiamond(t *testing.T) {
	rt := NewRuntime()
	a := rt.NewSignal(1)
	b := rt.NewMemo(func() int { return a.Get() + 1 })
	c := rt.NewMemo(func() int { return a.Get() * 10 })

	dRuns := 0
	var bVal, cVal int
	rt.NewEffect(func() {
		dRuns++
		bVal, _ = b.Read()
		cVal, _ = c.Read()
	})

	if dRuns != 1 {
		t.Fatalf("after creation: dRuns = %d, want 1", dRuns)
	}

	a.Set(2)
	if dRuns != 2 {
		t.Fatalf("after a.Set(2): dRuns = %d, want 2", dRuns)
	}
	if bVal != 3 || cVal != 20 {
		t.Fatalf("diamond effect observed b=%d c=%d, want 3, 20", bVal, cVal)
	}
}

func TestScenarioEqualityShortCircuitThroughMemo(t *testing.T) {
	rt := NewRuntime()
	x := rt.NewSignal(4)
	sq := rt.NewMemo(func() int { v := x.Get(); return v * v })
	sign := rt.NewMemo(func() bool { v, _ := sq.Read(); return v > 0 })

	signRuns := 0
	rt.NewEffect(func() {
		signRuns++
		sign.Read()
	})

	if signRuns != 1 {
		t.Fatalf("after creation: signRuns = %d, want 1", signRuns)
	}

	x.Set(-4)
	if signRuns != 1 {
		t.Fatalf("after x.Set(-4): signRuns = %d, want 1 (sign's cached value did not change)", signRuns)
	}

	sqVal, _ := sq.Read()
	if sqVal != 16 {
		t.Fatalf("sq.Read() = %d, want 16", sqVal)
	}
}

func TestScenarioBatchCoalescesWrites(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewSignal(0)
	tg := rt.NewSignal(0)

	runs := 0
	rt.NewEffect(func() {
		runs++
		s.Get()
		tg.Get()
	})

	if runs != 1 {
		t.Fatalf("after creation: runs = %d, want 1", runs)
	}

	rt.Batch(func() {
		s.Set(1)
		tg.Set(1)
		s.Set(2)
	})

	if runs != 2 {
		t.Fatalf("after batch: runs = %d, want 2", runs)
	}
	if v := s.Peek(); v != 2 {
		t.Fatalf("s.Peek() = %d, want 2", v)
	}
}

func TestScenarioBatchNoOpWhenFinalValueUnchanged(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewSignal(0)

	runs := 0
	rt.NewEffect(func() {
		runs++
		s.Get()
	})
	if runs != 1 {
		t.Fatalf("after creation: runs = %d, want 1", runs)
	}

	rt.Batch(func() {
		s.Set(1)
		s.Set(0) // back to the batch-start value
	})

	if runs != 1 {
		t.Fatalf("after no-op batch: runs = %d, want 1", runs)
	}
}

func TestScenarioDisposeReleasesEdges(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewSignal(0)

	ran := false
	e := rt.NewEffect(func() {
		ran = true
		s.Get()
	})
	if !ran {
		t.Fatalf("effect did not run on creation")
	}
	if s.subscriberCount() != 1 {
		t.Fatalf("s.subscriberCount() = %d, want 1", s.subscriberCount())
	}

	e.Dispose()
	if s.subscriberCount() != 0 {
		t.Fatalf("s.subscriberCount() after dispose = %d, want 0", s.subscriberCount())
	}

	ran = false
	s.Set(42)
	if ran {
		t.Fatalf("disposed effect ran after source write")
	}
}

func TestScenarioCycleDetection(t *testing.T) {
	rt := NewRuntime()
	var m *Memo[int]
	m = rt.NewMemo(func() int {
		// A well-behaved compute_fn propagates an error from a nested
		// read rather than silently computing from its zero value; a
		// panic is how compute_fn signals failure up to its own
		// evaluation, the same path any other failing compute_fn uses.
		v, err := m.Read()
		if err != nil {
			panic(err)
		}
		return v + 1
	})

	_, err := m.Read()
	if err == nil {
		t.Fatalf("expected an error from a self-referential memo, got nil")
	}
	var rerr *Error
	if !asError(err, &rerr) || rerr.Kind != KindCycle {
		t.Fatalf("expected KindCycle, got %v", err)
	}

	if got := m.getState(); got != stateDirty {
		t.Fatalf("memo state after a cycle = %v, want dirty (restored, not cached)", got)
	}
}

// TestScenarioCycleDetectionAllowsRetryAfterConditionClears shows that a
// memo left behind by a cycle is not stuck: it is Dirty, not Clean with a
// permanently cached error, so a later read that no longer hits the cycle
// recomputes normally.
func TestScenarioCycleDetectionAllowsRetryAfterConditionClears(t *testing.T) {
	rt := NewRuntime()
	recurse := rt.NewSignal(true)
	var m *Memo[int]
	m = rt.NewMemo(func() int {
		if !recurse.Get() {
			return 7
		}
		v, err := m.Read()
		if err != nil {
			panic(err)
		}
		return v + 1
	})

	_, err := m.Read()
	var rerr *Error
	if !asError(err, &rerr) || rerr.Kind != KindCycle {
		t.Fatalf("expected KindCycle on first read, got %v", err)
	}

	recurse.Set(false)
	v, err := m.Read()
	if err != nil {
		t.Fatalf("expected the retried read to succeed, got %v", err)
	}
	if v != 7 {
		t.Fatalf("m.Read() = %d, want 7", v)
	}
}

func asError(err error, target **Error) bool {
	if e, ok := err.(*Error); ok {
		*target = e
		return true
	}
	return false
}
