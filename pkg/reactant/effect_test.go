package reactant

import "testing"

func TestEffectRunsImmediatelyOnCreation(t *testing.T) {
	rt := NewRuntime()
	ran := false
	rt.NewEffect(func() { ran = true })
	if !ran {
		t.Fatalf("effect did not run on creation")
	}
}

func TestEffectOnCleanupRunsInLIFOOrderBeforeRerun(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewSignal(0)
	var order []int

	rt.NewEffect(func() {
		s.Get()
		// Register cleanups in ascending order; they must fire descending.
		for i := 1; i <= 3; i++ {
			i := i
			rt.CurrentEffect().OnCleanup(func() { order = append(order, i) })
		}
	})

	s.Set(1) // triggers a re-run, which first runs the previous cleanups
	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Fatalf("cleanup order = %v, want [3 2 1]", order)
	}
}

func TestEffectOnMountFiresOnceAfterFirstSuccessfulRun(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewSignal(0)
	mounts := 0
	rt.NewEffect(func() {
		s.Get()
	}, OnMount(func() { mounts++ }))

	if mounts != 1 {
		t.Fatalf("mounts after creation = %d, want 1", mounts)
	}
	s.Set(1)
	if mounts != 1 {
		t.Fatalf("mounts after re-run = %d, want 1 (fires once)", mounts)
	}
}

func TestEffectLastErrorReportsAndRetries(t *testing.T) {
	rt := NewRuntime()
	fail := rt.NewSignal(true)
	runs := 0
	e := rt.NewEffect(func() {
		runs++
		if fail.Get() {
			panic("boom")
		}
	})

	if e.LastError() == nil {
		t.Fatalf("expected LastError to be set after a panicking run_fn")
	}
	var rerr *Error
	if !asError(e.LastError(), &rerr) || rerr.Kind != KindUserCallbackFailure {
		t.Fatalf("expected KindUserCallbackFailure, got %v", e.LastError())
	}

	fail.Set(false)
	if runs != 2 {
		t.Fatalf("runs = %d, want 2 (retried on next source change)", runs)
	}
	if e.LastError() != nil {
		t.Fatalf("expected LastError to clear after a successful retry, got %v", e.LastError())
	}
}

func TestEffectDisposeIsIdempotentAndStopsFutureRuns(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewSignal(0)
	runs := 0
	e := rt.NewEffect(func() {
		runs++
		s.Get()
	})

	e.Dispose()
	e.Dispose() // must not panic or double-run cleanups

	s.Set(1)
	if runs != 1 {
		t.Fatalf("runs after dispose and source write = %d, want 1", runs)
	}
}

func TestEffectDisposeRunsOutstandingCleanups(t *testing.T) {
	rt := NewRuntime()
	cleaned := false
	e := rt.NewEffect(func() {
		rt.CurrentEffect().OnCleanup(func() { cleaned = true })
	})
	e.Dispose()
	if !cleaned {
		t.Fatalf("expected cleanup registered during run_fn to fire on Dispose")
	}
}
