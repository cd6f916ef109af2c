package reactant

// Effect is an eager observer: it owns no value and exists only to run
// side-effecting code whenever its sources change. Its initial run is
// scheduled at creation (or deferred to batch close if created inside a
// Batch), and it follows the same Dirty evaluation protocol a Memo does
// when the Scheduler decides it actually needs to run.
type Effect struct {
	nodeBase
	run_fn   func()
	cleanups []func()
	mountFns []func()
	mounted  bool

	lastErr *Error
}

// EffectOption configures an Effect at construction, following the same
// functional-options idiom used for RuntimeOption, OTelOption and
// PromOption.
type EffectOption func(*Effect)

// OnMount registers fn to run once, synchronously, right after the
// Effect's first successful evaluation completes. A run whose run_fn
// fails does not count as the first one.
func OnMount(fn func()) EffectOption {
	return func(e *Effect) {
		e.mountFns = append(e.mountFns, fn)
	}
}

// NewEffect creates an Effect on the default Runtime.
func NewEffect(run func(), opts ...EffectOption) *Effect {
	return Default().NewEffect(run, opts...)
}

// NewEffect creates an Effect owned by rt and schedules its first run
// immediately, unless the calling goroutine is currently inside a Batch,
// in which case the run is deferred to the batch's close.
func (rt *Runtime) NewEffect(run func(), opts ...EffectOption) *Effect {
	e := &Effect{
		nodeBase: newNodeBase(rt, kindEffect, stateDirty),
		run_fn:   run,
	}
	e.schedule = func() { rt.sched.enqueue(e) }
	e.self = e
	for _, opt := range opts {
		opt(e)
	}
	rt.register(&e.nodeBase)

	if rt.tracking.inBatch() {
		rt.sched.enqueue(e)
	} else {
		rt.sched.enqueue(e)
		rt.sched.drain()
	}
	return e
}

// ID returns the Effect's NodeID within its owning Runtime.
func (e *Effect) ID() NodeID { return e.id }

// CurrentEffect returns the Effect currently running on this goroutine, or
// nil if none is running or the running node is a Memo. Used from inside a
// run_fn to call OnCleanup on itself without a forward-declared variable:
//
//	rt.NewEffect(func() {
//	    rt.CurrentEffect().OnCleanup(func() { ... })
//	})
func (rt *Runtime) CurrentEffect() *Effect {
	n := rt.tracking.currentNode()
	if n == nil {
		return nil
	}
	e, _ := n.self.(*Effect)
	return e
}

// CurrentEffect calls Runtime.CurrentEffect on the default Runtime.
func CurrentEffect() *Effect { return Default().CurrentEffect() }

// OnCleanup registers a cleanup callback that runs, in LIFO order, right
// before this Effect's run_fn re-runs or the Effect is disposed. Must be
// called from within the Effect's own run_fn.
func (e *Effect) OnCleanup(fn func()) {
	e.cleanups = append(e.cleanups, fn)
}

// LastError returns the error from the Effect's most recent run, if it
// failed. A failing run does not unsubscribe the effect: it stays
// subscribed and retries on the next source change.
func (e *Effect) LastError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.lastErr == nil {
		return nil
	}
	return e.lastErr
}

// Dispose transitions the Effect to Disposed, removes it from every
// source's subscriber set, and drops run_fn. Idempotent: disposing an
// already-disposed Effect is a no-op.
func (e *Effect) Dispose() {
	e.mu.Lock()
	if e.state == stateDisposed {
		e.mu.Unlock()
		return
	}
	e.state = stateDisposed
	e.mu.Unlock()

	e.runCleanups()
	e.clearSources()
	e.run_fn = nil
	e.rt.unregister(e.id)
}

func (e *Effect) runCleanups() {
	for i := len(e.cleanups) - 1; i >= 0; i-- {
		fn := e.cleanups[i]
		func() {
			defer func() { recover() }()
			fn()
		}()
	}
	e.cleanups = e.cleanups[:0]
}

// run executes the Dirty evaluation protocol: run cleanups from the
// previous run, clear old edges, enter tracking, invoke run_fn under
// panic recovery, exit tracking capturing the new sources.
func (e *Effect) run() error {
	if e.getState() == stateDisposed {
		return nil
	}

	e.runCleanups()
	// See Memo.evaluate: the Reclaim check on dropped sources is deferred
	// until run_fn has re-subscribed whichever of them it still reads.
	oldSources := e.unlinkSources()
	defer func() {
		if len(oldSources) > 0 {
			e.rt.reclaim(oldSources...)
		}
	}()
	e.setState(stateRunning)
	e.rt.tracking.enter(&e.nodeBase)

	var callbackErr *Error
	func() {
		defer recoverCallback("Effect.run_fn", e.id, &callbackErr)
		e.run_fn()
	}()

	e.rt.tracking.exit()

	e.mu.Lock()
	e.lastErr = callbackErr
	e.version++
	if e.state != stateDisposed {
		e.state = stateClean
	}
	e.mu.Unlock()

	if callbackErr != nil {
		e.rt.logger.Warn("reactant: effect run_fn failed, will retry on next source change",
			"node", e.id, "error", callbackErr)
		return callbackErr
	}

	if !e.mounted {
		e.mounted = true
		for _, fn := range e.mountFns {
			fn()
		}
	}
	return nil
}

// abortRunaway marks this effect's error state after the scheduler aborts
// a pass for exceeding its effect-execution budget: the queue's head
// effect (the one about to run when the budget was hit) transitions to an
// error-state; it stays pending for the next pass.
func (e *Effect) abortRunaway() {
	e.mu.Lock()
	e.lastErr = newError(KindRunawayPropagation, "Scheduler.drain", e.id, nil)
	if e.state != stateDisposed {
		e.state = stateCheck
	}
	e.mu.Unlock()
	e.schedule()
}
