package reactant

// Memo is a cached derived node: its compute_fn runs lazily, only when
// read() is called and the cache cannot be proven fresh, via a four-
// branch read algorithm (see Read). Memo carries a genuine
// Clean/Check/Dirty/Running/Disposed state machine rather than a boolean
// "valid" flag: Check is what lets a long chain of memos skip recomputation
// entirely when an upstream write turns out not to have changed the value
// a particular memo actually depends on.
type Memo[T any] struct {
	nodeBase
	compute func() T
	eq      func(a, b T) bool

	cached T
}

// NewMemo creates a Memo on the default Runtime.
func NewMemo[T any](compute func() T) *Memo[T] {
	return Default().NewMemo(compute)
}

// NewMemo creates a Memo owned by rt. It starts Dirty with no cached value
// and no sources; compute runs on first read, not at construction.
func (rt *Runtime) NewMemo[T any](compute func() T) *Memo[T] {
	m := &Memo[T]{
		nodeBase: newNodeBase(rt, kindMemo, stateDirty),
		compute:  compute,
		eq:       defaultEquals[T],
	}
	m.reconcileFn = func() *Error {
		_, err := m.reconcile()
		return err
	}
	m.self = m
	rt.register(&m.nodeBase)
	return m
}

// WithEquals overrides the equality predicate used to decide whether a
// freshly computed value actually changed. Must be called before the Memo
// is shared across goroutines.
func (m *Memo[T]) WithEquals(eq func(a, b T) bool) *Memo[T] {
	m.eq = eq
	return m
}

func (m *Memo[T]) ID() NodeID { return m.id }

// Dispose transitions the Memo to Disposed, releases its source edges
// (triggering Reclaim on any that are now orphaned, exactly as
// Effect.Dispose does), and removes it from the Runtime's registry.
// Idempotent. Every subsequent Read/Peek/Get reports KindDisposed via
// reconcile's Disposed branch. Disposing a Memo that still has live
// subscribers does not dispose them in turn; a subscriber's own next
// evaluation will simply see KindDisposed from this Memo and propagate
// that failure the way any other compute_fn error would.
func (m *Memo[T]) Dispose() {
	m.mu.Lock()
	if m.state == stateDisposed {
		m.mu.Unlock()
		return
	}
	m.state = stateDisposed
	m.mu.Unlock()

	m.clearSources()
	m.rt.unregister(m.id)
}

// Get is an alias for Read, matching the Signal/Effect naming convention
// used by host bindings.
func (m *Memo[T]) Get() (T, error) { return m.Read() }

// Read implements a four-branch algorithm:
//
//  1. Running  -> Cycle error, node state restored to what it was.
//  2. Clean    -> register dependency, return cached value.
//  3. Check    -> reconcile recorded sources; Clean-and-return if none
//     actually changed, otherwise fall through to Dirty.
//  4. Dirty    -> recompute, compare against cached value by eq, bump
//     version only if it actually changed, transition to Clean.
func (m *Memo[T]) Read() (T, error) {
	v, err := m.reconcile()
	if err == nil {
		m.rt.tracking.track(&m.nodeBase)
	}
	return v, err
}

// Peek reconciles and returns the cached value without registering a
// dependency on the currently-evaluating node.
func (m *Memo[T]) Peek() (T, error) {
	return m.reconcile()
}

// reconcile is Read/Peek's shared core and also what reconcileFn exposes
// to callers (Effect dequeue, an upstream Memo's own Check branch) that
// must not register themselves as a dependency.
func (m *Memo[T]) reconcile() (T, error) {
	for {
		switch m.getState() {
		case stateRunning:
			return m.cached, newError(KindCycle, "Memo.Read", m.id, nil)

		case stateDisposed:
			return m.cached, newError(KindDisposed, "Memo.Read", m.id, nil)

		case stateClean:
			m.mu.RLock()
			err := m.cachedErr
			v := m.cached
			m.mu.RUnlock()
			return v, err

		case stateCheck:
			if reconcileSources(&m.nodeBase) {
				m.setState(stateDirty)
				continue
			}
			m.compareAndSetState(stateCheck, stateClean)
			m.mu.RLock()
			err := m.cachedErr
			v := m.cached
			m.mu.RUnlock()
			return v, err

		case stateDirty:
			return m.evaluate()
		}
	}
}

// evaluate runs compute_fn under the tracked-evaluation protocol: clear
// old edges, enter tracking, invoke compute_fn, exit tracking capturing
// the new sources, then apply the equality-gated version bump.
func (m *Memo[T]) evaluate() (v T, reterr error) {
	if !m.compareAndSetState(stateDirty, stateRunning) {
		// Lost a race to another goroutine already evaluating this
		// memo from Dirty; loop back through reconcile to pick up
		// whatever state it lands in.
		return m.reconcile()
	}

	// Unlink now but defer the Reclaim check on the dropped sources until
	// compute_fn has finished re-reading whichever of them it still
	// depends on: reclaiming eagerly here would unregister a source that
	// is about to be re-subscribed a few lines down, in the window before
	// the new edge is recorded.
	oldSources := m.unlinkSources()
	defer func() {
		if len(oldSources) > 0 {
			m.rt.reclaim(oldSources...)
		}
	}()
	m.rt.tracking.enter(&m.nodeBase)

	var result T
	var callbackErr *Error
	var cycleErr *Error
	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			// A compute_fn that panics with the *Error a nested
			// self-referential read returned is reporting a cycle,
			// not an ordinary callback failure: propagate it as
			// KindCycle unwrapped instead of burying it inside a
			// KindUserCallbackFailure.
			if ce, ok := r.(*Error); ok && ce.Kind == KindCycle {
				cycleErr = ce
				return
			}
			callbackErr = wrapCallbackPanic(r, "Memo.compute_fn", m.id)
		}()
		result = m.compute()
	}()

	m.rt.tracking.exit()

	if cycleErr != nil {
		// This evaluation never produced a value, so there is nothing
		// to cache and no version bump: falling back to Dirty (not
		// Clean) leaves the memo exactly as it was before the read
		// attempt and lets the next read retry, rather than replaying
		// the same cycle failure forever.
		m.mu.Lock()
		m.state = stateDirty
		m.mu.Unlock()
		return m.cached, cycleErr
	}

	m.mu.Lock()
	if callbackErr != nil {
		// A failed compute_fn invalidates the cache and caches the
		// error in its place; version still bumps so dependents know
		// to retry on next read.
		m.cachedErr = callbackErr
		m.version++
	} else {
		changed := m.cachedErr != nil || !m.eq(m.cached, result)
		m.cached = result
		m.cachedErr = nil
		if changed {
			m.version++
		}
	}
	m.state = stateClean
	v = m.cached
	reterr = m.cachedErr
	m.mu.Unlock()

	return v, reterr
}
