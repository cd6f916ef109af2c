package reactant

import (
	"reflect"
)

// Signal is a leaf source of truth: a mutable value with equality-gated
// writes. Reading a Signal from within a tracked evaluation (a Memo's
// compute_fn or an Effect's run_fn) subscribes that node to future changes.
type Signal[T any] struct {
	nodeBase
	value T
	eq    func(a, b T) bool

	pending    T
	hasPending bool
}

// NewSignal creates a Signal on the default Runtime. Use Runtime.NewSignal
// to create one on a specific Runtime.
func NewSignal[T any](initial T) *Signal[T] {
	return Default().NewSignal(initial)
}

// NewSignal creates a Signal owned by rt, with structural equality as the
// default comparison. Use WithEquals to override it.
func (rt *Runtime) NewSignal[T any](initial T) *Signal[T] {
	s := &Signal[T]{
		nodeBase: newNodeBase(rt, kindSignal, stateClean),
		value:    initial,
		eq:       defaultEquals[T],
	}
	s.self = s
	rt.register(&s.nodeBase)
	return s
}

// WithEquals overrides the equality predicate used to gate writes. It
// returns s for chaining and must be called before the Signal is shared
// across goroutines.
func (s *Signal[T]) WithEquals(eq func(a, b T) bool) *Signal[T] {
	s.eq = eq
	return s
}

// ID returns the Signal's NodeID within its owning Runtime.
func (s *Signal[T]) ID() NodeID { return s.id }

// Get returns the current value, subscribing the currently-evaluating node
// (if any) as a dependency.
func (s *Signal[T]) Get() T {
	s.rt.tracking.track(&s.nodeBase)
	return s.Peek()
}

// Peek returns the current value without recording a dependency, the
// untracked-read escape hatch.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set applies the equality-gated write rule: if eq(old, new) holds,
// nothing happens and version does not change. Otherwise the
// value is replaced, version bumps, and a propagation pass visits every
// current subscriber.
//
// Within a Batch, Set only records the pending value; the comparison
// against the batch-start value and the single resulting pass happen when
// the outermost Batch closes.
func (s *Signal[T]) Set(new T) {
	if s.getState() == stateDisposed {
		return
	}

	if s.rt.tracking.inBatch() {
		s.mu.Lock()
		if !s.hasPending {
			s.hasPending = true
			startValue := s.value
			s.rt.tracking.registerBatchCommit(s.id, func() {
				s.commit(startValue)
			})
		}
		s.pending = new
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	if s.eq(s.value, new) {
		s.mu.Unlock()
		return
	}
	s.value = new
	s.version++
	s.mu.Unlock()

	s.rt.mark(&s.nodeBase)
	s.rt.sched.drain()
}

// commit applies the final pending value recorded during a batch, gated
// against startValue (the value the Signal held when it was first written
// in this batch): the batch-close equality rule.
func (s *Signal[T]) commit(startValue T) {
	s.mu.Lock()
	final := s.pending
	var zero T
	s.pending = zero
	s.hasPending = false
	if s.eq(startValue, final) {
		s.mu.Unlock()
		return
	}
	s.value = final
	s.version++
	s.mu.Unlock()

	s.rt.mark(&s.nodeBase)
}

// Update reads the current value, applies fn, and writes the result back
// through the same equality-gated path as Set.
func (s *Signal[T]) Update(fn func(T) T) {
	s.Set(fn(s.Peek()))
}

// Dispose transitions the Signal to Disposed and removes it from the
// Runtime's registry. Idempotent. A disposed Signal's last value is still
// readable through any handle that still holds it, but Set is a permanent
// no-op afterward (see Set's disposed guard); a Signal has no source edges
// of its own to release, unlike Memo.Dispose and Effect.Dispose.
func (s *Signal[T]) Dispose() {
	s.mu.Lock()
	if s.state == stateDisposed {
		s.mu.Unlock()
		return
	}
	s.state = stateDisposed
	s.mu.Unlock()

	s.rt.unregister(s.id)
}

// defaultEquals compares two values of type T. For comparable types it
// uses ==; otherwise it falls back to reflect.DeepEqual for payloads
// without a natural ==.
func defaultEquals[T any](a, b T) bool {
	av, bv := any(a), any(b)
	if av == nil || bv == nil {
		return av == bv
	}
	rv := reflect.ValueOf(av)
	if rv.Comparable() {
		return av == bv
	}
	return reflect.DeepEqual(av, bv)
}
