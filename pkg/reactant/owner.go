package reactant

import "sync"

// Scope is a disposal tree: an ownership boundary for Effects. Disposing a
// Scope recursively disposes every Effect created through it with
// Scope.Effect (directly, via a child Scope, or further down) and runs
// every OnCleanup registered
// against it. This is an owning scope for an Effect's lifetime, stripped
// of any rendering- or hook-order-specific machinery: those concerns
// belong to a downstream host binding, not this reactive core.
type Scope struct {
	rt *Runtime

	mu       sync.Mutex
	parent   *Scope
	children []*Scope
	effects  []*Effect
	cleanups []func()
	disposed bool
}

// Root creates a top-level Scope on the default Runtime, runs fn with it
// as its argument, and returns a disposer. See Runtime.Root.
func Root(fn func(s *Scope)) func() {
	return Default().Root(fn)
}

// Root creates a top-level Scope owned by rt, runs fn with that scope, and
// returns a function that disposes it.
func (rt *Runtime) Root(fn func(s *Scope)) func() {
	s := &Scope{rt: rt}
	fn(s)
	return s.Dispose
}

// NewChild creates a child Scope. Disposing the parent disposes the child.
func (s *Scope) NewChild() *Scope {
	child := &Scope{rt: s.rt, parent: s}
	s.mu.Lock()
	s.children = append(s.children, child)
	s.mu.Unlock()
	return child
}

// Effect creates an Effect owned by this Scope: disposing the Scope
// disposes the Effect.
func (s *Scope) Effect(run func(), opts ...EffectOption) *Effect {
	e := s.rt.NewEffect(run, opts...)
	s.mu.Lock()
	s.effects = append(s.effects, e)
	s.mu.Unlock()
	return e
}

// OnCleanup registers fn to run when this Scope is disposed, after all
// child scopes and effects have been disposed, in LIFO order relative to
// other cleanups registered on the same Scope.
func (s *Scope) OnCleanup(fn func()) {
	s.mu.Lock()
	s.cleanups = append(s.cleanups, fn)
	s.mu.Unlock()
}

// Dispose tears down this Scope: children first (depth-first), then this
// scope's own effects, then its cleanups in LIFO order. Idempotent.
func (s *Scope) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	children := s.children
	effects := s.effects
	cleanups := s.cleanups
	s.children, s.effects, s.cleanups = nil, nil, nil
	s.mu.Unlock()

	for _, c := range children {
		c.Dispose()
	}
	for _, e := range effects {
		e.Dispose()
	}
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
