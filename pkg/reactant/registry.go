package reactant

import (
	"log/slog"
	"sync"
)

// Runtime owns one reactive dependency graph: its node table, its tracking
// context, and its scheduler. Handles carry a reference to the Runtime that
// created them; two Runtimes never share NodeIDs or graph state. A process
// may use a single shared Runtime (see Default) or construct several for
// isolated test fixtures — a first-class Runtime value rather than global
// state improves testability.
type Runtime struct {
	ids idSource

	mu    sync.RWMutex
	nodes map[NodeID]*nodeBase

	tracking *trackingContext
	sched    *scheduler

	logger   *slog.Logger
	observer Observer
	debug    DebugConfig
}

// RuntimeOption configures a Runtime at construction time, following the
// functional-options idiom used throughout the example corpus for
// EffectOption, MetricsOption and OTelOption.
type RuntimeOption func(*Runtime)

// WithLogger overrides the Runtime's logger. The default is slog.Default().
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(rt *Runtime) { rt.logger = l }
}

// WithEffectBudget overrides the per-pass effect-execution budget. The
// default is 1000.
func WithEffectBudget(n int) RuntimeOption {
	return func(rt *Runtime) { rt.sched.budget = n }
}

// WithObserver attaches a diagnostics Observer that is notified of
// propagation-pass boundaries and effect outcomes. See pkg/diagnostics.
func WithObserver(o Observer) RuntimeOption {
	return func(rt *Runtime) { rt.observer = o }
}

// WithDebugConfig overrides the Runtime's debug logging flags.
func WithDebugConfig(cfg DebugConfig) RuntimeOption {
	return func(rt *Runtime) { rt.debug = cfg }
}

// NewRuntime constructs an independent reactive graph.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	rt := &Runtime{
		nodes:  make(map[NodeID]*nodeBase),
		logger: slog.Default(),
		debug:  DefaultDebugConfig(),
	}
	rt.tracking = newTrackingContext(rt)
	rt.sched = newScheduler(rt, defaultEffectBudget)
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

var (
	defaultRuntime     *Runtime
	defaultRuntimeOnce sync.Once
)

// Default returns a process-wide Runtime, created lazily on first use.
// Prefer NewRuntime in tests that need isolation between cases.
func Default() *Runtime {
	defaultRuntimeOnce.Do(func() {
		defaultRuntime = NewRuntime()
	})
	return defaultRuntime
}

func (rt *Runtime) register(n *nodeBase) {
	rt.mu.Lock()
	rt.nodes[n.id] = n
	rt.mu.Unlock()
}

func (rt *Runtime) unregister(id NodeID) {
	rt.mu.Lock()
	delete(rt.nodes, id)
	rt.mu.Unlock()
}

// NodeCount returns the number of live nodes currently registered. Used by
// tests asserting that dispose releases edges and reclaims orphaned nodes;
// a caller can also feed it to PromObserver.SetLiveNodes in pkg/diagnostics.
func (rt *Runtime) NodeCount() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.nodes)
}

// Stats is a snapshot of Runtime-wide counters, useful for tests and for
// diagnostics.Observer implementations.
type Stats struct {
	Nodes     int
	Signals   int
	Memos     int
	Effects   int
	EffectsRun int
	EffectsSkipped int
}

func (rt *Runtime) Stats() Stats {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	s := Stats{Nodes: len(rt.nodes)}
	for _, n := range rt.nodes {
		switch n.kind {
		case kindSignal:
			s.Signals++
		case kindMemo:
			s.Memos++
		case kindEffect:
			s.Effects++
		}
	}
	s.EffectsRun = rt.sched.effectsRunTotal()
	s.EffectsSkipped = rt.sched.effectsSkippedTotal()
	return s
}

// mark implements the Mark phase of propagation: BFS from the written
// Signal(s) over subscribers. Clean Memos transition to Check and their own
// subscribers are visited in turn; Check and Dirty Memos stay as they are
// but are still walked so their Effects get scheduled. Effects are pushed
// onto the scheduler's pending queue and transition to Check. No user code
// runs during Mark.
func (rt *Runtime) mark(from *nodeBase) {
	queue := []*nodeBase{from}
	visited := map[NodeID]bool{from.id: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, sub := range cur.liveSubscribers() {
			if visited[sub.id] {
				continue
			}
			visited[sub.id] = true

			switch sub.kind {
			case kindMemo:
				sub.compareAndSetState(stateClean, stateCheck)
				// Whatever state sub ends up in (Check or Dirty), its own
				// subscribers must still be walked so Effects downstream
				// get scheduled even if this Memo is already Dirty.
				queue = append(queue, sub)
			case kindEffect:
				sub.compareAndSetState(stateClean, stateCheck)
				sub.compareAndSetState(stateDirty, stateCheck)
				if sub.schedule != nil {
					sub.schedule()
				}
			}
		}
	}
}

// reclaim unregisters any Memo with zero subscribers. reactant does not
// refcount Go-GC'd handles explicitly; a Memo becomes eligible for
// reclamation once it loses its last subscriber, whether via a downstream
// Memo/Effect re-evaluating away from it or via an explicit Dispose.
// Signals are never reclaimed here: a Signal stays registered until its
// own Dispose, whether or not anything still reads it. It cascades:
// unregistering a Memo may drop its own sources to zero subscribers in
// turn, so those are queued for the same check within this one locked
// pass instead of requiring a caller to walk back up the chain itself.
func (rt *Runtime) reclaim(candidates ...*nodeBase) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	queue := append([]*nodeBase(nil), candidates...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if _, registered := rt.nodes[n.id]; !registered {
			continue
		}
		if n.kind == kindSignal || n.subscriberCount() != 0 {
			continue
		}
		queue = append(queue, n.unlinkSources()...)
		delete(rt.nodes, n.id)
	}
}
