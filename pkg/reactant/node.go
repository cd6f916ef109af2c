package reactant

import (
	"sync"
	"weak"
)

// nodeBase is the state every node kind (Signal, Memo, Effect) shares: an
// identity, a state machine cell, and the two sides of the dependency
// edges. Signal, Memo, and Effect each embed a nodeBase and add their
// kind-specific payload (value, compute_fn, run_fn) alongside it;
// propagation code operates on *nodeBase and dispatches on kind instead
// of on a Go interface.
//
// Embedding a common concrete struct, rather than routing every node kind
// through an interface, is also what makes weak subscriber edges possible
// with the stdlib weak package: weak.Pointer[T] needs one concrete T, and
// nodeBase is that T regardless of which generic Signal[T]/Memo[T] wraps it.
type nodeBase struct {
	id   NodeID
	kind nodeKind
	rt   *Runtime

	// mu guards state, version and cachedErr: the parts of a node's
	// mutable state that a reader (shared lock) or writer (exclusive
	// lock) touches.
	mu        sync.RWMutex
	state     nodeState
	version   uint64
	cachedErr *Error // set for a Memo whose compute_fn last failed

	// sourcesMu guards the owning edges to nodes this node currently
	// reads from, and the version snapshot taken at last evaluation.
	sourcesMu   sync.Mutex
	sources     []*nodeBase
	srcVersions map[NodeID]uint64

	// subsMu guards the weak back-edges to nodes that currently read
	// from this one. Entries are weak.Pointer so a subscriber never
	// keeps its producer alive and a producer never keeps a disposed
	// or collected subscriber alive.
	subsMu sync.RWMutex
	subs   map[NodeID]weak.Pointer[nodeBase]

	// schedule is set by Effect at construction; it pushes this node
	// onto the Runtime's scheduler pending queue. nil for Signal/Memo.
	schedule func()

	// reconcileFn is set by Memo at construction; it runs the Check-walk
	// read algorithm without registering a dependency, forcing lazy
	// re-evaluation up the chain. nil for Signal/Effect, neither of
	// which has anything to lazily reconcile.
	reconcileFn func() *Error

	// self is the outer typed handle (*Signal[T], *Memo[T], or *Effect)
	// that embeds this nodeBase, set at construction. It lets code that
	// only has a *nodeBase (the tracking stack, in particular) recover
	// the typed handle, the way CurrentEffect does for a run_fn that
	// wants to call OnCleanup on itself.
	self any
}

func newNodeBase(rt *Runtime, kind nodeKind, initial nodeState) nodeBase {
	return nodeBase{
		id:          rt.ids.next(),
		kind:        kind,
		rt:          rt,
		state:       initial,
		srcVersions: make(map[NodeID]uint64),
		subs:        make(map[NodeID]weak.Pointer[nodeBase]),
	}
}

func (n *nodeBase) getState() nodeState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

func (n *nodeBase) setState(s nodeState) {
	n.mu.Lock()
	n.state = s
	n.mu.Unlock()
}

// compareAndSetState transitions from `from` to `to` only if the current
// state is still `from`. Used by Mark to implement the per-kind transition
// table (Clean→Check, Check→Check, Dirty→Dirty) atomically.
func (n *nodeBase) compareAndSetState(from, to nodeState) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != from {
		return false
	}
	n.state = to
	return true
}

func (n *nodeBase) getVersion() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.version
}

// addSubscriber records that sub currently reads from n. Called while
// evaluating sub, with n discovered via a tracked read.
func (n *nodeBase) addSubscriber(sub *nodeBase) {
	n.subsMu.Lock()
	n.subs[sub.id] = weak.Make(sub)
	n.subsMu.Unlock()
}

func (n *nodeBase) removeSubscriber(id NodeID) {
	n.subsMu.Lock()
	delete(n.subs, id)
	n.subsMu.Unlock()
}

// liveSubscribers resolves the weak subscriber set to currently-alive
// nodes, pruning dead entries as it goes: encountering a dead weak
// reference is not an error. The returned slice is a snapshot safe to
// walk without holding subsMu.
func (n *nodeBase) liveSubscribers() []*nodeBase {
	n.subsMu.Lock()
	defer n.subsMu.Unlock()

	live := make([]*nodeBase, 0, len(n.subs))
	for id, wp := range n.subs {
		if sub := wp.Value(); sub != nil {
			live = append(live, sub)
		} else {
			delete(n.subs, id)
		}
	}
	return live
}

func (n *nodeBase) subscriberCount() int {
	n.subsMu.RLock()
	defer n.subsMu.RUnlock()
	return len(n.subs)
}

// unlinkSources removes n from every node it currently reads from, both
// sides of the edge, resets its own bookkeeping, and reports the old
// sources so the caller can decide what to do about any left orphaned.
// Called at the start of every re-evaluation (Dirty branch) and from
// Dispose, so stale edges from a previous run never linger across
// re-evaluations.
func (n *nodeBase) unlinkSources() []*nodeBase {
	n.sourcesMu.Lock()
	old := n.sources
	n.sources = nil
	n.srcVersions = make(map[NodeID]uint64)
	n.sourcesMu.Unlock()

	for _, src := range old {
		src.removeSubscriber(n.id)
	}
	return old
}

// clearSources is unlinkSources followed by an immediate Reclaim check on
// every node it dropped. Safe to use only where nothing will re-link those
// edges afterward, i.e. from Dispose: a re-evaluation that is about to run
// compute_fn/run_fn again must call unlinkSources directly and defer the
// Reclaim check until after the new edges are in place, or a source that
// is about to be re-read would be reclaimed out from under it in the
// window between the old edge dropping and the new one being recorded.
func (n *nodeBase) clearSources() {
	old := n.unlinkSources()
	if len(old) > 0 {
		n.rt.reclaim(old...)
	}
}

// recordSource adds src as an owning source edge of n and mirrors it as a
// weak subscriber edge on src, keeping the two sides of the edge in sync.
// It is safe to call more than once for the same src during one
// evaluation; duplicates are deduplicated by NodeID, since edges must
// stay single-valued or version bookkeeping would double count.
func (n *nodeBase) recordSource(src *nodeBase) {
	n.sourcesMu.Lock()
	if _, seen := n.srcVersions[src.id]; seen {
		n.sourcesMu.Unlock()
		return
	}
	n.sources = append(n.sources, src)
	n.srcVersions[src.id] = src.getVersion()
	n.sourcesMu.Unlock()

	src.addSubscriber(n)
}

// sourcesSnapshot returns the sources this node read during its last
// evaluation. The version recorded for each at that time is looked up
// separately through recordedVersionOf.
func (n *nodeBase) sourcesSnapshot() []*nodeBase {
	n.sourcesMu.Lock()
	defer n.sourcesMu.Unlock()
	out := make([]*nodeBase, len(n.sources))
	copy(out, n.sources)
	return out
}

func (n *nodeBase) recordedVersionOf(id NodeID) (uint64, bool) {
	n.sourcesMu.Lock()
	defer n.sourcesMu.Unlock()
	v, ok := n.srcVersions[id]
	return v, ok
}
