package reactant

import (
	"sync"

	"github.com/petermattis/goid"
)

// goroutineFrame is the per-goroutine state the tracking context maintains:
// the stack of nodes currently being evaluated (innermost last), whether
// reads should currently be recorded as dependencies, and the pending-write
// bookkeeping for an open batch. A frame exists for a goroutine while it
// is inside a tracked evaluation, a batch, or an untracked section on this
// Runtime, and is dropped once it leaves all three.
type goroutineFrame struct {
	stack          []*nodeBase
	untrackedDepth int

	batchDepth   int
	batchCommits map[NodeID]func()
}

// trackingContext is the per-Runtime, per-goroutine tracking stack. Frames
// are looked up by goroutine id via github.com/petermattis/goid rather than
// by parsing runtime.Stack output.
type trackingContext struct {
	rt *Runtime

	mu     sync.Mutex
	frames map[int64]*goroutineFrame
}

func newTrackingContext(rt *Runtime) *trackingContext {
	return &trackingContext{
		rt:     rt,
		frames: make(map[int64]*goroutineFrame),
	}
}

func (tc *trackingContext) frame() *goroutineFrame {
	gid := goid.Get()

	tc.mu.Lock()
	defer tc.mu.Unlock()

	f, ok := tc.frames[gid]
	if !ok {
		f = &goroutineFrame{}
		tc.frames[gid] = f
	}
	return f
}

// lookup returns this goroutine's frame, or nil if it has none, without
// creating one.
func (tc *trackingContext) lookup() *goroutineFrame {
	gid := goid.Get()
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.frames[gid]
}

// dropFrameIfIdle removes the per-goroutine frame once it has no stack, is
// not batching, and is not untracked, so long-lived Runtimes do not
// accumulate one entry per goroutine that has ever touched them.
func (tc *trackingContext) dropFrameIfIdle() {
	gid := goid.Get()
	tc.mu.Lock()
	defer tc.mu.Unlock()

	f, ok := tc.frames[gid]
	if !ok {
		return
	}
	if len(f.stack) == 0 && f.untrackedDepth == 0 && f.batchDepth == 0 {
		delete(tc.frames, gid)
	}
}

// enter pushes n onto this goroutine's evaluation stack. Every enter must
// be paired with exit, typically via defer.
func (tc *trackingContext) enter(n *nodeBase) {
	f := tc.frame()
	f.stack = append(f.stack, n)
}

// exit pops the top of this goroutine's evaluation stack.
func (tc *trackingContext) exit() {
	f := tc.frame()
	if len(f.stack) > 0 {
		f.stack = f.stack[:len(f.stack)-1]
	}
	tc.dropFrameIfIdle()
}

// currentNode returns the node currently being evaluated on this goroutine,
// or nil if there is none or reads are currently untracked.
func (tc *trackingContext) currentNode() *nodeBase {
	f := tc.lookup()
	if f == nil || f.untrackedDepth > 0 {
		return nil
	}
	if len(f.stack) == 0 {
		return nil
	}
	return f.stack[len(f.stack)-1]
}

// track records that the currently-evaluating node (if any) read producer.
// Reads performed by a node while its id is at the top of the stack are
// recorded as sources for that node.
func (tc *trackingContext) track(producer *nodeBase) {
	cur := tc.currentNode()
	if cur == nil || cur == producer {
		return
	}
	cur.recordSource(producer)
}

// untracked evaluates fn with dependency recording suspended on this
// goroutine.
func (tc *trackingContext) untracked(fn func()) {
	f := tc.frame()
	f.untrackedDepth++
	defer func() {
		f.untrackedDepth--
		tc.dropFrameIfIdle()
	}()
	fn()
}

// beginBatch/endBatch implement the nested batching window: writes during
// the window are coalesced per-Signal, and the propagation pass (and
// effect drain) is deferred to the outermost close.
func (tc *trackingContext) beginBatch() {
	f := tc.frame()
	if f.batchDepth == 0 {
		f.batchCommits = make(map[NodeID]func())
	}
	f.batchDepth++
}

// endBatch returns the outermost batch's commit closures if this call
// closed the outermost batch, or nil if a nested batch merely closed.
func (tc *trackingContext) endBatch() map[NodeID]func() {
	f := tc.frame()
	f.batchDepth--
	if f.batchDepth > 0 {
		return nil
	}
	commits := f.batchCommits
	f.batchCommits = nil
	tc.dropFrameIfIdle()
	return commits
}

func (tc *trackingContext) inBatch() bool {
	f := tc.lookup()
	return f != nil && f.batchDepth > 0
}

// registerBatchCommit records the commit closure for id the first time id
// is written within the current batch. Later writes to the same Signal in
// the same batch reuse the same closure (it reads the Signal's live pending
// value when invoked at batch close), so only one commit runs per Signal.
func (tc *trackingContext) registerBatchCommit(id NodeID, commit func()) {
	f := tc.frame()
	if _, exists := f.batchCommits[id]; exists {
		return
	}
	f.batchCommits[id] = commit
}
