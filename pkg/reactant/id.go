package reactant

import "sync/atomic"

// NodeID identifies a node within a single Runtime. It is never reused within
// that Runtime's lifetime and carries no meaning outside it: two different
// Runtimes may assign the same NodeID to unrelated nodes.
type NodeID uint64

// idSource hands out monotonically increasing NodeIDs for one Runtime.
// Each Runtime owns its own idSource; there is no package-global counter,
// so NodeID uniqueness is scoped to a Runtime rather than to the process.
type idSource struct {
	counter uint64
}

func (s *idSource) next() NodeID {
	return NodeID(atomic.AddUint64(&s.counter, 1))
}
