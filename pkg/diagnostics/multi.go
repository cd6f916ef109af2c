package diagnostics

import (
	"time"

	"github.com/reactant-go/reactant/pkg/reactant"
)

// MultiObserver fans every reactant.Observer call out to a fixed set of
// observers, so a Runtime can be wired to both an OTelObserver and a
// PromObserver without either one knowing about the other.
type MultiObserver struct {
	observers []reactant.Observer
}

// NewMultiObserver returns a MultiObserver forwarding to each of observers
// in order. Nil entries are skipped.
func NewMultiObserver(observers ...reactant.Observer) *MultiObserver {
	out := make([]reactant.Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return &MultiObserver{observers: out}
}

func (m *MultiObserver) PassStarted() {
	for _, o := range m.observers {
		o.PassStarted()
	}
}

func (m *MultiObserver) PassEnded(stats reactant.PassStats) {
	for _, o := range m.observers {
		o.PassEnded(stats)
	}
}

func (m *MultiObserver) EffectSkipped(id reactant.NodeID) {
	for _, o := range m.observers {
		o.EffectSkipped(id)
	}
}

func (m *MultiObserver) EffectRan(id reactant.NodeID, dur time.Duration, err error) {
	for _, o := range m.observers {
		o.EffectRan(id, dur, err)
	}
}

func (m *MultiObserver) BudgetExceeded(id reactant.NodeID) {
	for _, o := range m.observers {
		o.BudgetExceeded(id)
	}
}

var _ reactant.Observer = (*MultiObserver)(nil)
