package diagnostics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/reactant-go/reactant/pkg/reactant"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestPromObserverRecordsPassStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPromObserver(WithRegistry(reg))

	obs.PassStarted()
	obs.PassEnded(reactant.PassStats{EffectsRun: 2, EffectsSkipped: 1, Duration: 5 * time.Millisecond})

	if v := counterValue(t, obs.passesTotal); v != 1 {
		t.Fatalf("passesTotal = %v, want 1", v)
	}
	if v := counterValue(t, obs.effectsRun); v != 2 {
		t.Fatalf("effectsRun = %v, want 2", v)
	}
	if v := counterValue(t, obs.effectsSkipped); v != 1 {
		t.Fatalf("effectsSkipped = %v, want 1", v)
	}
}

func TestPromObserverRecordsBudgetExceeded(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPromObserver(WithRegistry(reg))

	obs.BudgetExceeded(reactant.NodeID(7))

	v := counterValue(t, obs.runawayTotal.WithLabelValues("7"))
	if v != 1 {
		t.Fatalf("runawayTotal{node=7} = %v, want 1", v)
	}
}

func TestPromObserverLiveNodesGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPromObserver(WithRegistry(reg))

	obs.SetLiveNodes(42)
	if v := gaugeValue(t, obs.liveNodes); v != 42 {
		t.Fatalf("liveNodes = %v, want 42", v)
	}
}

func TestMultiObserverFansOutToEveryObserver(t *testing.T) {
	regA := prometheus.NewRegistry()
	regB := prometheus.NewRegistry()
	a := NewPromObserver(WithRegistry(regA))
	b := NewPromObserver(WithRegistry(regB))
	multi := NewMultiObserver(a, b)

	multi.PassStarted()
	multi.PassEnded(reactant.PassStats{EffectsRun: 1})

	if v := counterValue(t, a.passesTotal); v != 1 {
		t.Fatalf("a.passesTotal = %v, want 1", v)
	}
	if v := counterValue(t, b.passesTotal); v != 1 {
		t.Fatalf("b.passesTotal = %v, want 1", v)
	}
}

func TestMultiObserverSkipsNilEntries(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewPromObserver(WithRegistry(reg))
	multi := NewMultiObserver(a, nil)

	multi.PassStarted()
	multi.PassEnded(reactant.PassStats{})

	if v := counterValue(t, a.passesTotal); v != 1 {
		t.Fatalf("a.passesTotal = %v, want 1", v)
	}
}
