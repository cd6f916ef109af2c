package reactant

import "time"

// Observer receives notifications from a Runtime's propagation passes. It is
// the seam pkg/diagnostics attaches OpenTelemetry tracing and Prometheus
// metrics to; reactant itself has no dependency in the other direction, so
// a caller that never constructs an Observer pays nothing for it.
type Observer interface {
	// PassStarted is called once at the beginning of a propagation pass.
	PassStarted()
	// PassEnded is called once a pass's Drain and Reclaim phases finish.
	PassEnded(stats PassStats)
	// EffectSkipped is called when the scheduler reconciles a pending
	// effect's sources and finds none changed, so run_fn is not invoked.
	EffectSkipped(id NodeID)
	// EffectRan is called after an effect's run_fn returns, successfully
	// or not.
	EffectRan(id NodeID, dur time.Duration, err error)
	// BudgetExceeded is called when a pass aborts with RunawayPropagation.
	BudgetExceeded(id NodeID)
}

// PassStats summarizes one propagation pass for an Observer.
type PassStats struct {
	EffectsRun     int
	EffectsSkipped int
	Duration       time.Duration
}
