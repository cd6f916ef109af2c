package reactant

// DebugConfig controls debug-level logging for a Runtime. All three flags
// are off by default; enabling one adds a log line on every propagation
// pass, effect skip or effect run, which matters on a hot path, so leave them off
// outside development. Prefetch-mode and effect-time-write-enforcement
// flags belong to a rendering pipeline's prefetch/routing feature, which
// is out of scope for this core (see DESIGN.md).
type DebugConfig struct {
	// LogPropagation logs the start and abort of propagation passes.
	LogPropagation bool
	// LogEffectSkips logs every effect the scheduler reconciles and
	// decides not to run.
	LogEffectSkips bool
	// LogEffectRuns logs every effect run along with its duration.
	LogEffectRuns bool
}

// DefaultDebugConfig returns a DebugConfig with all logging disabled.
func DefaultDebugConfig() DebugConfig {
	return DebugConfig{}
}
