// Package diagnostics provides reactant.Observer implementations that
// export propagation-pass activity to OpenTelemetry and Prometheus. The
// reactive core itself has no dependency on either library; a Runtime only
// needs something satisfying reactant.Observer, and this package is where
// that something lives.
package diagnostics
