// Package harness runs YAML-defined integration scenarios: each scenario
// names a problem file, an initial condition, and a time span, then
// integrates it twice (compiled and interpreted) and checks assertions
// against the resulting traces. Golden-file comparison of the trace is
// available for regression pinning.
package harness
