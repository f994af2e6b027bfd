// Package store persists integration run traces in SQLite: one row per
// run with its full input (problem name, right-hand-side identity,
// initial condition, parameters, settings) and one row per accepted step.
// A stored run carries everything needed to reproduce it, which is what
// Replay exploits.
package store
