package harness

import (
	"context"
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/vram0gh/taylorize/internal/integrator"
	"github.com/vram0gh/taylorize/internal/ir"
)

// snapshot flattens a run into canonical-JSON-friendly values. Floats are
// rendered as shortest round-trip strings since the canonical encoder
// refuses raw floats.
func snapshot(scenarioName string, run *integrator.Result) map[string]any {
	trace := make([]any, len(run.Samples))
	for i, sm := range run.Samples {
		state := make([]string, len(sm.State))
		for j, v := range sm.State {
			state[j] = strconv.FormatFloat(v, 'e', -1, 64)
		}
		trace[i] = map[string]any{
			"step":  sm.Step,
			"t":     strconv.FormatFloat(sm.T, 'e', -1, 64),
			"state": state,
		}
	}
	return map[string]any{
		"scenario":    scenarioName,
		"key":         run.Key,
		"specialized": run.Specialized,
		"order":       run.Order,
		"steps":       run.Steps,
		"trace":       trace,
	}
}

// RunWithGolden executes a scenario and compares the primary run's trace
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	primary := result.Compiled
	if primary == nil {
		primary = result.Interpreted
	}
	if err := AssertGolden(t, scenario.Name, primary); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already-computed run against a golden file.
func AssertGolden(t *testing.T, name string, run *integrator.Result) error {
	t.Helper()

	traceJSON, err := ir.MarshalCanonical(snapshot(name, run))
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)
	return nil
}
