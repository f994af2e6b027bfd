package harness

import (
	"fmt"
	"math"

	"github.com/vram0gh/taylorize/internal/integrator"
	"github.com/vram0gh/taylorize/internal/problem"
	"github.com/vram0gh/taylorize/internal/taylor"
)

// defaultTolerance applies when an assertion does not set one.
const defaultTolerance = 1e-8

func checkAssertion(scenario *Scenario, p *problem.Problem, result *Result, a Assertion) error {
	primary := result.Compiled
	if primary == nil {
		primary = result.Interpreted
	}
	tol := a.Tolerance
	if tol == 0 {
		tol = defaultTolerance
	}

	switch a.Type {
	case AssertFinalState:
		if len(a.State) != len(primary.State) {
			return fmt.Errorf("expected %d components, run has %d", len(a.State), len(primary.State))
		}
		for i := range a.State {
			if d := math.Abs(primary.State[i] - a.State[i]); d > tol || math.IsNaN(d) {
				return fmt.Errorf("state[%d] = %v, want %v (|diff| %.3e > %.3e)",
					i+1, primary.State[i], a.State[i], d, tol)
			}
		}
		return nil

	case AssertFinalTime:
		if primary.T != scenario.T1 {
			return fmt.Errorf("stopped at t = %v, want %v (after %d steps)", primary.T, scenario.T1, primary.Steps)
		}
		return nil

	case AssertAgreement:
		if result.Compiled == nil {
			return fmt.Errorf("no compiled run to compare")
		}
		c, g := result.Compiled, result.Interpreted
		if c.T != g.T {
			return fmt.Errorf("runs stopped at different times: %v vs %v", c.T, g.T)
		}
		for i := range c.State {
			if d := math.Abs(c.State[i] - g.State[i]); d > tol || math.IsNaN(d) {
				return fmt.Errorf("final state[%d] disagrees: compiled %v, interpreted %v (|diff| %.3e > %.3e)",
					i+1, c.State[i], g.State[i], d, tol)
			}
		}
		return nil

	case AssertStepCount:
		if primary.Steps < a.Min {
			return fmt.Errorf("took %d steps, want at least %d", primary.Steps, a.Min)
		}
		if a.Max > 0 && primary.Steps > a.Max {
			return fmt.Errorf("took %d steps, want at most %d", primary.Steps, a.Max)
		}
		return nil

	case AssertConserved:
		return checkConserved(p, primary, a.Expr, tol, scenario.Params)

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// checkConserved evaluates a scalar expression on every sample and checks
// that it never drifts from its initial value by more than the tolerance.
// The expression is interpreted with the same evaluator used for
// right-hand sides, so it has access to the state, time, and parameters.
func checkConserved(p *problem.Problem, run *integrator.Result, expr string, tol float64, overrides map[string]float64) error {
	gen, err := integrator.NewGeneric(p.Sig, fmt.Sprintf("%s[1] = %s", p.Sig.Output, expr), p.Dim)
	if err != nil {
		return fmt.Errorf("parsing expr: %w", err)
	}
	params, err := p.BindParams(overrides)
	if err != nil {
		return err
	}

	eval := func(sm integrator.Sample) (float64, error) {
		t := taylor.Constant(sm.T, 0)
		x := make([]*taylor.Series, len(sm.State))
		for i, v := range sm.State {
			x[i] = taylor.Constant(v, 0)
		}
		dx, err := gen.Derivatives(0, t, x, params)
		if err != nil {
			return 0, err
		}
		return dx[0].Coeff(0), nil
	}

	if len(run.Samples) == 0 {
		return fmt.Errorf("run has no samples")
	}
	v0, err := eval(run.Samples[0])
	if err != nil {
		return err
	}
	for _, sm := range run.Samples[1:] {
		v, err := eval(sm)
		if err != nil {
			return err
		}
		if d := math.Abs(v - v0); d > tol || math.IsNaN(d) {
			return fmt.Errorf("drifted to %v at t = %v, initial %v (|diff| %.3e > %.3e)", v, sm.T, v0, d, tol)
		}
	}
	return nil
}
