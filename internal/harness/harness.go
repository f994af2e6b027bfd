package harness

import (
	"context"
	"fmt"

	"github.com/vram0gh/taylorize/internal/integrator"
	"github.com/vram0gh/taylorize/internal/problem"
)

// Result is the outcome of a scenario execution. Compiled is nil when the
// scenario is generic-only or compilation was rejected.
type Result struct {
	Pass        bool
	Errors      []string
	Compiled    *integrator.Result
	Interpreted *integrator.Result
	CompileErr  error
}

// AddError records a failure message and marks the result failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run executes a scenario: load the problem, integrate it with both
// evaluators, then apply the assertions. The interpreted run always
// happens; it is the reference the compiled run is judged against.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	problems, err := problem.LoadFile(scenario.Problems)
	if err != nil {
		return nil, err
	}
	var p *problem.Problem
	for _, cand := range problems {
		if cand.Name == scenario.Problem {
			p = cand
			break
		}
	}
	if p == nil {
		return nil, fmt.Errorf("problem %q not found in %s", scenario.Problem, scenario.Problems)
	}
	if len(scenario.X0) != p.Dim {
		return nil, fmt.Errorf("scenario %s: x0 has %d components, problem %q wants %d",
			scenario.Name, len(scenario.X0), p.Name, p.Dim)
	}

	opts := integrator.Options{
		Order:    scenario.Order,
		AbsTol:   scenario.AbsTol,
		MaxSteps: scenario.MaxSteps,
		Params:   scenario.Params,
	}

	result := &Result{Pass: true}

	genericOpts := opts
	genericOpts.NoSpecialize = true
	result.Interpreted, err = integrator.Solve(ctx, nil, p, scenario.T0, scenario.T1, scenario.X0, genericOpts)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: interpreted run: %w", scenario.Name, err)
	}

	if !scenario.GenericOnly {
		reg := integrator.NewRegistry()
		if _, err := reg.Specialize(p.Sig, p.Source, p.Dim); err != nil {
			result.CompileErr = err
			result.AddError("specialization failed: %v", err)
		} else {
			result.Compiled, err = integrator.Solve(ctx, reg, p, scenario.T0, scenario.T1, scenario.X0, opts)
			if err != nil {
				return nil, fmt.Errorf("scenario %s: compiled run: %w", scenario.Name, err)
			}
			if !result.Compiled.Specialized {
				result.AddError("compiled run fell back to the interpreter")
			}
		}
	}

	for i, assertion := range scenario.Assertions {
		if err := checkAssertion(scenario, p, result, assertion); err != nil {
			result.AddError("assertion %d (%s): %v", i, assertion.Type, err)
		}
	}
	return result, nil
}
