package store

import (
	"context"
	"fmt"
	"math"

	"github.com/vram0gh/taylorize/internal/integrator"
	"github.com/vram0gh/taylorize/internal/problem"
)

// ReplayReport compares a stored run against a fresh integration of the
// same inputs.
type ReplayReport struct {
	RunID     string    `json:"run_id"`
	Problem   string    `json:"problem"`
	Match     bool      `json:"match"`
	Steps     int       `json:"steps"`
	StepsPrev int       `json:"steps_prev"`
	MaxDrift  float64   `json:"max_drift"`
	State     []float64 `json:"state"`
	StatePrev []float64 `json:"state_prev"`
}

// Replay re-integrates a stored run with the current evaluator and reports
// whether the final state still agrees. The caller supplies the problem
// definition; its identity must match the one recorded with the run, which
// catches replays against an edited right-hand side.
//
// Agreement is judged against the run's own tolerance: drift up to
// 100*abstol per component counts as a match, anything beyond is reported.
func (s *Store) Replay(ctx context.Context, reg *integrator.Registry, p *problem.Problem, runID string) (*ReplayReport, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if p.Name != run.Problem {
		return nil, fmt.Errorf("replay %s: stored run is for problem %q, got %q", runID, run.Problem, p.Name)
	}
	if key := p.Identity(); key != run.Key {
		return nil, fmt.Errorf("replay %s: right-hand side changed since the run was recorded (key %s, stored %s)", runID, key, run.Key)
	}

	res, err := integrator.Solve(ctx, reg, p, run.T0, run.T1, run.X0, integrator.Options{
		Order:        run.Order,
		AbsTol:       run.AbsTol,
		Params:       run.Params,
		NoSpecialize: !run.Specialized,
	})
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}

	report := &ReplayReport{
		RunID:     runID,
		Problem:   run.Problem,
		Steps:     res.Steps,
		StepsPrev: run.Steps,
		State:     res.State,
		StatePrev: run.StateFinal,
	}
	for i := range run.StateFinal {
		if d := math.Abs(res.State[i] - run.StateFinal[i]); d > report.MaxDrift {
			report.MaxDrift = d
		}
	}
	report.Match = res.Steps == run.Steps && report.MaxDrift <= 100*run.AbsTol
	return report, nil
}
