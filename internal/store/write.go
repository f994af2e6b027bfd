package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/vram0gh/taylorize/internal/integrator"
)

// Run is one persisted integration run. X0, Params, and StateFinal are
// stored as JSON text; encoding/json already emits map keys sorted, so
// equal inputs produce byte-equal rows.
type Run struct {
	ID          string
	Problem     string
	Key         string
	Specialized bool
	Order       int
	AbsTol      float64
	T0, T1      float64
	X0          []float64
	Params      map[string]float64
	Steps       int
	TFinal      float64
	StateFinal  []float64
	CreatedAt   string
}

// WriteResult persists a solve result together with the inputs that
// produced it, returning the new run ID. The result's samples are written
// in the same transaction, so a stored run always has its complete trace.
func (s *Store) WriteResult(ctx context.Context, res *integrator.Result, t0, t1 float64, x0 []float64, params map[string]float64) (string, error) {
	run := Run{
		ID:          uuid.NewString(),
		Problem:     res.Problem,
		Key:         res.Key,
		Specialized: res.Specialized,
		Order:       res.Order,
		AbsTol:      res.AbsTol,
		T0:          t0,
		T1:          t1,
		X0:          x0,
		Params:      params,
		Steps:       res.Steps,
		TFinal:      res.T,
		StateFinal:  res.State,
	}
	if err := s.writeRun(ctx, run, res.Samples); err != nil {
		return "", err
	}
	return run.ID, nil
}

func (s *Store) writeRun(ctx context.Context, run Run, samples []integrator.Sample) error {
	x0JSON, err := marshalFloats(run.X0)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	paramsJSON, err := marshalParams(run.Params)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	finalJSON, err := marshalFloats(run.StateFinal)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, problem, rhs_key, specialized, ord, abstol, t0, t1, x0, params, steps, t_final, state_final)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Problem,
		run.Key,
		run.Specialized,
		run.Order,
		run.AbsTol,
		run.T0,
		run.T1,
		x0JSON,
		paramsJSON,
		run.Steps,
		run.TFinal,
		finalJSON,
	)
	if err != nil {
		return fmt.Errorf("write run: insert: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (run_id, step, t, state) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write run: prepare samples: %w", err)
	}
	defer stmt.Close()
	for _, sm := range samples {
		stateJSON, err := marshalFloats(sm.State)
		if err != nil {
			return fmt.Errorf("write run: sample %d: %w", sm.Step, err)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, sm.Step, sm.T, stateJSON); err != nil {
			return fmt.Errorf("write run: sample %d: %w", sm.Step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

// DeleteRun removes a run and, through the foreign key cascade, its
// samples. Deleting an absent run is not an error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

func marshalFloats(v []float64) (string, error) {
	if v == nil {
		v = []float64{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func marshalParams(v map[string]float64) (string, error) {
	if v == nil {
		v = map[string]float64{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
