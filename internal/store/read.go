package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vram0gh/taylorize/internal/integrator"
)

// ErrNotFound reports a run ID with no stored row.
var ErrNotFound = errors.New("run not found")

const runColumns = `id, problem, rhs_key, specialized, ord, abstol, t0, t1, x0, params, steps, t_final, state_final, created_at`

// ReadRun returns one run by ID.
func (s *Store) ReadRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+` FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns runs for a problem name, newest first. An empty name
// lists every run. Ties on created_at break on id for a stable order.
func (s *Store) ListRuns(ctx context.Context, problemName string, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	args := []any{}
	if problemName != "" {
		query += ` WHERE problem = ?`
		args = append(args, problemName)
	}
	query += ` ORDER BY created_at DESC, id COLLATE BINARY DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ReadSamples returns a run's trace ordered by step.
func (s *Store) ReadSamples(ctx context.Context, runID string) ([]integrator.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, t, state FROM samples WHERE run_id = ? ORDER BY step ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	defer rows.Close()

	samples := []integrator.Sample{}
	for rows.Next() {
		var sm integrator.Sample
		var stateJSON string
		if err := rows.Scan(&sm.Step, &sm.T, &stateJSON); err != nil {
			return nil, fmt.Errorf("read samples: %w", err)
		}
		if err := json.Unmarshal([]byte(stateJSON), &sm.State); err != nil {
			return nil, fmt.Errorf("read samples: step %d state: %w", sm.Step, err)
		}
		samples = append(samples, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	return samples, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var x0JSON, paramsJSON, finalJSON string
	err := row.Scan(
		&run.ID,
		&run.Problem,
		&run.Key,
		&run.Specialized,
		&run.Order,
		&run.AbsTol,
		&run.T0,
		&run.T1,
		&x0JSON,
		&paramsJSON,
		&run.Steps,
		&run.TFinal,
		&finalJSON,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(x0JSON), &run.X0); err != nil {
		return nil, fmt.Errorf("x0: %w", err)
	}
	if err := json.Unmarshal([]byte(paramsJSON), &run.Params); err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	if err := json.Unmarshal([]byte(finalJSON), &run.StateFinal); err != nil {
		return nil, fmt.Errorf("state_final: %w", err)
	}
	return &run, nil
}
