// Package integrator drives Taylor-method integration of ODE problems,
// preferring a compiled specialization of the right-hand side and falling
// back to the generic tree interpreter when none is registered or the
// caller opts out.
package integrator

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/vram0gh/taylorize/internal/compiler"
	"github.com/vram0gh/taylorize/internal/problem"
	"github.com/vram0gh/taylorize/internal/taylor"
)

// Defaults applied when neither the options nor the problem file set a
// value.
const (
	DefaultOrder    = 20
	DefaultAbsTol   = 1e-10
	DefaultMaxSteps = 500
)

// Options tunes a single Solve call.
type Options struct {
	// Order is the Taylor expansion order. Zero means use the problem
	// default, or DefaultOrder.
	Order int

	// AbsTol drives step-size selection. Zero means use the problem
	// default, or DefaultAbsTol.
	AbsTol float64

	// MaxSteps bounds the number of accepted steps. Zero means
	// DefaultMaxSteps.
	MaxSteps int

	// Params overrides individual problem parameter defaults.
	Params map[string]float64

	// NoSpecialize forces the generic evaluator even when a compiled
	// specialization is registered for this right-hand side.
	NoSpecialize bool

	// Logger receives per-solve diagnostics. Nil means slog.Default.
	Logger *slog.Logger
}

// Sample is the state recorded after one accepted step.
type Sample struct {
	Step  int       `json:"step"`
	T     float64   `json:"t"`
	State []float64 `json:"state"`
}

// Result is the outcome of a Solve call. Samples[0] is the initial
// condition; the last sample sits at the final time unless MaxSteps was
// exhausted first.
type Result struct {
	Problem     string    `json:"problem"`
	Key         string    `json:"key"`
	Specialized bool      `json:"specialized"`
	Order       int       `json:"order"`
	AbsTol      float64   `json:"abstol"`
	Steps       int       `json:"steps"`
	T           float64   `json:"t"`
	State       []float64 `json:"state"`
	Samples     []Sample  `json:"samples"`
}

// Solve integrates the problem from x0 at t0 to t1. Direction follows the
// sign of t1-t0. The registry decides whether steps run the compiled
// evaluator; a nil registry always interprets.
func Solve(ctx context.Context, reg *Registry, p *problem.Problem, t0, t1 float64, x0 []float64, opts Options) (*Result, error) {
	if len(x0) != p.Dim {
		return nil, fmt.Errorf("solve %q: initial state has %d components, want %d", p.Name, len(x0), p.Dim)
	}

	order := opts.Order
	if order == 0 {
		order = p.Order
	}
	if order == 0 {
		order = DefaultOrder
	}
	if order < 2 {
		return nil, fmt.Errorf("solve %q: order must be at least 2, got %d", p.Name, order)
	}
	abstol := opts.AbsTol
	if abstol == 0 {
		abstol = p.AbsTol
	}
	if abstol == 0 {
		abstol = DefaultAbsTol
	}
	if abstol <= 0 || math.IsNaN(abstol) {
		return nil, fmt.Errorf("solve %q: abstol must be positive, got %g", p.Name, abstol)
	}
	maxSteps := opts.MaxSteps
	if maxSteps == 0 {
		maxSteps = DefaultMaxSteps
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	params, err := p.BindParams(opts.Params)
	if err != nil {
		return nil, err
	}

	key := p.Identity()
	var spec *compiler.Specialization
	var ws *compiler.Workspace
	if reg != nil && !opts.NoSpecialize {
		if s, ok := reg.Lookup(key); ok {
			w, err := s.Allocate(order, params)
			if err != nil {
				return nil, fmt.Errorf("solve %q: %w", p.Name, err)
			}
			spec, ws = s, w
		}
	}
	var gen *Generic
	if spec == nil {
		g, err := NewGeneric(p.Sig, p.Source, p.Dim)
		if err != nil {
			return nil, fmt.Errorf("solve %q: %w", p.Name, err)
		}
		gen = g
	}
	logger.Debug("solve start",
		"problem", p.Name,
		"key", key,
		"specialized", spec != nil,
		"order", order,
		"abstol", abstol)

	res := &Result{
		Problem:     p.Name,
		Key:         key,
		Specialized: spec != nil,
		Order:       order,
		AbsTol:      abstol,
		T:           t0,
		State:       append([]float64(nil), x0...),
	}
	res.Samples = append(res.Samples, Sample{Step: 0, T: t0, State: append([]float64(nil), x0...)})

	dir := 1.0
	if t1 < t0 {
		dir = -1.0
	}
	t := t0
	x := append([]float64(nil), x0...)
	j := newJet(t, x, order)

	for step := 1; t != t1; step++ {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("solve %q interrupted at t=%g: %w", p.Name, t, err)
		}
		if step > maxSteps {
			logger.Warn("max steps reached", "problem", p.Name, "t", t, "steps", maxSteps)
			return res, nil
		}

		j.reset(t, x)
		if spec != nil {
			err = specializedJet(spec, ws, j)
		} else {
			err = genericJet(gen, params, j)
		}
		if err != nil {
			return res, fmt.Errorf("solve %q at t=%g: %w", p.Name, t, err)
		}

		h := stepSize(j.X, abstol)
		if h <= 0 || math.IsNaN(h) {
			return res, fmt.Errorf("solve %q at t=%g: step size underflow", p.Name, t)
		}
		if remaining := math.Abs(t1 - t); h >= remaining {
			h = remaining
			t = t1
		} else {
			t += dir * h
		}
		for i := range x {
			x[i] = j.X[i].Eval(dir * h)
		}

		res.Steps = step
		res.T = t
		res.State = append(res.State[:0], x...)
		res.Samples = append(res.Samples, Sample{Step: step, T: t, State: append([]float64(nil), x...)})
	}
	logger.Debug("solve done", "problem", p.Name, "t", t, "steps", res.Steps)
	return res, nil
}

// stepSize picks the largest step consistent with the tolerance, using the
// two highest retained orders: h = min over k in {n-1, n} of
// (abstol / max_i |x_i[k]|)^(1/k). Vanishing top coefficients push the
// step toward infinity, which the caller clamps to the remaining span.
func stepSize(x []*taylor.Series, abstol float64) float64 {
	if len(x) == 0 {
		return math.Inf(1)
	}
	order := x[0].Order()
	h := math.Inf(1)
	for k := order - 1; k <= order; k++ {
		norm := 0.0
		for _, xi := range x {
			if c := math.Abs(xi.Coeff(k)); c > norm {
				norm = c
			}
		}
		if norm > 0 {
			if hk := math.Pow(abstol/norm, 1/float64(k)); hk < h {
				h = hk
			}
		}
	}
	return h
}
