package integrator

import (
	"fmt"

	"github.com/vram0gh/taylorize/internal/compiler"
	"github.com/vram0gh/taylorize/internal/problem"
	"github.com/vram0gh/taylorize/internal/taylor"
)

// Jet holds the Taylor expansions of the state and its derivative around
// the current time, each to the working order.
type Jet struct {
	T  *taylor.Series
	X  []*taylor.Series
	DX []*taylor.Series
}

func newJet(t0 float64, x0 []float64, order int) *Jet {
	j := &Jet{
		T:  taylor.Variable(t0, order),
		X:  make([]*taylor.Series, len(x0)),
		DX: make([]*taylor.Series, len(x0)),
	}
	for i, v := range x0 {
		j.X[i] = taylor.New(order)
		j.X[i].SetCoeff(0, v)
		j.DX[i] = taylor.New(order)
	}
	return j
}

func (j *Jet) reset(t0 float64, x0 []float64) {
	order := j.T.Order()
	j.T.Reset()
	j.T.SetCoeff(0, t0)
	if order >= 1 {
		j.T.SetCoeff(1, 1)
	}
	for i, v := range x0 {
		j.X[i].Reset()
		j.X[i].SetCoeff(0, v)
		j.DX[i].Reset()
	}
}

// ExpandAt computes the solution jet around a single point without
// stepping, reporting whether the compiled evaluator was used. Mainly a
// debugging aid: the coefficients are exactly what one integration step
// would build.
func ExpandAt(reg *Registry, p *problem.Problem, t0 float64, x0 []float64, order int, overrides map[string]float64, noSpecialize bool) (*Jet, bool, error) {
	if len(x0) != p.Dim {
		return nil, false, fmt.Errorf("expand %q: state has %d components, want %d", p.Name, len(x0), p.Dim)
	}
	if order < 1 {
		return nil, false, fmt.Errorf("expand %q: order must be at least 1, got %d", p.Name, order)
	}
	params, err := p.BindParams(overrides)
	if err != nil {
		return nil, false, err
	}

	j := newJet(t0, x0, order)
	if reg != nil && !noSpecialize {
		if spec, ok := reg.Lookup(p.Identity()); ok {
			ws, err := spec.Allocate(order, params)
			if err != nil {
				return nil, false, fmt.Errorf("expand %q: %w", p.Name, err)
			}
			if err := specializedJet(spec, ws, j); err != nil {
				return nil, false, fmt.Errorf("expand %q: %w", p.Name, err)
			}
			return j, true, nil
		}
	}
	gen, err := NewGeneric(p.Sig, p.Source, p.Dim)
	if err != nil {
		return nil, false, fmt.Errorf("expand %q: %w", p.Name, err)
	}
	if err := genericJet(gen, params, j); err != nil {
		return nil, false, fmt.Errorf("expand %q: %w", p.Name, err)
	}
	return j, false, nil
}

// specializedJet fills the jet with the compiled evaluator, one order at a
// time. After order k of dx is known, order k+1 of x follows from the ODE
// relation x[k+1] = dx[k]/(k+1).
func specializedJet(spec *compiler.Specialization, ws *compiler.Workspace, j *Jet) error {
	order := j.T.Order()
	for k := 0; k <= order; k++ {
		if err := spec.EvalOrder(k, j.T, j.X, j.DX, ws); err != nil {
			return err
		}
		if k < order {
			for i := range j.X {
				j.X[i].SetCoeff(k+1, j.DX[i].Coeff(k)/float64(k+1))
			}
		}
	}
	return nil
}

// genericJet fills the jet with the tree interpreter. Each round recomputes
// the whole derivative series from scratch, so only the newly valid order
// is harvested per round.
func genericJet(g *Generic, params map[string]float64, j *Jet) error {
	order := j.T.Order()
	for k := 0; k < order; k++ {
		dx, err := g.Derivatives(order, j.T, j.X, params)
		if err != nil {
			return err
		}
		for i := range j.X {
			j.X[i].SetCoeff(k+1, dx[i].Coeff(k)/float64(k+1))
		}
	}
	dx, err := g.Derivatives(order, j.T, j.X, params)
	if err != nil {
		return err
	}
	for i := range j.X {
		j.DX[i].CopyFrom(dx[i])
	}
	return nil
}
