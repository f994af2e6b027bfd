package integrator

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vram0gh/taylorize/internal/ir"
	"github.com/vram0gh/taylorize/internal/problem"
	"github.com/vram0gh/taylorize/internal/taylor"
	"github.com/vram0gh/taylorize/internal/testutil"
)

func testProblem(name string, params map[string]float64, source string, dim int) *problem.Problem {
	var names []string
	for k := range params {
		names = append(names, k)
	}
	return &problem.Problem{
		Name:   name,
		Sig:    ir.DefaultSignature(names),
		Dim:    dim,
		Source: source,
		Params: params,
	}
}

func TestSolveExponential(t *testing.T) {
	p := testProblem("exp", nil, "dx[1] = x[1]", 1)
	res, err := Solve(context.Background(), nil, p, 0, 1, []float64{1}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.T)
	assert.False(t, res.Specialized)
	assert.InDelta(t, math.E, res.State[0], 1e-8)
}

func TestSolveSpecializedMatchesGeneric(t *testing.T) {
	p := testProblem("pendulum", nil, "dx[1] = x[2]\ndx[2] = -sin(x[1])", 2)
	x0 := []float64{1.2, 0}

	reg := NewRegistry()
	_, err := reg.Specialize(p.Sig, p.Source, p.Dim)
	require.NoError(t, err)

	fast, err := Solve(context.Background(), reg, p, 0, 2, x0, Options{Order: 25})
	require.NoError(t, err)
	slow, err := Solve(context.Background(), reg, p, 0, 2, x0, Options{Order: 25, NoSpecialize: true})
	require.NoError(t, err)

	assert.True(t, fast.Specialized)
	assert.False(t, slow.Specialized)
	assert.Equal(t, 2.0, fast.T)
	assert.Equal(t, 2.0, slow.T)
	testutil.StatesApprox(t, slow.State, fast.State, 1e-9)
}

func TestSolveEnergyConserved(t *testing.T) {
	p := testProblem("sho", nil, "dx[1] = x[2]\ndx[2] = -x[1]", 2)
	res, err := Solve(context.Background(), nil, p, 0, 3, []float64{1, 0}, Options{})
	require.NoError(t, err)

	energy := res.State[0]*res.State[0] + res.State[1]*res.State[1]
	assert.InDelta(t, 1.0, energy, 1e-8)
}

func TestSolveBackward(t *testing.T) {
	p := testProblem("exp", nil, "dx[1] = x[1]", 1)
	res, err := Solve(context.Background(), nil, p, 1, 0, []float64{math.E}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.T)
	assert.InDelta(t, 1.0, res.State[0], 1e-8)
}

func TestSolvePolynomialInOneStep(t *testing.T) {
	// A constant derivative has a finite expansion: the step heuristic sees
	// vanishing top coefficients and the clamp closes the span directly.
	p := testProblem("drift", map[string]float64{"a": 0.5}, "dx[1] = a", 1)
	res, err := Solve(context.Background(), nil, p, 0, 2, []float64{1}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Steps)
	assert.Equal(t, 2.0, res.T)
	assert.Equal(t, 2.0, res.State[0])
}

func TestSolveParamOverride(t *testing.T) {
	p := testProblem("scaled", map[string]float64{"a": 1}, "dx[1] = a * x[1]", 1)

	res, err := Solve(context.Background(), nil, p, 0, 1, []float64{1}, Options{
		Params: map[string]float64{"a": 2},
	})
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(2), res.State[0], 1e-7)

	_, err = Solve(context.Background(), nil, p, 0, 1, []float64{1}, Options{
		Params: map[string]float64{"zz": 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared parameter")
}

func TestSolveSampleTrail(t *testing.T) {
	p := testProblem("pendulum", nil, "dx[1] = x[2]\ndx[2] = -sin(x[1])", 2)
	res, err := Solve(context.Background(), nil, p, 0, 1, []float64{0.5, 0}, Options{})
	require.NoError(t, err)

	require.Len(t, res.Samples, res.Steps+1)
	assert.Equal(t, 0, res.Samples[0].Step)
	assert.Equal(t, 0.0, res.Samples[0].T)
	assert.Equal(t, []float64{0.5, 0}, res.Samples[0].State)

	last := res.Samples[len(res.Samples)-1]
	assert.Equal(t, res.Steps, last.Step)
	assert.Equal(t, 1.0, last.T)
	assert.Equal(t, res.State, last.State)

	for i := 1; i < len(res.Samples); i++ {
		assert.Greater(t, res.Samples[i].T, res.Samples[i-1].T)
	}
}

func TestSolveMaxStepsStopsEarly(t *testing.T) {
	p := testProblem("pendulum", nil, "dx[1] = x[2]\ndx[2] = -sin(x[1])", 2)
	res, err := Solve(context.Background(), nil, p, 0, 50, []float64{1, 0}, Options{MaxSteps: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Steps)
	assert.Less(t, res.T, 50.0)
}

func TestSolveCancelledContext(t *testing.T) {
	p := testProblem("exp", nil, "dx[1] = x[1]", 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Solve(ctx, nil, p, 0, 1, []float64{1}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interrupted")
}

func TestSolveArgumentValidation(t *testing.T) {
	p := testProblem("exp", nil, "dx[1] = x[1]", 1)

	_, err := Solve(context.Background(), nil, p, 0, 1, []float64{1, 2}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 1")

	_, err = Solve(context.Background(), nil, p, 0, 1, []float64{1}, Options{Order: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order must be at least 2")

	_, err = Solve(context.Background(), nil, p, 0, 1, []float64{1}, Options{AbsTol: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abstol must be positive")
}

func TestSolveProblemDefaultsApply(t *testing.T) {
	p := testProblem("exp", nil, "dx[1] = x[1]", 1)
	p.Order = 12
	p.AbsTol = 1e-6

	res, err := Solve(context.Background(), nil, p, 0, 1, []float64{1}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 12, res.Order)
	assert.Equal(t, 1e-6, res.AbsTol)

	res, err = Solve(context.Background(), nil, p, 0, 1, []float64{1}, Options{Order: 8, AbsTol: 1e-12})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Order)
	assert.Equal(t, 1e-12, res.AbsTol)
}

func TestStepSizeUsesTopOrders(t *testing.T) {
	// Only the two highest orders participate. With the next-to-top
	// coefficient zero, h = (abstol / |c_n|)^(1/n).
	s := testutil.Poly(5, 3, 0, 0, 1e-10)
	h := stepSize([]*taylor.Series{s}, 1e-10)
	assert.InDelta(t, 1.0, h, 1e-12)

	// Both top coefficients contribute; the smaller step wins.
	s2 := testutil.Poly(5, 3, 0, 1e-2, 1e-10)
	h2 := stepSize([]*taylor.Series{s2}, 1e-10)
	assert.InDelta(t, math.Pow(1e-8, 1.0/3.0), h2, 1e-12)

	// A finite expansion pushes the step to infinity; Solve clamps it to
	// the remaining span.
	flat := testutil.Poly(5, 3, 0, 0, 0)
	assert.True(t, math.IsInf(stepSize([]*taylor.Series{flat}, 1e-10), 1))
}
