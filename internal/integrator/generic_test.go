package integrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vram0gh/taylorize/internal/compiler"
	"github.com/vram0gh/taylorize/internal/ir"
	"github.com/vram0gh/taylorize/internal/taylor"
	"github.com/vram0gh/taylorize/internal/testutil"
)

func TestGenericMatchesCompiledEvaluator(t *testing.T) {
	const order = 10
	sig := ir.DefaultSignature([]string{"mu"})
	source := `
		r2 = x[1] * x[1] + x[2] * x[2]
		r = sqrt(r2)
		s = sin(x[1])
		u = mu / r
		dx[1] = s * u
		dx[2] = x[2] - u
	`
	params := map[string]float64{"mu": 1.25}

	x1 := testutil.Poly(2, 0.5, -0.25, 0.1, 0.3, -0.05, 0.2, 0.1, -0.4, 0.15, 0.05)
	x2 := testutil.Poly(1, -0.5, 0.75, 0.2, -0.1, 0.05, -0.3, 0.25, 0.1, -0.05, 0.35)
	x := []*taylor.Series{x1, x2}
	tser := taylor.Variable(0.5, order)

	gen, err := NewGeneric(sig, source, 2)
	require.NoError(t, err)
	want, err := gen.Derivatives(order, tser, x, params)
	require.NoError(t, err)

	spec, err := compiler.Compile(sig, source, 2)
	require.NoError(t, err)
	ws, err := spec.Allocate(order, params)
	require.NoError(t, err)
	got := []*taylor.Series{taylor.New(order), taylor.New(order)}
	for k := 0; k <= order; k++ {
		require.NoError(t, spec.EvalOrder(k, tser, x, got, ws))
	}

	testutil.SeriesApprox(t, want[0], got[0], 1e-12)
	testutil.SeriesApprox(t, want[1], got[1], 1e-12)
}

func TestGenericAcceptsReassignment(t *testing.T) {
	// The interpreter takes a superset of the compilable subset: local
	// reassignment is fine here even though specialization rejects it.
	sig := ir.DefaultSignature(nil)
	source := "v = x[1]\nv = v * 2\ndx[1] = v"

	_, err := compiler.Compile(sig, source, 1)
	require.Error(t, err)

	gen, err := NewGeneric(sig, source, 1)
	require.NoError(t, err)
	x := testutil.Poly(3, 1, 0.5)
	dx, err := gen.Derivatives(2, taylor.Variable(0, 2), []*taylor.Series{x}, nil)
	require.NoError(t, err)
	testutil.SeriesApprox(t, testutil.Poly(6, 2, 1), dx[0], 0)
}

func TestGenericAcceptsMismatchedBranches(t *testing.T) {
	sig := ir.DefaultSignature(nil)
	source := `
		if x[1] < 0 {
			v = 1.0
			dx[1] = v
		} else {
			dx[1] = x[1]
		}
	`
	_, err := compiler.Compile(sig, source, 1)
	require.Error(t, err)

	gen, err := NewGeneric(sig, source, 1)
	require.NoError(t, err)

	pos := testutil.Poly(2, 1)
	dx, err := gen.Derivatives(1, taylor.Variable(0, 1), []*taylor.Series{pos}, nil)
	require.NoError(t, err)
	testutil.SeriesApprox(t, pos, dx[0], 0)

	neg := testutil.Poly(-2, 1)
	dx, err = gen.Derivatives(1, taylor.Variable(0, 1), []*taylor.Series{neg}, nil)
	require.NoError(t, err)
	testutil.SeriesApprox(t, testutil.Poly(1, 0), dx[0], 0)
}

func TestGenericArraysAndLoops(t *testing.T) {
	gen, err := NewGeneric(ir.DefaultSignature([]string{"n"}), `
		array v[n]
		for i in 1:n {
			v[i] = x[1] * i
		}
		dx[1] = v[3]
	`, 1)
	require.NoError(t, err)

	x := testutil.Poly(1, 1)
	dx, err := gen.Derivatives(1, taylor.Variable(0, 1), []*taylor.Series{x}, map[string]float64{"n": 3})
	require.NoError(t, err)
	testutil.SeriesApprox(t, testutil.Poly(3, 3), dx[0], 0)
}

func TestGenericEvaluationErrors(t *testing.T) {
	eval := func(source string) error {
		gen, err := NewGeneric(ir.DefaultSignature(nil), source, 1)
		require.NoError(t, err)
		x := testutil.Poly(1, 0)
		_, err = gen.Derivatives(1, taylor.Variable(0, 1), []*taylor.Series{x}, nil)
		return err
	}

	err := eval("dx[1] = x[2]")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside 1..1")

	err = eval("dx[1] = q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `undefined name "q"`)

	err = eval("dx[1] = integratortest_nope(x[1])")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no registered extension")

	err = eval("dx[2] = x[1]")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside 1..1")
}

func TestGenericRejectsBadDim(t *testing.T) {
	_, err := NewGeneric(ir.DefaultSignature(nil), "dx[1] = x[1]", 0)
	require.Error(t, err)

	gen, err := NewGeneric(ir.DefaultSignature(nil), "dx[1] = x[1]", 2)
	require.NoError(t, err)
	_, err = gen.Derivatives(1, taylor.Variable(0, 1), []*taylor.Series{testutil.Poly(1, 0)}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want dim 2")
}

func TestExpandAtPrefersSpecialization(t *testing.T) {
	p := testProblem("pendulum", nil, "dx[1] = x[2]\ndx[2] = -sin(x[1])", 2)
	reg := NewRegistry()
	_, err := reg.Specialize(p.Sig, p.Source, p.Dim)
	require.NoError(t, err)

	fast, used, err := ExpandAt(reg, p, 0, []float64{1, 0}, 8, nil, false)
	require.NoError(t, err)
	assert.True(t, used)

	slow, used, err := ExpandAt(reg, p, 0, []float64{1, 0}, 8, nil, true)
	require.NoError(t, err)
	assert.False(t, used)

	for i := range fast.X {
		testutil.SeriesApprox(t, slow.X[i], fast.X[i], 1e-13)
		testutil.SeriesApprox(t, slow.DX[i], fast.DX[i], 1e-13)
	}
}

func TestExpandAtValidation(t *testing.T) {
	p := testProblem("exp", nil, "dx[1] = x[1]", 1)

	_, _, err := ExpandAt(nil, p, 0, []float64{1, 2}, 4, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 1")

	_, _, err = ExpandAt(nil, p, 0, []float64{1}, 0, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order must be at least 1")
}
