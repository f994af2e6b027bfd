package taylor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantAndVariable(t *testing.T) {
	c := Constant(3.5, 4)
	assert.Equal(t, 4, c.Order())
	assert.Equal(t, 3.5, c.Coeff(0))
	for k := 1; k <= 4; k++ {
		assert.Zero(t, c.Coeff(k))
	}

	v := Variable(2.0, 4)
	assert.Equal(t, 2.0, v.Coeff(0))
	assert.Equal(t, 1.0, v.Coeff(1))
	assert.Zero(t, v.Coeff(2))
}

func TestCoeffOutOfRange(t *testing.T) {
	s := Constant(1, 2)
	assert.Zero(t, s.Coeff(3))
	assert.Zero(t, s.Coeff(-1))

	// Writes beyond the order are dropped, not grown.
	s.SetCoeff(10, 7)
	assert.Equal(t, 2, s.Order())
	assert.Zero(t, s.Coeff(10))
}

func TestEvalHorner(t *testing.T) {
	// 1 + 2h + 3h^2 at h = 0.5
	s := New(2)
	s.SetCoeff(0, 1)
	s.SetCoeff(1, 2)
	s.SetCoeff(2, 3)
	assert.InDelta(t, 1+2*0.5+3*0.25, s.Eval(0.5), 1e-15)
	assert.Equal(t, 1.0, s.Eval(0))
}

func TestCopyFromAndReset(t *testing.T) {
	a := Variable(1, 3)
	b := New(3)
	b.CopyFrom(a)
	require.Equal(t, a.Coeffs(), b.Coeffs())

	b.Reset()
	for k := 0; k <= 3; k++ {
		assert.Zero(t, b.Coeff(k))
	}
	// The source is unaffected.
	assert.Equal(t, 1.0, a.Coeff(0))
}

func TestExpOfVariable(t *testing.T) {
	// exp(t) around 0 has coefficients 1/k!.
	e := Exp(Variable(0, 8))
	fact := 1.0
	for k := 0; k <= 8; k++ {
		if k > 0 {
			fact *= float64(k)
		}
		assert.InDelta(t, 1/fact, e.Coeff(k), 1e-15, "order %d", k)
	}
}

func TestLogOfOnePlusT(t *testing.T) {
	// log(1+t) has coefficients (-1)^(k+1)/k for k >= 1.
	a := Variable(1, 8)
	l := Log(a)
	assert.Zero(t, l.Coeff(0))
	for k := 1; k <= 8; k++ {
		want := 1 / float64(k)
		if k%2 == 0 {
			want = -want
		}
		assert.InDelta(t, want, l.Coeff(k), 1e-15, "order %d", k)
	}
}

func TestSqrtSquaresBack(t *testing.T) {
	a := Variable(4, 10)
	r := Sqrt(a)
	assert.InDelta(t, 2.0, r.Coeff(0), 1e-15)
	back := Mul(r, r)
	for k := 0; k <= 10; k++ {
		assert.InDelta(t, a.Coeff(k), back.Coeff(k), 1e-12, "order %d", k)
	}
}

func TestDivRoundTrip(t *testing.T) {
	a := Exp(Variable(0.3, 10))
	b := Variable(2, 10)
	q := Div(a, b)
	back := Mul(q, b)
	for k := 0; k <= 10; k++ {
		assert.InDelta(t, a.Coeff(k), back.Coeff(k), 1e-12, "order %d", k)
	}
}

func TestPowConstBinomial(t *testing.T) {
	// (1+t)^2.5 has coefficients binomial(2.5, k).
	p := PowConst(Variable(1, 6), 2.5)
	want := 1.0
	for k := 0; k <= 6; k++ {
		if k > 0 {
			want *= (2.5 - float64(k-1)) / float64(k)
		}
		assert.InDelta(t, want, p.Coeff(k), 1e-14, "order %d", k)
	}
}

func TestPowConstMatchesRepeatedMul(t *testing.T) {
	a := Exp(Variable(0.1, 8))
	cube := PowConst(a, 3)
	byMul := Mul(Mul(a, a), a)
	for k := 0; k <= 8; k++ {
		assert.InDelta(t, byMul.Coeff(k), cube.Coeff(k), 1e-11, "order %d", k)
	}
}

func TestSinCosPythagoras(t *testing.T) {
	a := Variable(0.7, 12)
	s, c := SinCos(a)
	assert.InDelta(t, math.Sin(0.7), s.Coeff(0), 1e-15)
	assert.InDelta(t, math.Cos(0.7), c.Coeff(0), 1e-15)

	// sin^2 + cos^2 must be the constant series 1.
	sum := Add(Mul(s, s), Mul(c, c))
	assert.InDelta(t, 1.0, sum.Coeff(0), 1e-14)
	for k := 1; k <= 12; k++ {
		assert.InDelta(t, 0.0, sum.Coeff(k), 1e-13, "order %d", k)
	}
}

func TestSinhCoshIdentity(t *testing.T) {
	a := Variable(0.4, 12)
	s, c := SinhCosh(a)
	assert.InDelta(t, math.Sinh(0.4), s.Coeff(0), 1e-15)
	assert.InDelta(t, math.Cosh(0.4), c.Coeff(0), 1e-15)

	// cosh^2 - sinh^2 must be the constant series 1.
	diff := Sub(Mul(c, c), Mul(s, s))
	assert.InDelta(t, 1.0, diff.Coeff(0), 1e-14)
	for k := 1; k <= 12; k++ {
		assert.InDelta(t, 0.0, diff.Coeff(k), 1e-13, "order %d", k)
	}
}

func TestExpLogRoundTrip(t *testing.T) {
	a := Add(Constant(2, 10), Variable(0, 10)) // 2 + t
	back := Exp(Log(a))
	for k := 0; k <= 10; k++ {
		assert.InDelta(t, a.Coeff(k), back.Coeff(k), 1e-12, "order %d", k)
	}
}

func TestSqrtAtZeroPropagatesNaN(t *testing.T) {
	// Zeroth coefficient zero makes the recurrence divide by zero; IEEE
	// semantics carry the resulting Inf/NaN instead of panicking.
	r := Sqrt(Variable(0, 4))
	bad := false
	for k := 0; k <= 4; k++ {
		if math.IsNaN(r.Coeff(k)) || math.IsInf(r.Coeff(k), 0) {
			bad = true
		}
	}
	assert.True(t, bad)
}
