package taylor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Per-order updates filled incrementally must agree with the whole-series
// operations, and order k must depend only on inputs up to order k.
func TestIncrementalMatchesFull(t *testing.T) {
	const order = 9
	a := Exp(Variable(0.2, order))
	b := Add(Constant(1.5, order), Variable(0, order))

	type op struct {
		name string
		full func() *Series
		at   func(r *Series, k int)
	}
	ops := []op{
		{"add", func() *Series { return Add(a, b) }, func(r *Series, k int) { AddAt(r, a, b, k) }},
		{"sub", func() *Series { return Sub(a, b) }, func(r *Series, k int) { SubAt(r, a, b, k) }},
		{"mul", func() *Series { return Mul(a, b) }, func(r *Series, k int) { MulAt(r, a, b, k) }},
		{"div", func() *Series { return Div(a, b) }, func(r *Series, k int) { DivAt(r, a, b, k) }},
		{"neg", func() *Series { return Neg(a) }, func(r *Series, k int) { NegAt(r, a, k) }},
		{"exp", func() *Series { return Exp(a) }, func(r *Series, k int) { ExpAt(r, a, k) }},
		{"log", func() *Series { return Log(b) }, func(r *Series, k int) { LogAt(r, b, k) }},
		{"sqrt", func() *Series { return Sqrt(b) }, func(r *Series, k int) { SqrtAt(r, b, k) }},
		{"pow", func() *Series { return PowConst(b, -1.5) }, func(r *Series, k int) { PowConstAt(r, b, -1.5, k) }},
	}

	for _, tc := range ops {
		t.Run(tc.name, func(t *testing.T) {
			want := tc.full()
			got := New(order)
			for k := 0; k <= order; k++ {
				tc.at(got, k)
				// Orders above k must still be untouched.
				for j := k + 1; j <= order; j++ {
					assert.Zero(t, got.Coeff(j), "order %d written while filling %d", j, k)
				}
			}
			for k := 0; k <= order; k++ {
				assert.InDelta(t, want.Coeff(k), got.Coeff(k), 1e-13, "order %d", k)
			}
		})
	}
}

func TestSinCosAtIncremental(t *testing.T) {
	const order = 9
	a := Add(Constant(0.6, order), Variable(0, order))
	wantS, wantC := SinCos(a)

	s, c := New(order), New(order)
	for k := 0; k <= order; k++ {
		SinCosAt(s, c, a, k)
	}
	for k := 0; k <= order; k++ {
		assert.InDelta(t, wantS.Coeff(k), s.Coeff(k), 1e-14, "sin order %d", k)
		assert.InDelta(t, wantC.Coeff(k), c.Coeff(k), 1e-14, "cos order %d", k)
	}

	sh, ch := New(order), New(order)
	wantSh, wantCh := SinhCosh(a)
	for k := 0; k <= order; k++ {
		SinhCoshAt(sh, ch, a, k)
	}
	for k := 0; k <= order; k++ {
		assert.InDelta(t, wantSh.Coeff(k), sh.Coeff(k), 1e-14, "sinh order %d", k)
		assert.InDelta(t, wantCh.Coeff(k), ch.Coeff(k), 1e-14, "cosh order %d", k)
	}
}

func TestExtensionRegistry(t *testing.T) {
	name := "testunit_cube"
	RegisterExtension(name, func(r, a *Series, k int) {
		// r = a^3 via two Cauchy products held in scratch series.
		sq := New(a.Order())
		for j := 0; j <= k; j++ {
			MulAt(sq, a, a, j)
		}
		cube := New(a.Order())
		for j := 0; j <= k; j++ {
			MulAt(cube, sq, a, j)
		}
		r.SetCoeff(k, cube.Coeff(k))
	})

	fn, ok := LookupExtension(name)
	assert.True(t, ok)
	a := Variable(2, 4)
	r := New(4)
	for k := 0; k <= 4; k++ {
		fn(r, a, k)
	}
	want := Mul(Mul(a, a), a)
	for k := 0; k <= 4; k++ {
		assert.InDelta(t, want.Coeff(k), r.Coeff(k), 1e-13, "order %d", k)
	}

	assert.Contains(t, Extensions(), name)
	assert.Panics(t, func() { RegisterExtension(name, fn) })

	_, ok = LookupExtension("no_such_function")
	assert.False(t, ok)
}
