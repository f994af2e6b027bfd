package taylor

import (
	"fmt"
	"strings"
)

// Series is a truncated power series in one expansion variable.
// Coefficient k is the k-th Taylor coefficient (derivative/k!).
type Series struct {
	c []float64
}

// New returns a zero series of the given maximum order.
// Order must be non-negative.
func New(order int) *Series {
	if order < 0 {
		panic(fmt.Sprintf("taylor: negative order %d", order))
	}
	return &Series{c: make([]float64, order+1)}
}

// Constant returns a series whose order-0 coefficient is v and whose
// higher orders are zero.
func Constant(v float64, order int) *Series {
	s := New(order)
	s.c[0] = v
	return s
}

// Variable returns the series v + ε: order 0 is v, order 1 is 1.
// This is the expansion of the independent variable around v.
func Variable(v float64, order int) *Series {
	s := New(order)
	s.c[0] = v
	if order >= 1 {
		s.c[1] = 1
	}
	return s
}

// Order returns the maximum order of the series.
func (s *Series) Order() int { return len(s.c) - 1 }

// Coeff returns coefficient k. Out-of-range orders read as zero, which
// matches truncation semantics.
func (s *Series) Coeff(k int) float64 {
	if k < 0 || k >= len(s.c) {
		return 0
	}
	return s.c[k]
}

// SetCoeff sets coefficient k. Writes beyond the maximum order are dropped.
func (s *Series) SetCoeff(k int, v float64) {
	if k >= 0 && k < len(s.c) {
		s.c[k] = v
	}
}

// Coeffs returns a copy of all coefficients, index = order.
func (s *Series) Coeffs() []float64 {
	out := make([]float64, len(s.c))
	copy(out, s.c)
	return out
}

// Reset zeroes every coefficient in place. The backing buffer is kept,
// so a workspace can be reused across integration steps without
// reallocation.
func (s *Series) Reset() {
	for i := range s.c {
		s.c[i] = 0
	}
}

// CopyFrom overwrites s with the coefficients of o. Orders beyond o's
// maximum are zeroed; orders beyond s's maximum are truncated.
func (s *Series) CopyFrom(o *Series) {
	for i := range s.c {
		s.c[i] = o.Coeff(i)
	}
}

// Eval evaluates the polynomial at step h by Horner's rule.
func (s *Series) Eval(h float64) float64 {
	acc := 0.0
	for k := len(s.c) - 1; k >= 0; k-- {
		acc = acc*h + s.c[k]
	}
	return acc
}

// String renders the series as a readable polynomial, for diagnostics.
func (s *Series) String() string {
	var b strings.Builder
	for k, v := range s.c {
		if k > 0 {
			b.WriteString(" + ")
		}
		fmt.Fprintf(&b, "%g", v)
		if k == 1 {
			b.WriteString("·ε")
		} else if k > 1 {
			fmt.Fprintf(&b, "·ε^%d", k)
		}
	}
	return b.String()
}
