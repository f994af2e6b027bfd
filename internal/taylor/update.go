package taylor

import "math"

// Per-order coefficient recurrences. Each function writes coefficient k of
// the result from coefficients 0..k of its operands and, for the division
// and transcendental recurrences, coefficients 0..k-1 of the result itself.
// Calling them for k = 0, 1, 2, ... in order therefore fills a series
// incrementally, which is exactly how the compiled evaluator uses them.
//
// Aliasing: the result must not alias an operand, except where noted.
// Singular points (division by a zero-constant series, log/sqrt/pow of a
// zero or negative constant term) follow IEEE semantics: NaN/Inf propagate
// through the coefficients and are surfaced to the caller unchanged.

// AddAt computes r[k] = a[k] + b[k]. Result may alias either operand.
func AddAt(r, a, b *Series, k int) {
	r.SetCoeff(k, a.Coeff(k)+b.Coeff(k))
}

// SubAt computes r[k] = a[k] - b[k]. Result may alias either operand.
func SubAt(r, a, b *Series, k int) {
	r.SetCoeff(k, a.Coeff(k)-b.Coeff(k))
}

// NegAt computes r[k] = -a[k]. Result may alias the operand.
func NegAt(r, a *Series, k int) {
	r.SetCoeff(k, -a.Coeff(k))
}

// MulAt computes the Cauchy product coefficient
// r[k] = sum_{j=0..k} a[j]·b[k-j].
func MulAt(r, a, b *Series, k int) {
	acc := 0.0
	for j := 0; j <= k; j++ {
		acc += a.Coeff(j) * b.Coeff(k-j)
	}
	r.SetCoeff(k, acc)
}

// DivAt computes coefficient k of r = a/b:
// r[k] = (a[k] - sum_{j=0..k-1} r[j]·b[k-j]) / b[0].
// Coefficients r[0..k-1] must already be populated.
func DivAt(r, a, b *Series, k int) {
	acc := a.Coeff(k)
	for j := 0; j < k; j++ {
		acc -= r.Coeff(j) * b.Coeff(k-j)
	}
	r.SetCoeff(k, acc/b.Coeff(0))
}

// ExpAt computes coefficient k of r = exp(a):
// r[0] = exp(a[0]); r[k] = (1/k)·sum_{j=1..k} j·a[j]·r[k-j].
func ExpAt(r, a *Series, k int) {
	if k == 0 {
		r.SetCoeff(0, math.Exp(a.Coeff(0)))
		return
	}
	acc := 0.0
	for j := 1; j <= k; j++ {
		acc += float64(j) * a.Coeff(j) * r.Coeff(k-j)
	}
	r.SetCoeff(k, acc/float64(k))
}

// LogAt computes coefficient k of r = log(a):
// r[0] = log(a[0]); r[k] = (a[k] - (1/k)·sum_{j=1..k-1} j·r[j]·a[k-j]) / a[0].
func LogAt(r, a *Series, k int) {
	if k == 0 {
		r.SetCoeff(0, math.Log(a.Coeff(0)))
		return
	}
	acc := 0.0
	for j := 1; j < k; j++ {
		acc += float64(j) * r.Coeff(j) * a.Coeff(k-j)
	}
	r.SetCoeff(k, (a.Coeff(k)-acc/float64(k))/a.Coeff(0))
}

// SqrtAt computes coefficient k of r = sqrt(a):
// r[0] = sqrt(a[0]); r[k] = (a[k] - sum_{j=1..k-1} r[j]·r[k-j]) / (2·r[0]).
func SqrtAt(r, a *Series, k int) {
	if k == 0 {
		r.SetCoeff(0, math.Sqrt(a.Coeff(0)))
		return
	}
	acc := a.Coeff(k)
	for j := 1; j < k; j++ {
		acc -= r.Coeff(j) * r.Coeff(k-j)
	}
	r.SetCoeff(k, acc/(2*r.Coeff(0)))
}

// PowConstAt computes coefficient k of r = a^alpha for a constant real
// exponent alpha:
// r[0] = a[0]^alpha;
// r[k] = (1/(k·a[0]))·sum_{j=0..k-1} (alpha·(k-j) - j)·a[k-j]·r[j].
func PowConstAt(r, a *Series, alpha float64, k int) {
	if k == 0 {
		r.SetCoeff(0, math.Pow(a.Coeff(0), alpha))
		return
	}
	acc := 0.0
	for j := 0; j < k; j++ {
		acc += (alpha*float64(k-j) - float64(j)) * a.Coeff(k-j) * r.Coeff(j)
	}
	r.SetCoeff(k, acc/(float64(k)*a.Coeff(0)))
}

// SinCosAt computes coefficient k of the coupled pair s = sin(a),
// c = cos(a). The sine update reads cosine orders 0..k-1 and vice versa, so
// both must be advanced together, every order, sine first by convention:
// s[k] = (1/k)·sum_{j=1..k} j·a[j]·c[k-j]
// c[k] = -(1/k)·sum_{j=1..k} j·a[j]·s[k-j]
func SinCosAt(s, c, a *Series, k int) {
	if k == 0 {
		s.SetCoeff(0, math.Sin(a.Coeff(0)))
		c.SetCoeff(0, math.Cos(a.Coeff(0)))
		return
	}
	sacc, cacc := 0.0, 0.0
	for j := 1; j <= k; j++ {
		sacc += float64(j) * a.Coeff(j) * c.Coeff(k-j)
		cacc += float64(j) * a.Coeff(j) * s.Coeff(k-j)
	}
	s.SetCoeff(k, sacc/float64(k))
	c.SetCoeff(k, -cacc/float64(k))
}

// SinhCoshAt is the hyperbolic analogue of SinCosAt; the cosh update has no
// sign flip.
func SinhCoshAt(s, c, a *Series, k int) {
	if k == 0 {
		s.SetCoeff(0, math.Sinh(a.Coeff(0)))
		c.SetCoeff(0, math.Cosh(a.Coeff(0)))
		return
	}
	sacc, cacc := 0.0, 0.0
	for j := 1; j <= k; j++ {
		sacc += float64(j) * a.Coeff(j) * c.Coeff(k-j)
		cacc += float64(j) * a.Coeff(j) * s.Coeff(k-j)
	}
	s.SetCoeff(k, sacc/float64(k))
	c.SetCoeff(k, cacc/float64(k))
}
