package taylor

// Whole-series operations. Each allocates a fresh result at the first
// operand's order and fills every coefficient with the per-order
// recurrences from update.go. These are the slow path: the generic
// evaluator rebuilds complete series through them on every call, which is
// what makes it a trustworthy cross-check for the compiled evaluator.

// Add returns a + b.
func Add(a, b *Series) *Series {
	r := New(a.Order())
	for k := 0; k <= r.Order(); k++ {
		AddAt(r, a, b, k)
	}
	return r
}

// Sub returns a - b.
func Sub(a, b *Series) *Series {
	r := New(a.Order())
	for k := 0; k <= r.Order(); k++ {
		SubAt(r, a, b, k)
	}
	return r
}

// Neg returns -a.
func Neg(a *Series) *Series {
	r := New(a.Order())
	for k := 0; k <= r.Order(); k++ {
		NegAt(r, a, k)
	}
	return r
}

// Mul returns a · b.
func Mul(a, b *Series) *Series {
	r := New(a.Order())
	for k := 0; k <= r.Order(); k++ {
		MulAt(r, a, b, k)
	}
	return r
}

// Div returns a / b.
func Div(a, b *Series) *Series {
	r := New(a.Order())
	for k := 0; k <= r.Order(); k++ {
		DivAt(r, a, b, k)
	}
	return r
}

// Exp returns exp(a).
func Exp(a *Series) *Series {
	r := New(a.Order())
	for k := 0; k <= r.Order(); k++ {
		ExpAt(r, a, k)
	}
	return r
}

// Log returns log(a).
func Log(a *Series) *Series {
	r := New(a.Order())
	for k := 0; k <= r.Order(); k++ {
		LogAt(r, a, k)
	}
	return r
}

// Sqrt returns sqrt(a).
func Sqrt(a *Series) *Series {
	r := New(a.Order())
	for k := 0; k <= r.Order(); k++ {
		SqrtAt(r, a, k)
	}
	return r
}

// PowConst returns a^alpha for a constant exponent.
func PowConst(a *Series, alpha float64) *Series {
	r := New(a.Order())
	for k := 0; k <= r.Order(); k++ {
		PowConstAt(r, a, alpha, k)
	}
	return r
}

// SinCos returns the coupled pair sin(a), cos(a).
func SinCos(a *Series) (*Series, *Series) {
	s, c := New(a.Order()), New(a.Order())
	for k := 0; k <= s.Order(); k++ {
		SinCosAt(s, c, a, k)
	}
	return s, c
}

// SinhCosh returns the coupled pair sinh(a), cosh(a).
func SinhCosh(a *Series) (*Series, *Series) {
	s, c := New(a.Order()), New(a.Order())
	for k := 0; k <= s.Order(); k++ {
		SinhCoshAt(s, c, a, k)
	}
	return s, c
}
