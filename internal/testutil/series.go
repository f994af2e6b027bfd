// Package testutil provides deterministic fixtures and comparison helpers
// shared by the package tests.
package testutil

import (
	"math"
	"testing"

	"github.com/vram0gh/taylorize/internal/taylor"
)

// Poly builds a series with the given coefficients, lowest order first.
// The order of the result is len(coeffs)-1.
func Poly(coeffs ...float64) *taylor.Series {
	s := taylor.New(len(coeffs) - 1)
	for k, c := range coeffs {
		s.SetCoeff(k, c)
	}
	return s
}

// SeriesApprox fails the test when any coefficient of got deviates from
// want by more than tol. NaN never matches.
func SeriesApprox(t *testing.T, want, got *taylor.Series, tol float64) {
	t.Helper()
	if want.Order() != got.Order() {
		t.Fatalf("series order mismatch: want %d, got %d", want.Order(), got.Order())
	}
	for k := 0; k <= want.Order(); k++ {
		w, g := want.Coeff(k), got.Coeff(k)
		if d := math.Abs(w - g); d > tol || math.IsNaN(d) {
			t.Fatalf("coefficient %d: want %v, got %v (|diff| %.3e > %.3e)", k, w, g, d, tol)
		}
	}
}

// StatesApprox fails the test when any component of got deviates from want
// by more than tol.
func StatesApprox(t *testing.T, want, got []float64, tol float64) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("state length mismatch: want %d, got %d", len(want), len(got))
	}
	for i := range want {
		if d := math.Abs(want[i] - got[i]); d > tol || math.IsNaN(d) {
			t.Fatalf("state[%d]: want %v, got %v (|diff| %.3e > %.3e)", i+1, want[i], got[i], d, tol)
		}
	}
}
