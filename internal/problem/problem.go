// Package problem defines ODE problem definitions and their CUE loader.
// A problem bundles a right-hand-side source, its signature and state
// dimension, plus default parameter values and integration settings.
package problem

import (
	"fmt"
	"sort"

	"github.com/vram0gh/taylorize/internal/ir"
)

// Problem is a declared initial value problem shape. Initial conditions
// and the time span live with the caller (or a scenario file), not here:
// the same problem is integrated from many starting points.
type Problem struct {
	Name   string
	Sig    ir.Signature
	Dim    int
	Source string

	// Params holds default parameter values; callers may override
	// individual entries at integration time.
	Params map[string]float64

	// Order and AbsTol are default integration settings. Zero means the
	// problem file did not set one and the caller decides.
	Order  int
	AbsTol float64
}

// Identity returns the content hash identifying this right-hand side for
// specialization lookup. Parameter values do not participate: the same
// compiled routine serves every parameter binding.
func (p *Problem) Identity() string {
	return ir.MustRHSIdentity(p.Sig, p.Source, p.Dim)
}

// Validate checks the structural fields. It does not parse the source;
// that is the compiler's and the generic evaluator's job.
func (p *Problem) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("problem has no name")
	}
	if p.Dim < 1 {
		return fmt.Errorf("problem %q: dim must be at least 1, got %d", p.Name, p.Dim)
	}
	if p.Source == "" {
		return fmt.Errorf("problem %q: source is empty", p.Name)
	}
	if p.Sig.Output == "" || p.Sig.State == "" || p.Sig.Time == "" {
		return fmt.Errorf("problem %q: incomplete signature", p.Name)
	}
	seen := make(map[string]bool)
	for _, name := range p.Sig.Params {
		if seen[name] {
			return fmt.Errorf("problem %q: duplicate parameter %q", p.Name, name)
		}
		seen[name] = true
	}
	for name := range p.Params {
		if !seen[name] {
			return fmt.Errorf("problem %q: value for undeclared parameter %q", p.Name, name)
		}
	}
	if p.Order < 0 {
		return fmt.Errorf("problem %q: order must be positive, got %d", p.Name, p.Order)
	}
	if p.AbsTol < 0 {
		return fmt.Errorf("problem %q: abstol must be positive, got %g", p.Name, p.AbsTol)
	}
	return nil
}

// BindParams merges override values over the problem defaults and checks
// that every declared parameter ends up bound.
func (p *Problem) BindParams(overrides map[string]float64) (map[string]float64, error) {
	bound := make(map[string]float64, len(p.Sig.Params))
	for k, v := range p.Params {
		bound[k] = v
	}
	for k, v := range overrides {
		if !isDeclared(p.Sig.Params, k) {
			return nil, fmt.Errorf("problem %q: override for undeclared parameter %q", p.Name, k)
		}
		bound[k] = v
	}
	var missing []string
	for _, name := range p.Sig.Params {
		if _, ok := bound[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("problem %q: unbound parameters %v", p.Name, missing)
	}
	return bound, nil
}

func isDeclared(params []string, name string) bool {
	for _, p := range params {
		if p == name {
			return true
		}
	}
	return false
}
