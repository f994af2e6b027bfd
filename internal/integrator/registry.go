package integrator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vram0gh/taylorize/internal/compiler"
	"github.com/vram0gh/taylorize/internal/ir"
)

// Registry maps right-hand-side identity hashes to compiled
// specializations. The solver consults it once per Solve call, not per
// step, so a registration that lands mid-integration takes effect on the
// next call.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*compiler.Specialization
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*compiler.Specialization)}
}

// Register stores a specialization under its identity key, replacing any
// previous entry for the same key.
func (r *Registry) Register(spec *compiler.Specialization) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.Key] = spec
}

// Lookup returns the specialization for an identity key, if registered.
func (r *Registry) Lookup(key string) (*compiler.Specialization, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[key]
	return spec, ok
}

// Keys returns the registered identity keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.specs))
	for k := range r.specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Specialize compiles a right-hand side and registers the result. The
// returned error carries the compiler's diagnosis when the source falls
// outside the compilable subset; the caller is free to fall back to the
// generic evaluator in that case.
func (r *Registry) Specialize(sig ir.Signature, source string, dim int) (*compiler.Specialization, error) {
	spec, err := compiler.Compile(sig, source, dim)
	if err != nil {
		return nil, fmt.Errorf("specialize: %w", err)
	}
	r.Register(spec)
	return spec, nil
}
