package taylor

import (
	"fmt"
	"sort"
	"sync"
)

// Extension is a user-supplied per-order recurrence for a single-argument
// function the compiler does not recognize. It must write coefficient k of
// r from coefficients 0..k of a (and 0..k-1 of r), with the same contract
// as the built-in updates.
type Extension func(r, a *Series, k int)

var (
	extMu sync.RWMutex
	exts  = map[string]Extension{}
)

// RegisterExtension makes an extension available under the given call name.
// Registration follows the database/sql driver convention: it panics on a
// duplicate name or nil function, since both indicate a wiring bug rather
// than a runtime condition.
//
// Compiled specializations that pass an unknown call through resolve the
// name here at evaluation time. The compiler cannot verify that an
// extension preserves the recurrence contract; callers should validate such
// specializations against the generic evaluator before trusting them.
func RegisterExtension(name string, fn Extension) {
	extMu.Lock()
	defer extMu.Unlock()
	if fn == nil {
		panic("taylor: RegisterExtension with nil function")
	}
	if _, dup := exts[name]; dup {
		panic(fmt.Sprintf("taylor: RegisterExtension called twice for %q", name))
	}
	exts[name] = fn
}

// LookupExtension returns the extension registered under name, if any.
func LookupExtension(name string) (Extension, bool) {
	extMu.RLock()
	defer extMu.RUnlock()
	fn, ok := exts[name]
	return fn, ok
}

// Extensions returns the sorted names of all registered extensions.
func Extensions() []string {
	extMu.RLock()
	defer extMu.RUnlock()
	names := make([]string, 0, len(exts))
	for name := range exts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
