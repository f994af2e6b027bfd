// Package compiler turns a right-hand-side expression in the restricted
// subset into a specialization: a recurrence evaluator that computes one
// jet order from all previous orders, and an allocator that builds every
// buffer the evaluator needs so the integration loop allocates nothing.
//
// Compilation is a one-shot, synchronous pipeline of pure passes:
//
//	parse -> normalize/validate -> plan -> verify -> generate
//
// It runs once per distinct expression; the result is cached by the
// integrator's registry and reused across every run that selects it. All
// failures are compile-time diagnostics; a failed compilation leaves no
// trace and the generic evaluator remains available.
package compiler

import (
	"fmt"

	"github.com/vram0gh/taylorize/internal/ir"
	"github.com/vram0gh/taylorize/internal/parser"
)

// Specialization is a compiled {evaluator, allocator} pair for one
// right-hand-side expression.
type Specialization struct {
	Key  string // content-addressed RHS identity
	Sig  ir.Signature
	Dim  int
	Plan *ir.Plan
	Eval *ir.Program

	alloc *allocator
}

// Compile parses, normalizes, plans, and generates a specialization for
// the given right-hand-side source. dim is the caller-declared state
// dimension; it bounds every literal state and output index.
func Compile(sig ir.Signature, source string, dim int) (*Specialization, error) {
	if dim < 1 {
		return nil, fmt.Errorf("compile: state dimension must be at least 1, got %d", dim)
	}
	src, err := parser.Parse(sig, source)
	if err != nil {
		return nil, err
	}
	nz, err := normalize(src, dim)
	if err != nil {
		return nil, err
	}
	if err := verifyDeps(nz); err != nil {
		return nil, err
	}
	plan, pl := buildPlan(nz, sig, dim)
	prog := genProgram(nz, pl)
	key, err := ir.RHSIdentity(sig, source, dim)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	return &Specialization{
		Key:   key,
		Sig:   sig,
		Dim:   dim,
		Plan:  plan,
		Eval:  prog,
		alloc: genAllocator(plan),
	}, nil
}

// Allocate runs the generated allocator routine: it constructs every
// planned buffer at the given maximum order, with array lengths resolved
// against the parameter bindings. Call it once per integration run and
// reuse the workspace across every evaluator call of that run.
func (s *Specialization) Allocate(order int, params map[string]float64) (*Workspace, error) {
	return s.alloc.run(order, params)
}

// Listing renders the plan and evaluator program as stable text, for
// diagnostics and golden tests.
func (s *Specialization) Listing() string {
	return "plan:\n" + s.Plan.Listing() + "eval:\n" + s.Eval.Listing()
}
