package integrator

import (
	"fmt"

	"github.com/vram0gh/taylorize/internal/ir"
	"github.com/vram0gh/taylorize/internal/parser"
	"github.com/vram0gh/taylorize/internal/taylor"
)

// Generic is the unspecialized evaluator: it interprets the parsed
// expression tree directly, rebuilding complete series with whole-series
// arithmetic on every call. It allocates freely and recomputes lower
// orders from scratch, which is exactly what makes it slow and exactly
// what makes it a trustworthy reference for the compiled evaluator.
//
// Generic deliberately accepts a superset of the compiled subset: local
// reassignment, assignment inside loops, and mismatched branch sets all
// interpret fine here even though the compiler rejects them. A caller
// whose expression fails specialization can always fall back to this.
type Generic struct {
	src *ir.Source
	dim int
}

// NewGeneric parses the right-hand-side source for interpretation.
func NewGeneric(sig ir.Signature, source string, dim int) (*Generic, error) {
	if dim < 1 {
		return nil, fmt.Errorf("generic: state dimension must be at least 1, got %d", dim)
	}
	src, err := parser.Parse(sig, source)
	if err != nil {
		return nil, err
	}
	return &Generic{src: src, dim: dim}, nil
}

// Dim returns the declared state dimension.
func (g *Generic) Dim() int { return g.dim }

type genv struct {
	order  int
	t      *taylor.Series
	x      []*taylor.Series
	dx     []*taylor.Series
	params map[string]float64
	locals map[string]*taylor.Series
	arrays map[string][]*taylor.Series
	loops  map[string]int
}

// Derivatives evaluates the full derivative series for the current state
// jets: dx[i] holds orders 0..order. Fresh buffers every call.
func (g *Generic) Derivatives(order int, t *taylor.Series, x []*taylor.Series, params map[string]float64) ([]*taylor.Series, error) {
	if len(x) != g.dim {
		return nil, fmt.Errorf("generic: state length %d, want dim %d", len(x), g.dim)
	}
	env := &genv{
		order:  order,
		t:      t,
		x:      x,
		dx:     make([]*taylor.Series, g.dim),
		params: params,
		locals: make(map[string]*taylor.Series),
		arrays: make(map[string][]*taylor.Series),
		loops:  make(map[string]int),
	}
	for i := range env.dx {
		env.dx[i] = taylor.New(order)
	}
	if err := g.run(g.src.Body, env); err != nil {
		return nil, err
	}
	return env.dx, nil
}

func (g *Generic) run(body []ir.Stmt, env *genv) error {
	for _, s := range body {
		if err := g.stmt(s, env); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generic) stmt(s ir.Stmt, env *genv) error {
	switch st := s.(type) {
	case *ir.ArrayDecl:
		n, err := g.length(st.Len, env)
		if err != nil {
			return err
		}
		arr := make([]*taylor.Series, n)
		for i := range arr {
			arr[i] = taylor.New(env.order)
		}
		env.arrays[st.Name] = arr
		return nil

	case *ir.Assign:
		v, err := g.eval(st.RHS, env)
		if err != nil {
			return err
		}
		env.locals[st.Name] = v
		return nil

	case *ir.IndexAssign:
		v, err := g.eval(st.RHS, env)
		if err != nil {
			return err
		}
		i, err := g.index(st.Elem, env)
		if err != nil {
			return err
		}
		if st.Name == g.src.Sig.Output {
			if i < 0 || i >= g.dim {
				return errRange(st.At, i, g.dim)
			}
			env.dx[i].CopyFrom(v)
			return nil
		}
		arr, ok := env.arrays[st.Name]
		if !ok {
			return errAt(st.At, "undefined array %q", st.Name)
		}
		if i < 0 || i >= len(arr) {
			return errRange(st.At, i, len(arr))
		}
		arr[i].CopyFrom(v)
		return nil

	case *ir.If:
		a, err := g.eval(st.Cond.L, env)
		if err != nil {
			return err
		}
		b, err := g.eval(st.Cond.R, env)
		if err != nil {
			return err
		}
		if cmpHolds(st.Cond.Op, a.Coeff(0), b.Coeff(0)) {
			return g.run(st.Then, env)
		}
		return g.run(st.Else, env)

	case *ir.For:
		lo, err := g.bound(st.Lo, env)
		if err != nil {
			return err
		}
		hi, err := g.bound(st.Hi, env)
		if err != nil {
			return err
		}
		for v := lo; v <= hi; v++ {
			env.loops[st.Var] = v
			if err := g.run(st.Body, env); err != nil {
				return err
			}
		}
		delete(env.loops, st.Var)
		return nil
	}
	return errAt(s.Pos(), "unsupported statement")
}

func (g *Generic) eval(e ir.Expr, env *genv) (*taylor.Series, error) {
	switch ex := e.(type) {
	case *ir.Lit:
		return taylor.Constant(ex.Value, env.order), nil

	case *ir.Ident:
		switch ex.Name {
		case g.src.Sig.Time:
			return env.t, nil
		case g.src.Sig.Output, g.src.Sig.State:
			return nil, errAt(ex.At, "%q must be indexed", ex.Name)
		}
		if v, ok := env.params[ex.Name]; ok && isParam(g.src.Sig, ex.Name) {
			return taylor.Constant(v, env.order), nil
		}
		if s, ok := env.locals[ex.Name]; ok {
			return s, nil
		}
		if v, ok := env.loops[ex.Name]; ok {
			return taylor.Constant(float64(v), env.order), nil
		}
		return nil, errAt(ex.At, "undefined name %q", ex.Name)

	case *ir.Index:
		i, err := g.index(ex.Elem, env)
		if err != nil {
			return nil, err
		}
		if ex.Name == g.src.Sig.State {
			if i < 0 || i >= g.dim {
				return nil, errRange(ex.At, i, g.dim)
			}
			return env.x[i], nil
		}
		if arr, ok := env.arrays[ex.Name]; ok {
			if i < 0 || i >= len(arr) {
				return nil, errRange(ex.At, i, len(arr))
			}
			return arr[i], nil
		}
		return nil, errAt(ex.At, "undefined array %q", ex.Name)

	case *ir.Unary:
		v, err := g.eval(ex.X, env)
		if err != nil {
			return nil, err
		}
		return taylor.Neg(v), nil

	case *ir.Binary:
		if ex.Op == ir.OpPow {
			return g.evalPow(ex.L, ex.R, env)
		}
		a, err := g.eval(ex.L, env)
		if err != nil {
			return nil, err
		}
		b, err := g.eval(ex.R, env)
		if err != nil {
			return nil, err
		}
		switch ex.Op {
		case ir.OpAdd:
			return taylor.Add(a, b), nil
		case ir.OpSub:
			return taylor.Sub(a, b), nil
		case ir.OpMul:
			return taylor.Mul(a, b), nil
		case ir.OpDiv:
			return taylor.Div(a, b), nil
		}
		return nil, errAt(ex.At, "unsupported operator %s", ex.Op)

	case *ir.Call:
		return g.evalCall(ex, env)
	}
	return nil, errAt(e.Pos(), "unsupported expression")
}

func (g *Generic) evalPow(base, exponent ir.Expr, env *genv) (*taylor.Series, error) {
	b, err := g.eval(base, env)
	if err != nil {
		return nil, err
	}
	if alpha, ok := litValue(exponent); ok {
		return taylor.PowConst(b, alpha), nil
	}
	e, err := g.eval(exponent, env)
	if err != nil {
		return nil, err
	}
	return taylor.Exp(taylor.Mul(e, taylor.Log(b))), nil
}

func (g *Generic) evalCall(ex *ir.Call, env *genv) (*taylor.Series, error) {
	if ex.Fn == "pow" {
		if len(ex.Args) != 2 {
			return nil, errAt(ex.At, "pow takes exactly two arguments, got %d", len(ex.Args))
		}
		return g.evalPow(ex.Args[0], ex.Args[1], env)
	}
	if len(ex.Args) != 1 {
		return nil, errAt(ex.At, "%s takes exactly one argument, got %d", ex.Fn, len(ex.Args))
	}
	a, err := g.eval(ex.Args[0], env)
	if err != nil {
		return nil, err
	}
	switch ex.Fn {
	case "sin":
		s, _ := taylor.SinCos(a)
		return s, nil
	case "cos":
		_, c := taylor.SinCos(a)
		return c, nil
	case "sinh":
		s, _ := taylor.SinhCosh(a)
		return s, nil
	case "cosh":
		_, c := taylor.SinhCosh(a)
		return c, nil
	case "exp":
		return taylor.Exp(a), nil
	case "log":
		return taylor.Log(a), nil
	case "sqrt":
		return taylor.Sqrt(a), nil
	}
	if fn, ok := taylor.LookupExtension(ex.Fn); ok {
		r := taylor.New(env.order)
		for k := 0; k <= env.order; k++ {
			fn(r, a, k)
		}
		return r, nil
	}
	return nil, errAt(ex.At, "unknown function %q has no registered extension", ex.Fn)
}

func (g *Generic) index(e ir.IndexExpr, env *genv) (int, error) {
	if e.Var == "" {
		return e.Lit - 1, nil
	}
	v, ok := env.loops[e.Var]
	if !ok {
		return 0, errAt(e.At, "undefined index %q", e.Var)
	}
	return v - 1, nil
}

func (g *Generic) length(l ir.Length, env *genv) (int, error) {
	if l.Param == "" {
		return l.Lit, nil
	}
	v, ok := env.params[l.Param]
	if !ok {
		return 0, fmt.Errorf("length parameter %q is not bound", l.Param)
	}
	n := int(v)
	if float64(n) != v || n < 1 {
		return 0, fmt.Errorf("length parameter %q = %v is not a positive integer", l.Param, v)
	}
	return n, nil
}

func (g *Generic) bound(b ir.Bound, env *genv) (int, error) {
	if b.Param == "" {
		return b.Lit, nil
	}
	v, ok := env.params[b.Param]
	if !ok {
		return 0, fmt.Errorf("loop bound %q is not bound", b.Param)
	}
	n := int(v)
	if float64(n) != v {
		return 0, fmt.Errorf("loop bound %q = %v is not an integer", b.Param, v)
	}
	return n, nil
}

func isParam(sig ir.Signature, name string) bool {
	for _, p := range sig.Params {
		if p == name {
			return true
		}
	}
	return false
}

func litValue(e ir.Expr) (float64, bool) {
	switch ex := e.(type) {
	case *ir.Lit:
		return ex.Value, true
	case *ir.Unary:
		if v, ok := litValue(ex.X); ok {
			return -v, true
		}
	}
	return 0, false
}

func cmpHolds(op ir.CmpOp, a, b float64) bool {
	switch op {
	case ir.CmpLT:
		return a < b
	case ir.CmpLE:
		return a <= b
	case ir.CmpGT:
		return a > b
	case ir.CmpGE:
		return a >= b
	case ir.CmpEQ:
		return a == b
	case ir.CmpNE:
		return a != b
	}
	return false
}

func errAt(pos ir.Pos, format string, args ...any) error {
	return fmt.Errorf("%s: %s", pos, fmt.Sprintf(format, args...))
}

func errRange(pos ir.Pos, i, n int) error {
	return errAt(pos, "index %d outside 1..%d", i+1, n)
}
