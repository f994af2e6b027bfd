package compiler

import (
	"fmt"

	"github.com/vram0gh/taylorize/internal/ir"
	"github.com/vram0gh/taylorize/internal/taylor"
)

// Evaluator execution. EvalOrder runs the generated program for one
// target order: every instruction writes coefficient k of its slot or
// output from coefficients 0..k of its operands, in the program's
// dependency order. Calling orders 0, 1, ..., n in sequence reproduces the
// full jet; calling out of sequence breaks the recurrence contract and is
// a caller bug.

// EvalOrder computes order k of every slot and declared output.
// t, x, and dx must all have maximum order >= k; ws must come from this
// specialization's Allocate. Arithmetic failures inside the series library
// (division by a zero constant term and the like) propagate as IEEE
// NaN/Inf coefficients, unchanged.
func (s *Specialization) EvalOrder(k int, t *taylor.Series, x, dx []*taylor.Series, ws *Workspace) error {
	if len(x) != s.Dim || len(dx) != s.Dim {
		return fmt.Errorf("eval: state/output length %d/%d, want dim %d", len(x), len(dx), s.Dim)
	}
	return s.execBlock(s.Eval.Instrs, k, t, x, dx, ws)
}

func (s *Specialization) execBlock(instrs []ir.Instr, k int, t *taylor.Series, x, dx []*taylor.Series, ws *Workspace) error {
	for i := range instrs {
		if err := s.exec(&instrs[i], k, t, x, dx, ws); err != nil {
			return err
		}
	}
	return nil
}

func (s *Specialization) exec(in *ir.Instr, k int, t *taylor.Series, x, dx []*taylor.Series, ws *Workspace) error {
	switch in.Op {
	case ir.IBranch:
		a, err := s.resolve(in.A, t, x, dx, ws)
		if err != nil {
			return err
		}
		b, err := s.resolve(in.B, t, x, dx, ws)
		if err != nil {
			return err
		}
		// The predicate is decided on order-0 coefficients only: series
		// ordering is not defined beyond the constant term, and the
		// branch taken must not flip between orders of one evaluation.
		if cmpHolds(in.Cmp, a.Coeff(0), b.Coeff(0)) {
			return s.execBlock(in.Then, k, t, x, dx, ws)
		}
		return s.execBlock(in.Else, k, t, x, dx, ws)

	case ir.ILoop:
		lo, err := s.resolveBound(in.Lo, ws)
		if err != nil {
			return err
		}
		hi, err := s.resolveBound(in.Hi, ws)
		if err != nil {
			return err
		}
		for v := lo; v <= hi; v++ {
			ws.iters[in.Iter] = v
			if err := s.execBlock(in.Body, k, t, x, dx, ws); err != nil {
				return err
			}
		}
		return nil
	}

	dst, err := s.resolve(in.Dst, t, x, dx, ws)
	if err != nil {
		return err
	}
	a, err := s.resolve(in.A, t, x, dx, ws)
	if err != nil {
		return err
	}

	switch in.Op {
	case ir.ICopy:
		dst.SetCoeff(k, a.Coeff(k))
	case ir.INeg:
		taylor.NegAt(dst, a, k)
	case ir.IAdd, ir.ISub, ir.IMul, ir.IDiv:
		b, err := s.resolve(in.B, t, x, dx, ws)
		if err != nil {
			return err
		}
		switch in.Op {
		case ir.IAdd:
			taylor.AddAt(dst, a, b, k)
		case ir.ISub:
			taylor.SubAt(dst, a, b, k)
		case ir.IMul:
			taylor.MulAt(dst, a, b, k)
		case ir.IDiv:
			taylor.DivAt(dst, a, b, k)
		}
	case ir.IPowConst:
		taylor.PowConstAt(dst, a, in.Alpha, k)
	case ir.IExp:
		taylor.ExpAt(dst, a, k)
	case ir.ILog:
		taylor.LogAt(dst, a, k)
	case ir.ISqrt:
		taylor.SqrtAt(dst, a, k)
	case ir.ISinCos, ir.ISinhCosh:
		dst2, err := s.resolve(in.Dst2, t, x, dx, ws)
		if err != nil {
			return err
		}
		if in.Op == ir.ISinCos {
			taylor.SinCosAt(dst, dst2, a, k)
		} else {
			taylor.SinhCoshAt(dst, dst2, a, k)
		}
	case ir.IExtern:
		fn, ok := taylor.LookupExtension(in.Fn)
		if !ok {
			return fmt.Errorf("eval: call %q passed through at compile time has no registered extension", in.Fn)
		}
		fn(dst, a, k)
	default:
		return fmt.Errorf("eval: unknown instruction %v", in.Op)
	}
	return nil
}

func (s *Specialization) resolve(r ir.Ref, t *taylor.Series, x, dx []*taylor.Series, ws *Workspace) (*taylor.Series, error) {
	switch r.Kind {
	case ir.RefConst:
		return ws.Consts[r.Index], nil
	case ir.RefParam:
		return ws.Params[r.Index], nil
	case ir.RefTime:
		return t, nil
	case ir.RefState:
		i, err := elemIndex(r.Elem, ws, len(x))
		if err != nil {
			return nil, fmt.Errorf("state %w", err)
		}
		return x[i], nil
	case ir.RefOut:
		i, err := elemIndex(r.Elem, ws, len(dx))
		if err != nil {
			return nil, fmt.Errorf("output %w", err)
		}
		return dx[i], nil
	case ir.RefBuf:
		return ws.Bufs[r.Index], nil
	case ir.RefArr:
		arr := ws.Arrs[r.Index]
		i, err := elemIndex(r.Elem, ws, len(arr))
		if err != nil {
			return nil, fmt.Errorf("array %w", err)
		}
		return arr[i], nil
	}
	return nil, fmt.Errorf("eval: unknown reference kind %d", r.Kind)
}

// elemIndex resolves a 0-based element selector. Loop registers hold the
// loop variable's 1-based source value, so the register path subtracts one.
func elemIndex(e ir.ElemRef, ws *Workspace, n int) (int, error) {
	i := e.Lit
	if e.Iter >= 0 {
		i = ws.iters[e.Iter] - 1
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index %d outside 1..%d", i+1, n)
	}
	return i, nil
}

func (s *Specialization) resolveBound(b ir.Bound, ws *Workspace) (int, error) {
	if b.Param == "" {
		return b.Lit, nil
	}
	for i, name := range s.Plan.Params {
		if name == b.Param {
			v := ws.paramVals[i]
			n := int(v)
			if float64(n) != v {
				return 0, fmt.Errorf("eval: loop bound %q = %v is not an integer", b.Param, v)
			}
			return n, nil
		}
	}
	return 0, fmt.Errorf("eval: loop bound %q is not bound", b.Param)
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
