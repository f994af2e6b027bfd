package compiler

import (
	"github.com/vram0gh/taylorize/internal/ir"
)

// The recurrence code generator lowers the normalized tree against the
// allocation plan into the evaluator program: one instruction per
// statement, in dependency order, each invoking a single per-order update
// of the series library. Names disappear here; instructions address
// buffers, pools, and elements directly.

type generator struct {
	p       *planner
	varRegs map[string]int // active loop variable -> register
}

func genProgram(nz *normalized, p *planner) *ir.Program {
	g := &generator{p: p, varRegs: make(map[string]int)}
	return &ir.Program{Instrs: g.block(nz.block)}
}

func (g *generator) block(blk []nnode) []ir.Instr {
	var instrs []ir.Instr
	for _, node := range blk {
		switch nd := node.(type) {
		case *nstmt:
			instrs = append(instrs, g.stmt(nd))
		case *nif:
			instrs = append(instrs, ir.Instr{
				Op:   ir.IBranch,
				Cmp:  nd.cmp,
				A:    g.operand(nd.a),
				B:    g.operand(nd.b),
				Then: g.block(nd.then),
				Else: g.block(nd.els),
			})
		case *nfor:
			g.varRegs[nd.varName] = nd.iter
			body := g.block(nd.body)
			delete(g.varRegs, nd.varName)
			instrs = append(instrs, ir.Instr{
				Op:   ir.ILoop,
				Iter: nd.iter,
				Lo:   nd.lo,
				Hi:   nd.hi,
				Body: body,
			})
		}
	}
	return instrs
}

func (g *generator) stmt(s *nstmt) ir.Instr {
	in := ir.Instr{Dst: g.target(s.tgt), A: g.operand(s.a)}
	switch s.kind {
	case nCopy:
		in.Op = ir.ICopy
	case nNeg:
		in.Op = ir.INeg
	case nBin:
		switch s.op {
		case ir.OpAdd:
			in.Op = ir.IAdd
		case ir.OpSub:
			in.Op = ir.ISub
		case ir.OpMul:
			in.Op = ir.IMul
		case ir.OpDiv:
			in.Op = ir.IDiv
		}
		in.B = g.operand(s.b)
	case nPowC:
		in.Op = ir.IPowConst
		in.Alpha = s.alpha
	case nExp:
		in.Op = ir.IExp
	case nLog:
		in.Op = ir.ILog
	case nSqrt:
		in.Op = ir.ISqrt
	case nPair:
		if s.fn == "sinhcosh" {
			in.Op = ir.ISinhCosh
		} else {
			in.Op = ir.ISinCos
		}
		// The pair's partner occupies the next buffer of the same slot.
		in.Dst2 = ir.Ref{Kind: ir.RefBuf, Index: in.Dst.Index + 1}
	case nExtern:
		in.Op = ir.IExtern
		in.Fn = s.fn
	}
	return in
}

func (g *generator) target(t targ) ir.Ref {
	switch t.kind {
	case tOut:
		return ir.Ref{Kind: ir.RefOut, Elem: g.elem(t.elem)}
	case tArrElem:
		slot := g.p.plan.Slots[g.p.slotByName[t.name]]
		return ir.Ref{Kind: ir.RefArr, Index: slot.Arr, Elem: g.elem(t.elem)}
	default:
		slot := g.p.plan.Slots[g.p.slotByName[t.name]]
		return ir.Ref{Kind: ir.RefBuf, Index: slot.Buf}
	}
}

func (g *generator) operand(o operand) ir.Ref {
	switch o.kind {
	case opLit:
		return ir.Ref{Kind: ir.RefConst, Index: g.p.constIdx[o.lit]}
	case opTime:
		return ir.Ref{Kind: ir.RefTime}
	case opParam:
		return ir.Ref{Kind: ir.RefParam, Index: g.p.paramIdx[o.name]}
	case opState:
		return ir.Ref{Kind: ir.RefState, Elem: g.elem(o.elem)}
	case opArrElem:
		slot := g.p.plan.Slots[g.p.slotByName[o.name]]
		return ir.Ref{Kind: ir.RefArr, Index: slot.Arr, Elem: g.elem(o.elem)}
	default: // opSlot
		slot := g.p.plan.Slots[g.p.slotByName[o.name]]
		return ir.Ref{Kind: ir.RefBuf, Index: slot.Buf + o.member}
	}
}

// elem lowers a 1-based source index to a 0-based element selector.
// Loop-variable indices stay symbolic; the evaluator subtracts one from
// the register's current source value.
func (g *generator) elem(e ir.IndexExpr) ir.ElemRef {
	if e.Var != "" {
		return ir.IterElem(g.varRegs[e.Var])
	}
	return ir.LitElem(e.Lit - 1)
}
