package compiler

import (
	"github.com/vram0gh/taylorize/internal/ir"
)

// The planner walks the normalized tree once, in statement order, and
// assigns every temporary, user local, coupled pair, and declared array a
// stable slot. Slot order is first-write order, which the dependency
// verification pass (cycle.go) then confirms is a valid topological order
// of the evaluator's read/write edges.

// planner accumulates slots and pools during the walk.
type planner struct {
	plan       *ir.Plan
	slotByName map[string]int  // name -> index into plan.Slots
	constIdx   map[float64]int // literal value -> const pool index
	paramIdx   map[string]int  // param name -> param pool index
}

// buildPlan produces the allocation plan for a normalized tree. The plan
// is total: every name read by any reachable statement has a slot (or
// pool entry) assigned before that statement is reached, on every
// control-flow path.
func buildPlan(nz *normalized, sig ir.Signature, dim int) (*ir.Plan, *planner) {
	p := &planner{
		plan: &ir.Plan{
			Dim:      dim,
			Params:   append([]string(nil), sig.Params...),
			NumIters: nz.numIters,
		},
		slotByName: make(map[string]int),
		constIdx:   make(map[float64]int),
		paramIdx:   make(map[string]int),
	}
	for i, name := range p.plan.Params {
		p.paramIdx[name] = i
	}
	// Declared arrays come first: their declarations precede every use and
	// they are the only slots whose size depends on more than the order.
	for _, a := range nz.arrays {
		p.plan.Slots = append(p.plan.Slots, ir.Slot{
			Name: a.name,
			Kind: ir.SlotArray,
			Len:  a.len,
			Arr:  p.plan.NumArrs,
		})
		p.slotByName[a.name] = len(p.plan.Slots) - 1
		p.plan.NumArrs++
	}
	p.walk(nz.block)
	return p.plan, p
}

func (p *planner) walk(blk []nnode) {
	for _, node := range blk {
		switch nd := node.(type) {
		case *nstmt:
			p.visitStmt(nd)
		case *nif:
			p.visitOperand(nd.a)
			p.visitOperand(nd.b)
			p.walk(nd.then)
			p.walk(nd.els)
		case *nfor:
			p.walk(nd.body)
		}
	}
}

func (p *planner) visitStmt(s *nstmt) {
	p.visitOperand(s.a)
	if s.kind == nBin {
		p.visitOperand(s.b)
	}
	if s.tgt.kind != tSlot {
		return
	}
	if _, exists := p.slotByName[s.tgt.name]; exists {
		return
	}
	kind := ir.SlotSingle
	if s.kind == nPair {
		// Both pair members are one atomic unit: the recurrence updating
		// one reads the other's coefficients at every order.
		kind = ir.SlotPair
	}
	slot := ir.Slot{Name: s.tgt.name, Kind: kind, Buf: p.plan.NumBufs}
	if kind == ir.SlotPair {
		p.plan.NumBufs += 2
	} else {
		p.plan.NumBufs++
	}
	p.plan.Slots = append(p.plan.Slots, slot)
	p.slotByName[s.tgt.name] = len(p.plan.Slots) - 1
}

func (p *planner) visitOperand(o operand) {
	if o.kind != opLit {
		return
	}
	if _, exists := p.constIdx[o.lit]; exists {
		return
	}
	p.constIdx[o.lit] = len(p.plan.Consts)
	p.plan.Consts = append(p.plan.Consts, o.lit)
}
