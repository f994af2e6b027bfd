package compiler

import (
	"fmt"
	"math"

	"github.com/vram0gh/taylorize/internal/ir"
	"github.com/vram0gh/taylorize/internal/taylor"
)

// The allocator generator lowers the allocation plan into the allocator
// routine: one construction step per planned slot, plus the literal and
// parameter pools. The routine runs exactly once per integration run,
// before the step loop; everything it builds is reused in place by every
// evaluator call of that run.

// Workspace holds every buffer one integration run owns: slot buffers,
// array slots, and the constant series for literals and parameters. No
// other component may retain a workspace's storage beyond the run that
// allocated it.
type Workspace struct {
	Bufs   []*taylor.Series
	Arrs   [][]*taylor.Series
	Consts []*taylor.Series
	Params []*taylor.Series

	paramVals []float64
	iters     []int
}

// allocStep constructs the buffers of one planned slot.
type allocStep struct {
	slot ir.Slot
}

// allocator is the generated allocator routine body.
type allocator struct {
	plan  *ir.Plan
	steps []allocStep
}

func genAllocator(plan *ir.Plan) *allocator {
	a := &allocator{plan: plan}
	for _, s := range plan.Slots {
		a.steps = append(a.steps, allocStep{slot: s})
	}
	return a
}

// run builds a fresh workspace at the given maximum order with the given
// parameter bindings. Array lengths declared through a parameter are
// resolved here, before any integration step, and must be positive
// integers.
func (a *allocator) run(order int, params map[string]float64) (*Workspace, error) {
	if order < 1 {
		return nil, fmt.Errorf("allocate: order must be at least 1, got %d", order)
	}
	ws := &Workspace{
		Bufs:      make([]*taylor.Series, a.plan.NumBufs),
		Arrs:      make([][]*taylor.Series, a.plan.NumArrs),
		Consts:    make([]*taylor.Series, len(a.plan.Consts)),
		Params:    make([]*taylor.Series, len(a.plan.Params)),
		paramVals: make([]float64, len(a.plan.Params)),
		iters:     make([]int, a.plan.NumIters),
	}
	for i, c := range a.plan.Consts {
		ws.Consts[i] = taylor.Constant(c, order)
	}
	for i, name := range a.plan.Params {
		v, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("allocate: parameter %q is not bound", name)
		}
		ws.paramVals[i] = v
		ws.Params[i] = taylor.Constant(v, order)
	}
	for _, st := range a.steps {
		if err := a.build(st, ws, order); err != nil {
			return nil, err
		}
	}
	return ws, nil
}

func (a *allocator) build(st allocStep, ws *Workspace, order int) error {
	s := st.slot
	switch s.Kind {
	case ir.SlotSingle:
		ws.Bufs[s.Buf] = taylor.New(order)
	case ir.SlotPair:
		// Both members come into existence together; the pair is one
		// atomic allocation unit.
		ws.Bufs[s.Buf] = taylor.New(order)
		ws.Bufs[s.Buf+1] = taylor.New(order)
	case ir.SlotArray:
		n, err := a.resolveLength(s.Len, ws)
		if err != nil {
			return fmt.Errorf("allocate array %q: %w", s.Name, err)
		}
		arr := make([]*taylor.Series, n)
		for i := range arr {
			arr[i] = taylor.New(order)
		}
		ws.Arrs[s.Arr] = arr
	}
	return nil
}

func (a *allocator) resolveLength(l ir.Length, ws *Workspace) (int, error) {
	if l.Param == "" {
		return l.Lit, nil
	}
	for i, name := range a.plan.Params {
		if name == l.Param {
			v := ws.paramVals[i]
			n := int(v)
			if math.IsNaN(v) || float64(n) != v || n < 1 {
				return 0, fmt.Errorf("length parameter %q = %v is not a positive integer", l.Param, v)
			}
			return n, nil
		}
	}
	return 0, fmt.Errorf("length parameter %q is not bound", l.Param)
}
