package ir

import (
	"fmt"
	"strings"
)

// SlotKind classifies a planned storage location.
type SlotKind int

const (
	// SlotSingle is one series buffer.
	SlotSingle SlotKind = iota
	// SlotPair is a coupled pair of series buffers (sin/cos, sinh/cosh).
	// Both members are allocated and destroyed as one unit because each
	// member's order-k update reads the other's lower orders.
	SlotPair
	// SlotArray is a fixed-length array of series buffers.
	SlotArray
)

func (k SlotKind) String() string {
	switch k {
	case SlotSingle:
		return "single"
	case SlotPair:
		return "pair"
	case SlotArray:
		return "array"
	}
	return "?"
}

// Slot is one planned storage location of the allocation plan.
//
// Buf is the slot's first index into the workspace buffer vector; a pair
// occupies Buf and Buf+1 (primary member first). Arrays instead use Arr,
// an index into the workspace array table.
type Slot struct {
	Name string
	Kind SlotKind
	Len  Length // arrays only
	Buf  int
	Arr  int
}

func (s Slot) String() string {
	switch s.Kind {
	case SlotPair:
		return fmt.Sprintf("%-12s pair   buf=%d,%d", s.Name, s.Buf, s.Buf+1)
	case SlotArray:
		return fmt.Sprintf("%-12s array  arr=%d len=%s", s.Name, s.Arr, s.Len)
	default:
		return fmt.Sprintf("%-12s single buf=%d", s.Name, s.Buf)
	}
}

// Plan is the allocation plan for one compiled right-hand-side expression.
// Slot order is a valid topological order of the evaluator's dependency
// edges, with ties broken by first-write order in the source for
// reproducibility. The plan is computed once per expression and shared by
// every integration run that selects the specialization; only coefficient
// values inside the allocated buffers change between steps.
type Plan struct {
	Dim      int       // declared state dimension
	Slots    []Slot    // in first-write order
	Consts   []float64 // literal pool, one constant series each
	Params   []string  // parameter order, one constant series each
	NumBufs  int       // total single-series buffers across all slots
	NumArrs  int       // total array slots
	NumIters int       // loop-variable registers
}

// Listing renders the plan as a stable human-readable table, used by
// diagnostics and golden tests.
func (p *Plan) Listing() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dim=%d bufs=%d arrays=%d iters=%d\n", p.Dim, p.NumBufs, p.NumArrs, p.NumIters)
	for i, s := range p.Slots {
		fmt.Fprintf(&b, "slot %-2d %s\n", i, s)
	}
	for i, c := range p.Consts {
		fmt.Fprintf(&b, "const %-2d %g\n", i, c)
	}
	for i, name := range p.Params {
		fmt.Fprintf(&b, "param %-2d %s\n", i, name)
	}
	return b.String()
}
