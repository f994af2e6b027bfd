package ir

import (
	"fmt"
	"strings"
)

// RefKind says what storage an operand or target names.
type RefKind int

const (
	RefConst RefKind = iota // literal pool entry (read-only)
	RefParam                // parameter series (read-only)
	RefTime                 // independent-variable series (read-only)
	RefState                // state vector element (read-only)
	RefOut                  // derivative output element (write target)
	RefBuf                  // workspace buffer (temporary or pair member)
	RefArr                  // workspace array element
)

// Ref names one series. Index selects the const-pool entry, parameter,
// buffer, or array. For RefState, RefOut, and RefArr, Elem picks the
// element: a 0-based literal or a loop-variable register.
type Ref struct {
	Kind  RefKind
	Index int
	Elem  ElemRef
}

// ElemRef is a 0-based array element selector, either literal or the
// current value of a loop-variable register. Iter < 0 means literal.
type ElemRef struct {
	Lit  int
	Iter int
}

// LitElem selects a fixed element.
func LitElem(i int) ElemRef { return ElemRef{Lit: i, Iter: -1} }

// IterElem selects the element indexed by loop register it.
func IterElem(it int) ElemRef { return ElemRef{Iter: it} }

func (r Ref) String() string {
	switch r.Kind {
	case RefConst:
		return fmt.Sprintf("c%d", r.Index)
	case RefParam:
		return fmt.Sprintf("p%d", r.Index)
	case RefTime:
		return "t"
	case RefState:
		return fmt.Sprintf("x[%s]", r.Elem)
	case RefOut:
		return fmt.Sprintf("dx[%s]", r.Elem)
	case RefBuf:
		return fmt.Sprintf("b%d", r.Index)
	case RefArr:
		return fmt.Sprintf("a%d[%s]", r.Index, r.Elem)
	}
	return "?"
}

func (e ElemRef) String() string {
	if e.Iter >= 0 {
		return fmt.Sprintf("i%d", e.Iter)
	}
	return fmt.Sprintf("%d", e.Lit)
}

// InstrOp is the operation of one evaluator instruction. Every arithmetic
// op maps to exactly one per-order update of the series library.
type InstrOp int

const (
	IAdd InstrOp = iota
	ISub
	IMul
	IDiv
	INeg
	ICopy
	IPowConst // Dst = A ^ Alpha, constant real exponent
	IExp
	ILog
	ISqrt
	ISinCos   // coupled pair: Dst = sin(A), Dst2 = cos(A)
	ISinhCosh // coupled pair: Dst = sinh(A), Dst2 = cosh(A)
	IExtern   // unknown-call fallback, resolved by name at evaluation time
	IBranch   // order-0 predicate selects Then or Else
	ILoop     // static-range loop over a loop-variable register
)

var instrNames = map[InstrOp]string{
	IAdd: "add", ISub: "sub", IMul: "mul", IDiv: "div", INeg: "neg",
	ICopy: "copy", IPowConst: "pow", IExp: "exp", ILog: "log",
	ISqrt: "sqrt", ISinCos: "sincos", ISinhCosh: "sinhcosh",
	IExtern: "extern", IBranch: "branch", ILoop: "loop",
}

func (op InstrOp) String() string {
	if s, ok := instrNames[op]; ok {
		return s
	}
	return "?"
}

// Instr is one statement of a generated routine. Executing it at order k
// writes coefficient k of Dst (and Dst2 for coupled pairs) from
// coefficients 0..k of its operands.
type Instr struct {
	Op    InstrOp
	Dst   Ref
	Dst2  Ref     // second member of a coupled pair
	A, B  Ref     // operands (B unused by unary ops)
	Alpha float64 // IPowConst exponent
	Fn    string  // IExtern call name

	// IBranch: predicate Cmp over order-0 coefficients of A and B.
	Cmp  CmpOp
	Then []Instr
	Else []Instr

	// ILoop: loop register Iter sweeps Lo..Hi (inclusive, already 0-based).
	Iter   int
	Lo, Hi Bound
	Body   []Instr
}

// Program is a generated evaluator body: instructions in dependency order.
// Running orders 0, 1, ..., n in sequence fills every slot's and output's
// jet incrementally.
type Program struct {
	Instrs []Instr
}

// Listing renders the program as a stable assembly-like text, one line per
// instruction, used by diagnostics and golden tests.
func (p *Program) Listing() string {
	var b strings.Builder
	writeInstrs(&b, p.Instrs, 0)
	return b.String()
}

func writeInstrs(b *strings.Builder, instrs []Instr, depth int) {
	pad := strings.Repeat("  ", depth)
	for _, in := range instrs {
		switch in.Op {
		case IBranch:
			fmt.Fprintf(b, "%sbranch %s %s %s {\n", pad, in.A, in.Cmp, in.B)
			writeInstrs(b, in.Then, depth+1)
			if len(in.Else) > 0 {
				fmt.Fprintf(b, "%s} else {\n", pad)
				writeInstrs(b, in.Else, depth+1)
			}
			fmt.Fprintf(b, "%s}\n", pad)
		case ILoop:
			fmt.Fprintf(b, "%sloop i%d = %s..%s {\n", pad, in.Iter, in.Lo, in.Hi)
			writeInstrs(b, in.Body, depth+1)
			fmt.Fprintf(b, "%s}\n", pad)
		case ISinCos, ISinhCosh:
			fmt.Fprintf(b, "%s%s, %s = %s %s\n", pad, in.Dst, in.Dst2, in.Op, in.A)
		case IPowConst:
			fmt.Fprintf(b, "%s%s = pow %s %g\n", pad, in.Dst, in.A, in.Alpha)
		case IExtern:
			fmt.Fprintf(b, "%s%s = extern %s(%s)\n", pad, in.Dst, in.Fn, in.A)
		case INeg, ICopy, IExp, ILog, ISqrt:
			fmt.Fprintf(b, "%s%s = %s %s\n", pad, in.Dst, in.Op, in.A)
		default:
			fmt.Fprintf(b, "%s%s = %s %s %s\n", pad, in.Dst, in.Op, in.A, in.B)
		}
	}
}
