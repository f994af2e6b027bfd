package ir

import "fmt"

// Pos is a 1-based source position within a right-hand-side expression.
type Pos struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Signature names the fixed positional parameters of a right-hand-side
// function: the derivative output vector, the state vector, the independent
// variable, and the declared parameter identifiers. Parameter values are
// bound at integration time, not at compile time.
type Signature struct {
	Output string   `json:"output"` // derivative vector, conventionally "dx"
	State  string   `json:"state"`  // state vector, conventionally "x"
	Time   string   `json:"time"`   // independent variable, conventionally "t"
	Params []string `json:"params"` // named scalar parameters
}

// DefaultSignature is the conventional (dx, x, t) naming.
func DefaultSignature(params []string) Signature {
	return Signature{Output: "dx", State: "x", Time: "t", Params: params}
}

// BinOp is a binary arithmetic operator.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpPow
)

func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpPow:
		return "^"
	}
	return "?"
}

// CmpOp is a comparison operator, legal only in conditional predicates.
type CmpOp int

const (
	CmpLT CmpOp = iota
	CmpLE
	CmpGT
	CmpGE
	CmpEQ
	CmpNE
)

func (op CmpOp) String() string {
	switch op {
	case CmpLT:
		return "<"
	case CmpLE:
		return "<="
	case CmpGT:
		return ">"
	case CmpGE:
		return ">="
	case CmpEQ:
		return "=="
	case CmpNE:
		return "!="
	}
	return "?"
}

// Expr is an expression tree node. The tree is immutable once parsed; each
// node owns its children exclusively.
type Expr interface {
	Pos() Pos
	expr()
}

// Lit is a numeric literal.
type Lit struct {
	At    Pos
	Value float64
}

// Ident is a bare identifier: a state/output/time/param name, a local, or a
// loop variable.
type Ident struct {
	At   Pos
	Name string
}

// IndexExpr is a 1-based element index: either a literal or a loop
// variable. Exactly one of the two is set; Var == "" means literal.
type IndexExpr struct {
	At  Pos
	Lit int
	Var string
}

func (ix IndexExpr) String() string {
	if ix.Var != "" {
		return ix.Var
	}
	return fmt.Sprintf("%d", ix.Lit)
}

// Index reads one element of an indexed identifier, e.g. x[2] or v[i].
type Index struct {
	At   Pos
	Name string
	Elem IndexExpr
}

// Unary is a unary operation (negation only).
type Unary struct {
	At    Pos
	X     Expr
	Paren bool
}

// Binary is a strictly two-operand operation. Paren records whether the
// node was explicitly parenthesized in source; the parser uses it to refuse
// unparenthesized operand chains rather than inventing an association order.
type Binary struct {
	At    Pos
	Op    BinOp
	L, R  Expr
	Paren bool
}

// Call is a function application, e.g. sin(x[1]) or pow(x[1], 3).
type Call struct {
	At   Pos
	Fn   string
	Args []Expr
}

// Compare is a predicate node. It appears only as a conditional's
// condition; the generated evaluator decides it on order-0 coefficients
// alone.
type Compare struct {
	At   Pos
	Op   CmpOp
	L, R Expr
}

func (e *Lit) Pos() Pos     { return e.At }
func (e *Ident) Pos() Pos   { return e.At }
func (e *Index) Pos() Pos   { return e.At }
func (e *Unary) Pos() Pos   { return e.At }
func (e *Binary) Pos() Pos  { return e.At }
func (e *Call) Pos() Pos    { return e.At }
func (e *Compare) Pos() Pos { return e.At }

func (*Lit) expr()     {}
func (*Ident) expr()   {}
func (*Index) expr()   {}
func (*Unary) expr()   {}
func (*Binary) expr()  {}
func (*Call) expr()    {}
func (*Compare) expr() {}

// Stmt is a statement node.
type Stmt interface {
	Pos() Pos
	stmt()
}

// Assign writes a local scalar: name = expr.
type Assign struct {
	At   Pos
	Name string
	RHS  Expr
}

// IndexAssign writes one element of the output vector or a declared array:
// name[elem] = expr.
type IndexAssign struct {
	At   Pos
	Name string
	Elem IndexExpr
	RHS  Expr
}

// ArrayDecl declares a fixed-length array of series:
// array name[len]. The length is a literal or a named integer parameter,
// never a computed or data-dependent value.
type ArrayDecl struct {
	At   Pos
	Name string
	Len  Length
}

// If is a two-way conditional. Both branches must assign the same set of
// output identifiers so allocation is branch-independent.
type If struct {
	At   Pos
	Cond *Compare
	Then []Stmt
	Else []Stmt
}

// For iterates a loop variable over an inclusive static range:
// for i in lo:hi. Bounds are literals or named integer parameters.
type For struct {
	At     Pos
	Var    string
	Lo, Hi Bound
	Body   []Stmt
}

func (s *Assign) Pos() Pos      { return s.At }
func (s *IndexAssign) Pos() Pos { return s.At }
func (s *ArrayDecl) Pos() Pos   { return s.At }
func (s *If) Pos() Pos          { return s.At }
func (s *For) Pos() Pos         { return s.At }

func (*Assign) stmt()      {}
func (*IndexAssign) stmt() {}
func (*ArrayDecl) stmt()   {}
func (*If) stmt()          {}
func (*For) stmt()         {}

// Length is a static array length: a literal or a named integer parameter.
// Param == "" means literal. Param-derived lengths are resolved when the
// allocator runs, before any integration step.
type Length struct {
	Lit   int
	Param string
}

func (l Length) String() string {
	if l.Param != "" {
		return l.Param
	}
	return fmt.Sprintf("%d", l.Lit)
}

// Bound is a static loop bound with the same resolution rules as Length.
type Bound struct {
	Lit   int
	Param string
}

func (b Bound) String() string {
	if b.Param != "" {
		return b.Param
	}
	return fmt.Sprintf("%d", b.Lit)
}

// Source is a parsed right-hand-side function: the signature plus the
// statement list of its body.
type Source struct {
	Sig  Signature
	Body []Stmt
}
