package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vram0gh/taylorize/internal/ir"
	"github.com/vram0gh/taylorize/internal/parser"
)

// The normalizer rewrites the parsed tree into strict three-address form:
// every subexpression with more than one operator becomes a binary-operator
// temporary, following the author's explicit parenthesization. It also
// enforces the restricted-subset rules the parser cannot see (roles,
// single assignment, branch output-set consistency) and unrolls loops with
// compile-time constant bounds.

// opndKind classifies a normalized operand.
type opndKind int

const (
	opLit opndKind = iota
	opTime
	opParam
	opState   // state element, elem is 1-based
	opSlot    // local, temporary, or pair member
	opArrElem // array element, elem is 1-based
)

// operand is an atomic value in three-address form.
type operand struct {
	pos    ir.Pos
	kind   opndKind
	lit    float64
	name   string       // param, slot, or array name
	member int          // pair member: 0 primary, 1 partner
	elem   ir.IndexExpr // state and array elements
}

// key renders the operand canonically, for pair memoization and self-alias
// checks.
func (o operand) key() string {
	switch o.kind {
	case opLit:
		return fmt.Sprintf("lit:%g", o.lit)
	case opTime:
		return "time"
	case opParam:
		return "param:" + o.name
	case opState:
		return "state:" + o.elem.String()
	case opSlot:
		return fmt.Sprintf("slot:%s.%d", o.name, o.member)
	case opArrElem:
		return fmt.Sprintf("arr:%s[%s]", o.name, o.elem.String())
	}
	return "?"
}

// targKind classifies a normalized assignment target.
type targKind int

const (
	tOut     targKind = iota // output element
	tSlot                    // local, temporary, or pair
	tArrElem                 // array element
)

type targ struct {
	pos  ir.Pos
	kind targKind
	name string
	elem ir.IndexExpr
}

// key renders the target for branch-consistency and reassignment checks.
// A loop-variable index renders as "*": it sweeps the whole element span,
// so span writes to one array (or the output) share a key regardless of
// which loop variable spelled them.
func (t targ) key() string {
	switch t.kind {
	case tOut:
		return "out[" + elemKey(t.elem) + "]"
	case tArrElem:
		return "arr:" + t.name + "[" + elemKey(t.elem) + "]"
	default:
		return "slot:" + t.name
	}
}

// spanPrefix is the key prefix shared by every element of the target's
// array or of the output.
func (t targ) spanPrefix() string {
	if t.kind == tOut {
		return "out["
	}
	return "arr:" + t.name + "["
}

func elemKey(e ir.IndexExpr) string {
	if e.Var != "" {
		return "*"
	}
	return e.String()
}

// nKind is the operation of a normalized statement. Each maps to exactly
// one per-order recurrence of the series library.
type nKind int

const (
	nCopy nKind = iota
	nBin        // binary + - * /
	nNeg
	nPowC // constant real exponent
	nExp
	nLog
	nSqrt
	nPair   // coupled sin/cos or sinh/cosh update
	nExtern // unknown-call fallback
)

// nstmt is one statement in three-address form: tgt = op(a, b).
type nstmt struct {
	pos   ir.Pos
	kind  nKind
	op    ir.BinOp
	alpha float64
	fn    string // nPair: "sincos"|"sinhcosh"; nExtern: call name
	tgt   targ
	a, b  operand
}

// nnode is a node of the normalized tree: a statement, a conditional, or a
// loop that survived unrolling.
type nnode interface{ nnode() }

type nif struct {
	pos       ir.Pos
	cmp       ir.CmpOp
	a, b      operand
	then, els []nnode
}

type nfor struct {
	pos     ir.Pos
	varName string
	iter    int // loop-variable register
	lo, hi  ir.Bound
	body    []nnode
}

func (*nstmt) nnode() {}
func (*nif) nnode()   {}
func (*nfor) nnode()  {}

// arrayInfo records one declared array for the planner.
type arrayInfo struct {
	pos  ir.Pos
	name string
	len  ir.Length
}

// normalized is the normalizer's output: the three-address tree plus the
// symbol information the planner needs.
type normalized struct {
	block    []nnode
	arrays   []arrayInfo
	numIters int
}

// role classifies an identifier.
type role int

const (
	roleState role = iota
	roleOutput
	roleTime
	roleParam
	roleSlot // user local or minted temporary (single series)
	rolePair // minted coupled pair
	roleArray
	roleLoopVar  // runtime loop variable (register)
	roleUnrolled // unrolled loop variable (compile-time constant)
)

type symbol struct {
	role role
	iter int       // roleLoopVar: register index
	val  int       // roleUnrolled: bound value
	len  ir.Length // roleArray
}

type norm struct {
	sig       ir.Signature
	dim       int
	syms      map[string]symbol
	writes    map[string]bool     // target keys assigned on the current path
	memo      []map[string]string // pair memo scopes, innermost last
	temps     int
	maxIters  int
	loopDepth int // runtime loops currently open
	arrays    []arrayInfo
}

// normalize runs the full pass over a parsed source.
func normalize(src *ir.Source, dim int) (*normalized, error) {
	n := &norm{
		sig:    src.Sig,
		dim:    dim,
		syms:   make(map[string]symbol),
		writes: make(map[string]bool),
		memo:   []map[string]string{{}},
	}
	n.syms[src.Sig.State] = symbol{role: roleState}
	n.syms[src.Sig.Output] = symbol{role: roleOutput}
	n.syms[src.Sig.Time] = symbol{role: roleTime}
	for _, p := range src.Sig.Params {
		n.syms[p] = symbol{role: roleParam}
	}

	blk, err := n.stmts(src.Body)
	if err != nil {
		return nil, err
	}
	return &normalized{block: blk, arrays: n.arrays, numIters: n.maxIters}, nil
}

func (n *norm) mintTemp() string {
	name := fmt.Sprintf("%s%d", parser.ReservedPrefix, n.temps)
	n.temps++
	return name
}

func (n *norm) pushMemo() { n.memo = append(n.memo, map[string]string{}) }
func (n *norm) popMemo()  { n.memo = n.memo[:len(n.memo)-1] }
func (n *norm) memoGet(k string) (string, bool) {
	for i := len(n.memo) - 1; i >= 0; i-- {
		if v, ok := n.memo[i][k]; ok {
			return v, true
		}
	}
	return "", false
}
func (n *norm) memoPut(k, v string) { n.memo[len(n.memo)-1][k] = v }

func (n *norm) stmts(body []ir.Stmt) ([]nnode, error) {
	var blk []nnode
	for _, s := range body {
		if err := n.stmt(s, &blk); err != nil {
			return nil, err
		}
	}
	return blk, nil
}

func (n *norm) stmt(s ir.Stmt, blk *[]nnode) error {
	switch st := s.(type) {
	case *ir.ArrayDecl:
		return n.arrayDecl(st)
	case *ir.Assign:
		return n.plainAssign(st, blk)
	case *ir.IndexAssign:
		return n.indexAssign(st, blk)
	case *ir.If:
		return n.conditional(st, blk)
	case *ir.For:
		return n.loop(st, blk)
	}
	return errAt(s.Pos(), ErrNotSeries, "unsupported statement form")
}

func (n *norm) arrayDecl(st *ir.ArrayDecl) error {
	if _, exists := n.syms[st.Name]; exists {
		return errAt(st.At, ErrDuplicateArray, "name %q is already declared", st.Name)
	}
	if st.Len.Param != "" {
		sym, ok := n.syms[st.Len.Param]
		if !ok || sym.role != roleParam {
			return errAt(st.At, ErrUndefinedName, "array length %q is not a declared parameter", st.Len.Param)
		}
	}
	if n.loopDepth > 0 {
		return errAt(st.At, ErrNotSeries, "array %q cannot be declared inside a loop", st.Name)
	}
	n.syms[st.Name] = symbol{role: roleArray, len: st.Len}
	n.arrays = append(n.arrays, arrayInfo{pos: st.At, name: st.Name, len: st.Len})
	return nil
}

func (n *norm) plainAssign(st *ir.Assign, blk *[]nnode) error {
	if sym, exists := n.syms[st.Name]; exists {
		switch sym.role {
		case roleState, roleParam, roleTime:
			return errAt(st.At, ErrAssignTarget, "cannot assign to %q", st.Name)
		case roleOutput:
			return errAt(st.At, ErrAssignTarget, "output %q must be assigned element-wise", st.Name)
		case roleArray:
			return errAt(st.At, ErrAssignTarget, "array %q must be assigned element-wise", st.Name)
		case roleLoopVar, roleUnrolled:
			return errAt(st.At, ErrAssignTarget, "cannot assign to loop variable %q", st.Name)
		}
	}
	if readsIdent(st.RHS, st.Name) {
		return errAt(st.At, ErrSelfAssign, "%q is assigned using its own prior value; introduce a distinct name", st.Name)
	}
	tgt := targ{pos: st.At, kind: tSlot, name: st.Name}
	if n.writes[tgt.key()] {
		return errAt(st.At, ErrReassign, "%q is assigned more than once; locals are single-assignment", st.Name)
	}
	if n.loopDepth > 0 {
		return errAt(st.At, ErrReassign, "local %q cannot be assigned inside a loop; assign an array element indexed by the loop variable", st.Name)
	}
	if err := n.assign(tgt, st.RHS, blk); err != nil {
		return err
	}
	n.syms[st.Name] = symbol{role: roleSlot}
	n.writes[tgt.key()] = true
	return nil
}

func (n *norm) indexAssign(st *ir.IndexAssign, blk *[]nnode) error {
	sym, exists := n.syms[st.Name]
	if !exists {
		return errAt(st.At, ErrUndefinedName, "undefined name %q", st.Name)
	}
	elem, err := n.elem(st.Elem)
	if err != nil {
		return err
	}
	var tgt targ
	switch sym.role {
	case roleOutput:
		if elem.Var == "" && (elem.Lit < 1 || elem.Lit > n.dim) {
			return errAt(st.At, ErrIndexRange, "output index %d outside 1..%d", elem.Lit, n.dim)
		}
		tgt = targ{pos: st.At, kind: tOut, elem: elem}
	case roleArray:
		if elem.Var == "" && sym.len.Param == "" && (elem.Lit < 1 || elem.Lit > sym.len.Lit) {
			return errAt(st.At, ErrIndexRange, "index %d outside 1..%d of array %q", elem.Lit, sym.len.Lit, st.Name)
		}
		tgt = targ{pos: st.At, kind: tArrElem, name: st.Name, elem: elem}
	case roleState, roleParam, roleTime:
		return errAt(st.At, ErrAssignTarget, "cannot assign to %q", st.Name)
	default:
		return errAt(st.At, ErrNotSeries, "%q is not an indexable target", st.Name)
	}
	if n.loopDepth > 0 {
		// A single index varies with at most one loop, so a write inside
		// loops is single-assignment only when it is indexed by the
		// variable of the sole enclosing loop. Everything else is written
		// again on some iteration.
		switch {
		case elem.Var == "":
			return errAt(st.At, ErrReassign, "%s is assigned on every iteration of the enclosing loop; index it with the loop variable", tgt.key())
		case n.syms[elem.Var].iter != n.loopDepth-1:
			return errAt(st.At, ErrReassign, "%s is indexed by an outer loop variable and assigned on every iteration of the enclosing loop", tgt.key())
		case n.loopDepth > 1:
			return errAt(st.At, ErrReassign, "%s is assigned on every iteration of the outer loop", tgt.key())
		}
	}
	if n.selfAliases(st.RHS, tgt) {
		return errAt(st.At, ErrSelfAssign, "%s is assigned using its own prior value; introduce a distinct name", tgt.key())
	}
	if n.overlapsWrite(tgt) {
		return errAt(st.At, ErrReassign, "%s is assigned more than once", tgt.key())
	}
	if err := n.assign(tgt, st.RHS, blk); err != nil {
		return err
	}
	n.writes[tgt.key()] = true
	return nil
}

// overlapsWrite reports whether tgt names storage already written on the
// current path. A span write overlaps every element of its array or of
// the output, and an element write overlaps a prior span write, so each
// element is written at most once per evaluation even when the indices
// are only known at run time.
func (n *norm) overlapsWrite(t targ) bool {
	if t.kind == tSlot {
		return n.writes[t.key()]
	}
	if n.writes[t.key()] {
		return true
	}
	prefix := t.spanPrefix()
	if t.elem.Var != "" {
		for k := range n.writes {
			if strings.HasPrefix(k, prefix) {
				return true
			}
		}
		return false
	}
	return n.writes[prefix+"*]"]
}

// elem resolves a 1-based index expression: literal indices stay literal,
// unrolled loop variables collapse to their constant value, runtime loop
// variables stay symbolic.
func (n *norm) elem(e ir.IndexExpr) (ir.IndexExpr, error) {
	if e.Var == "" {
		return e, nil
	}
	sym, ok := n.syms[e.Var]
	if !ok {
		return ir.IndexExpr{}, errAt(e.At, ErrUndefinedName, "undefined index %q", e.Var)
	}
	switch sym.role {
	case roleUnrolled:
		return ir.IndexExpr{At: e.At, Lit: sym.val}, nil
	case roleLoopVar:
		return e, nil
	}
	return ir.IndexExpr{}, errAt(e.At, ErrNotSeries, "index %q is not a loop variable", e.Var)
}

func (n *norm) conditional(st *ir.If, blk *[]nnode) error {
	// Predicate operands are hoisted before the branch, so the predicate
	// itself is decided on order-0 coefficients of already-computed series.
	a, err := n.atom(st.Cond.L, blk)
	if err != nil {
		return err
	}
	b, err := n.atom(st.Cond.R, blk)
	if err != nil {
		return err
	}

	branch := func(body []ir.Stmt) ([]nnode, map[string]bool, error) {
		saved := n.writes
		n.writes = make(map[string]bool, len(saved))
		for k, v := range saved {
			n.writes[k] = v
		}
		n.pushMemo()
		nodes, err := n.stmts(body)
		n.popMemo()
		writes := n.writes
		n.writes = saved
		if err != nil {
			return nil, nil, err
		}
		// Only the branch-local writes matter for the consistency check.
		delta := make(map[string]bool)
		for k := range writes {
			if !saved[k] {
				delta[k] = true
			}
		}
		return nodes, delta, nil
	}

	then, thenW, err := branch(st.Then)
	if err != nil {
		return err
	}
	els, elseW, err := branch(st.Else)
	if err != nil {
		return err
	}

	if !sameKeys(thenW, elseW) {
		return errAt(st.At, ErrBranchMismatch,
			"if/else branches assign different sets: then assigns {%s}, else assigns {%s}",
			joinKeys(thenW), joinKeys(elseW))
	}
	for k := range thenW {
		n.writes[k] = true
	}
	*blk = append(*blk, &nif{pos: st.At, cmp: st.Cond.Op, a: a, b: b, then: then, els: els})
	return nil
}

func (n *norm) loop(st *ir.For, blk *[]nnode) error {
	if _, exists := n.syms[st.Var]; exists {
		return errAt(st.At, ErrAssignTarget, "loop variable %q shadows an existing name", st.Var)
	}
	if err := n.checkBound(st.At, st.Lo); err != nil {
		return err
	}
	if err := n.checkBound(st.At, st.Hi); err != nil {
		return err
	}

	// Constant bounds unroll into repeated blocks with the loop variable
	// substituted; anything else stays a loop over a statically-determined
	// slot set.
	if st.Lo.Param == "" && st.Hi.Param == "" {
		if st.Lo.Lit > st.Hi.Lit {
			return errAt(st.At, ErrEmptyRange, "loop range %d:%d is empty", st.Lo.Lit, st.Hi.Lit)
		}
		for v := st.Lo.Lit; v <= st.Hi.Lit; v++ {
			n.syms[st.Var] = symbol{role: roleUnrolled, val: v}
			if err := n.stmtsInto(st.Body, blk); err != nil {
				delete(n.syms, st.Var)
				return err
			}
		}
		delete(n.syms, st.Var)
		return nil
	}

	reg := n.loopDepth
	if reg+1 > n.maxIters {
		n.maxIters = reg + 1
	}
	n.syms[st.Var] = symbol{role: roleLoopVar, iter: reg}
	n.loopDepth++
	n.pushMemo()
	body, err := n.stmts(st.Body)
	n.popMemo()
	n.loopDepth--
	delete(n.syms, st.Var)
	if err != nil {
		return err
	}
	*blk = append(*blk, &nfor{pos: st.At, varName: st.Var, iter: reg, lo: st.Lo, hi: st.Hi, body: body})
	return nil
}

func (n *norm) stmtsInto(body []ir.Stmt, blk *[]nnode) error {
	for _, s := range body {
		if err := n.stmt(s, blk); err != nil {
			return err
		}
	}
	return nil
}

func (n *norm) checkBound(pos ir.Pos, b ir.Bound) error {
	if b.Param == "" {
		return nil
	}
	sym, ok := n.syms[b.Param]
	if !ok || sym.role != roleParam {
		return errAt(pos, ErrUndefinedName, "loop bound %q is not a declared parameter", b.Param)
	}
	return nil
}

// assign emits the statement(s) computing e into tgt.
func (n *norm) assign(tgt targ, e ir.Expr, blk *[]nnode) error {
	switch ex := e.(type) {
	case *ir.Lit, *ir.Ident, *ir.Index:
		op, err := n.atom(e, blk)
		if err != nil {
			return err
		}
		*blk = append(*blk, &nstmt{pos: e.Pos(), kind: nCopy, tgt: tgt, a: op})
		return nil

	case *ir.Unary:
		if v, ok := litValue(ex); ok {
			*blk = append(*blk, &nstmt{pos: ex.At, kind: nCopy, tgt: tgt, a: operand{pos: ex.At, kind: opLit, lit: v}})
			return nil
		}
		op, err := n.atom(ex.X, blk)
		if err != nil {
			return err
		}
		*blk = append(*blk, &nstmt{pos: ex.At, kind: nNeg, tgt: tgt, a: op})
		return nil

	case *ir.Binary:
		return n.assignBinary(tgt, ex, blk)

	case *ir.Call:
		return n.assignCall(tgt, ex, blk)
	}
	return errAt(e.Pos(), ErrNotSeries, "unsupported expression form")
}

func (n *norm) assignBinary(tgt targ, ex *ir.Binary, blk *[]nnode) error {
	if ex.Op == ir.OpPow {
		return n.assignPow(tgt, ex.At, ex.L, ex.R, blk)
	}
	a, err := n.atom(ex.L, blk)
	if err != nil {
		return err
	}
	b, err := n.atom(ex.R, blk)
	if err != nil {
		return err
	}
	*blk = append(*blk, &nstmt{pos: ex.At, kind: nBin, op: ex.Op, tgt: tgt, a: a, b: b})
	return nil
}

// assignPow compiles base^exponent. A constant exponent uses the direct
// power recurrence; a series exponent is rewritten to exp(e·log(b)), the
// standard reduction for non-constant powers.
func (n *norm) assignPow(tgt targ, pos ir.Pos, base, exponent ir.Expr, blk *[]nnode) error {
	if alpha, ok := litValue(exponent); ok {
		a, err := n.atom(base, blk)
		if err != nil {
			return err
		}
		*blk = append(*blk, &nstmt{pos: pos, kind: nPowC, alpha: alpha, tgt: tgt, a: a})
		return nil
	}
	b, err := n.atom(base, blk)
	if err != nil {
		return err
	}
	e, err := n.atom(exponent, blk)
	if err != nil {
		return err
	}
	logT := n.mintTemp()
	*blk = append(*blk, &nstmt{pos: pos, kind: nLog, tgt: targ{pos: pos, kind: tSlot, name: logT}, a: b})
	n.syms[logT] = symbol{role: roleSlot}
	mulT := n.mintTemp()
	*blk = append(*blk, &nstmt{pos: pos, kind: nBin, op: ir.OpMul,
		tgt: targ{pos: pos, kind: tSlot, name: mulT},
		a:   e, b: operand{pos: pos, kind: opSlot, name: logT}})
	n.syms[mulT] = symbol{role: roleSlot}
	*blk = append(*blk, &nstmt{pos: pos, kind: nExp, tgt: tgt, a: operand{pos: pos, kind: opSlot, name: mulT}})
	return nil
}

// pairFns maps call names to their coupled recurrence group and member.
var pairFns = map[string]struct {
	group  string
	member int
}{
	"sin":  {"sincos", 0},
	"cos":  {"sincos", 1},
	"sinh": {"sinhcosh", 0},
	"cosh": {"sinhcosh", 1},
}

var singleFns = map[string]nKind{
	"exp":  nExp,
	"log":  nLog,
	"sqrt": nSqrt,
}

func (n *norm) assignCall(tgt targ, ex *ir.Call, blk *[]nnode) error {
	if pf, ok := pairFns[ex.Fn]; ok {
		if len(ex.Args) != 1 {
			return errAt(ex.At, ErrBadCall, "%s takes exactly one argument, got %d", ex.Fn, len(ex.Args))
		}
		member, err := n.pairMember(ex.At, pf.group, pf.member, ex.Args[0], blk)
		if err != nil {
			return err
		}
		*blk = append(*blk, &nstmt{pos: ex.At, kind: nCopy, tgt: tgt, a: member})
		return nil
	}
	if kind, ok := singleFns[ex.Fn]; ok {
		if len(ex.Args) != 1 {
			return errAt(ex.At, ErrBadCall, "%s takes exactly one argument, got %d", ex.Fn, len(ex.Args))
		}
		a, err := n.atom(ex.Args[0], blk)
		if err != nil {
			return err
		}
		*blk = append(*blk, &nstmt{pos: ex.At, kind: kind, tgt: tgt, a: a})
		return nil
	}
	if ex.Fn == "pow" {
		if len(ex.Args) != 2 {
			return errAt(ex.At, ErrBadCall, "pow takes exactly two arguments, got %d", len(ex.Args))
		}
		return n.assignPow(tgt, ex.At, ex.Args[0], ex.Args[1], blk)
	}

	// Unknown call: best-effort verbatim pass-through. The generated
	// instruction resolves the name in the series library's extension
	// table at evaluation time; nothing here verifies that the extension
	// preserves the recurrence contract.
	if len(ex.Args) != 1 {
		return errAt(ex.At, ErrBadCall, "unknown function %q with %d arguments cannot be passed through", ex.Fn, len(ex.Args))
	}
	a, err := n.atom(ex.Args[0], blk)
	if err != nil {
		return err
	}
	*blk = append(*blk, &nstmt{pos: ex.At, kind: nExtern, fn: ex.Fn, tgt: tgt, a: a})
	return nil
}

// pairMember returns the operand for one member of a coupled pair,
// emitting the pair update if the (group, argument) combination has not
// been computed yet on this path. sin(u) and a later cos(u) therefore
// share one pair slot and one update.
func (n *norm) pairMember(pos ir.Pos, group string, member int, arg ir.Expr, blk *[]nnode) (operand, error) {
	a, err := n.atom(arg, blk)
	if err != nil {
		return operand{}, err
	}
	memoKey := group + "|" + a.key()
	name, ok := n.memoGet(memoKey)
	if !ok {
		name = n.mintTemp()
		n.syms[name] = symbol{role: rolePair}
		*blk = append(*blk, &nstmt{pos: pos, kind: nPair, fn: group,
			tgt: targ{pos: pos, kind: tSlot, name: name}, a: a})
		n.memoPut(memoKey, name)
	}
	return operand{pos: pos, kind: opSlot, name: name, member: member}, nil
}

// atom reduces an expression to an atomic operand, hoisting anything
// compound into a minted temporary.
func (n *norm) atom(e ir.Expr, blk *[]nnode) (operand, error) {
	switch ex := e.(type) {
	case *ir.Lit:
		return operand{pos: ex.At, kind: opLit, lit: ex.Value}, nil

	case *ir.Ident:
		sym, ok := n.syms[ex.Name]
		if !ok {
			return operand{}, errAt(ex.At, ErrUndefinedName, "undefined name %q", ex.Name)
		}
		switch sym.role {
		case roleTime:
			return operand{pos: ex.At, kind: opTime}, nil
		case roleParam:
			return operand{pos: ex.At, kind: opParam, name: ex.Name}, nil
		case roleSlot:
			return operand{pos: ex.At, kind: opSlot, name: ex.Name}, nil
		case roleUnrolled:
			return operand{pos: ex.At, kind: opLit, lit: float64(sym.val)}, nil
		case roleLoopVar:
			return operand{}, errAt(ex.At, ErrNotSeries, "loop variable %q cannot be used as a value in a non-unrolled loop", ex.Name)
		case roleState:
			return operand{}, errAt(ex.At, ErrNotSeries, "state vector %q must be indexed", ex.Name)
		case roleOutput:
			return operand{}, errAt(ex.At, ErrOutputRead, "derivative output %q cannot be read", ex.Name)
		case roleArray:
			return operand{}, errAt(ex.At, ErrNotSeries, "array %q must be indexed", ex.Name)
		}
		return operand{}, errAt(ex.At, ErrUndefinedName, "undefined name %q", ex.Name)

	case *ir.Index:
		sym, ok := n.syms[ex.Name]
		if !ok {
			return operand{}, errAt(ex.At, ErrUndefinedName, "undefined name %q", ex.Name)
		}
		elem, err := n.elem(ex.Elem)
		if err != nil {
			return operand{}, err
		}
		switch sym.role {
		case roleState:
			if elem.Var == "" && (elem.Lit < 1 || elem.Lit > n.dim) {
				return operand{}, errAt(ex.At, ErrIndexRange, "state index %d outside 1..%d", elem.Lit, n.dim)
			}
			return operand{pos: ex.At, kind: opState, elem: elem}, nil
		case roleArray:
			if elem.Var == "" && sym.len.Param == "" && (elem.Lit < 1 || elem.Lit > sym.len.Lit) {
				return operand{}, errAt(ex.At, ErrIndexRange, "index %d outside 1..%d of array %q", elem.Lit, sym.len.Lit, ex.Name)
			}
			return operand{pos: ex.At, kind: opArrElem, name: ex.Name, elem: elem}, nil
		case roleOutput:
			return operand{}, errAt(ex.At, ErrOutputRead, "derivative output %q cannot be read", ex.Name)
		}
		return operand{}, errAt(ex.At, ErrNotSeries, "%q is not indexable", ex.Name)

	case *ir.Unary:
		if v, ok := litValue(ex); ok {
			return operand{pos: ex.At, kind: opLit, lit: v}, nil
		}
	case *ir.Call:
		if pf, ok := pairFns[ex.Fn]; ok && len(ex.Args) == 1 {
			return n.pairMember(ex.At, pf.group, pf.member, ex.Args[0], blk)
		}
	}

	// Compound subexpression: hoist into a fresh temporary.
	tmp := n.mintTemp()
	n.syms[tmp] = symbol{role: roleSlot}
	if err := n.assign(targ{pos: e.Pos(), kind: tSlot, name: tmp}, e, blk); err != nil {
		return operand{}, err
	}
	return operand{pos: e.Pos(), kind: opSlot, name: tmp}, nil
}

// litValue folds literal and negated-literal expressions to their value.
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

// readsIdent reports whether e reads the bare identifier name.
func readsIdent(e ir.Expr, name string) bool {
	switch ex := e.(type) {
	case *ir.Ident:
		return ex.Name == name
	case *ir.Unary:
		return readsIdent(ex.X, name)
	case *ir.Binary:
		return readsIdent(ex.L, name) || readsIdent(ex.R, name)
	case *ir.Call:
		for _, a := range ex.Args {
			if readsIdent(a, name) {
				return true
			}
		}
	}
	return false
}

// selfAliases reports whether e reads the element an indexed assignment
// is about to write. RHS indices resolve exactly as the target element
// did, so an unrolled loop variable matches its literal value, and any
// two loop-variable indices into one array count as overlapping. Output
// elements never alias since outputs cannot be read.
func (n *norm) selfAliases(e ir.Expr, tgt targ) bool {
	if tgt.kind != tArrElem {
		return false
	}
	switch ex := e.(type) {
	case *ir.Index:
		if ex.Name != tgt.name {
			return false
		}
		elem, err := n.elem(ex.Elem)
		if err != nil {
			// The read gets its own diagnostic during normalization.
			return false
		}
		return elemKey(elem) == elemKey(tgt.elem)
	case *ir.Unary:
		return n.selfAliases(ex.X, tgt)
	case *ir.Binary:
		return n.selfAliases(ex.L, tgt) || n.selfAliases(ex.R, tgt)
	case *ir.Call:
		for _, a := range ex.Args {
			if n.selfAliases(a, tgt) {
				return true
			}
		}
	}
	return false
}

func sameKeys(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func joinKeys(m map[string]bool) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
