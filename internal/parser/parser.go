// Package parser parses the restricted right-hand-side expression subset
// into the expression tree of internal/ir.
//
// The subset is deliberately narrow: statements are plain assignments,
// indexed assignments, fixed-size array declarations, two-way conditionals
// with comparison predicates, and loops over static ranges. Expressions
// are strictly binary; repeating + or * without explicit parentheses is a
// parse failure, not a default left fold. Unsupported constructs
// (compound assignment, short-circuit operators, broadcasting syntax) are
// recognized and rejected with a specific diagnostic rather than silently
// miscompiled.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vram0gh/taylorize/internal/ir"
)

// Parse parses right-hand-side source against a signature and returns the
// expression tree. Parsing is pure: it has no side effects and fails fast
// on the first unsupported construct.
func Parse(sig ir.Signature, source string) (*ir.Source, error) {
	p := &parser{toks: newLexer(source).tokenize()}
	body, err := p.parseStmts(tokEOF)
	if err != nil {
		return nil, err
	}
	if !p.at(tokEOF) {
		return nil, p.errf(ErrTrailingInput, "unexpected %q after statement", p.cur().text)
	}
	return &ir.Source{Sig: sig, Body: body}, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) at(k tokKind) bool { return p.cur().kind == k }

func (p *parser) next() token {
	t := p.cur()
	p.pos++
	return t
}

func (p *parser) skipNewlines() {
	for p.at(tokNewline) {
		p.pos++
	}
}

func (p *parser) expect(k tokKind, what string) (token, error) {
	if !p.at(k) {
		return token{}, p.errf(ErrSyntax, "expected %s, found %q", what, p.cur().text)
	}
	return p.next(), nil
}

func (p *parser) errf(code, format string, args ...any) error {
	t := p.cur()
	return &ParseError{Code: code, Message: fmt.Sprintf(format, args...), Line: t.line, Col: t.col}
}

func (p *parser) errAt(t token, code, format string, args ...any) error {
	return &ParseError{Code: code, Message: fmt.Sprintf(format, args...), Line: t.line, Col: t.col}
}

func pos(t token) ir.Pos { return ir.Pos{Line: t.line, Col: t.col} }

// parseStmts parses statements until the given terminator.
func (p *parser) parseStmts(until tokKind) ([]ir.Stmt, error) {
	var stmts []ir.Stmt
	for {
		p.skipNewlines()
		if p.at(until) || p.at(tokEOF) {
			return stmts, nil
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
		if !p.at(until) && !p.at(tokEOF) && !p.at(tokNewline) && !p.at(tokRBrace) {
			return nil, p.errf(ErrSyntax, "expected end of statement, found %q", p.cur().text)
		}
	}
}

func (p *parser) parseStmt() (ir.Stmt, error) {
	switch p.cur().kind {
	case tokArray:
		return p.parseArrayDecl()
	case tokIf:
		return p.parseIf()
	case tokFor:
		return p.parseFor()
	case tokIdent:
		return p.parseAssign()
	}
	return nil, p.errf(ErrSyntax, "expected statement, found %q", p.cur().text)
}

// parseArrayDecl parses: array name[len]
func (p *parser) parseArrayDecl() (ir.Stmt, error) {
	kw := p.next()
	name, err := p.ident("array name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLBracket, "'['"); err != nil {
		return nil, err
	}
	length, err := p.parseLength()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRBracket, "']'"); err != nil {
		return nil, err
	}
	return &ir.ArrayDecl{At: pos(kw), Name: name.text, Len: length}, nil
}

// parseLength parses a static array length: an integer literal or a named
// parameter. Anything else is a dynamically-sized declaration and is
// rejected.
func (p *parser) parseLength() (ir.Length, error) {
	switch p.cur().kind {
	case tokNumber:
		t := p.next()
		n, err := strconv.Atoi(t.text)
		if err != nil || n < 1 {
			return ir.Length{}, p.errAt(t, ErrBadLength, "array length must be a positive integer, got %q", t.text)
		}
		return ir.Length{Lit: n}, nil
	case tokIdent:
		t := p.next()
		if err := p.checkName(t); err != nil {
			return ir.Length{}, err
		}
		return ir.Length{Param: t.text}, nil
	}
	return ir.Length{}, p.errf(ErrBadLength, "array length must be a literal or parameter name, found %q", p.cur().text)
}

// parseIf parses: if a < b { ... } [else { ... }]
func (p *parser) parseIf() (ir.Stmt, error) {
	kw := p.next()
	cond, err := p.parseCond()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var els []ir.Stmt
	p.skipNewlines()
	if p.at(tokElse) {
		p.next()
		p.skipNewlines()
		els, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	return &ir.If{At: pos(kw), Cond: cond, Then: then, Else: els}, nil
}

// parseCond parses a comparison predicate. Short-circuit chains are
// rejected here: series-valued boolean algebra is not defined for
// orders > 0, so a predicate is exactly one comparison over order-0
// values.
func (p *parser) parseCond() (*ir.Compare, error) {
	lhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	var op ir.CmpOp
	t := p.cur()
	switch t.kind {
	case tokLt:
		op = ir.CmpLT
	case tokLtEq:
		op = ir.CmpLE
	case tokGt:
		op = ir.CmpGT
	case tokGtEq:
		op = ir.CmpGE
	case tokEqEq:
		op = ir.CmpEQ
	case tokBangEq:
		op = ir.CmpNE
	case tokAmpAmp, tokPipePipe:
		return nil, p.errAt(t, ErrShortCircuit, "short-circuit operator %q is not supported in conditionals", t.text)
	default:
		return nil, p.errAt(t, ErrBadCondition, "conditional predicate must be a comparison, found %q", t.text)
	}
	p.next()
	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	switch p.cur().kind {
	case tokAmpAmp, tokPipePipe:
		return nil, p.errf(ErrShortCircuit, "short-circuit operator %q is not supported in conditionals", p.cur().text)
	case tokLt, tokLtEq, tokGt, tokGtEq, tokEqEq, tokBangEq:
		return nil, p.errf(ErrBadCondition, "chained comparisons are not supported")
	}
	return &ir.Compare{At: lhs.Pos(), Op: op, L: lhs, R: rhs}, nil
}

func (p *parser) parseBlock() ([]ir.Stmt, error) {
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}
	stmts, err := p.parseStmts(tokRBrace)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return stmts, nil
}

// parseFor parses: for i in lo:hi { ... }
func (p *parser) parseFor() (ir.Stmt, error) {
	kw := p.next()
	loopVar, err := p.ident("loop variable")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokIn, "'in'"); err != nil {
		return nil, err
	}
	lo, err := p.parseBound()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	hi, err := p.parseBound()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ir.For{At: pos(kw), Var: loopVar.text, Lo: lo, Hi: hi, Body: body}, nil
}

// parseBound parses a static loop bound with the same rules as array
// lengths: bounds never depend on integration data.
func (p *parser) parseBound() (ir.Bound, error) {
	switch p.cur().kind {
	case tokNumber:
		t := p.next()
		n, err := strconv.Atoi(t.text)
		if err != nil {
			return ir.Bound{}, p.errAt(t, ErrBadLength, "loop bound must be an integer, got %q", t.text)
		}
		return ir.Bound{Lit: n}, nil
	case tokIdent:
		t := p.next()
		if err := p.checkName(t); err != nil {
			return ir.Bound{}, err
		}
		return ir.Bound{Param: t.text}, nil
	}
	return ir.Bound{}, p.errf(ErrBadLength, "loop bound must be a literal or parameter name, found %q", p.cur().text)
}

// parseAssign parses: name = expr | name[idx] = expr.
// Compound assignment operators are recognized and rejected here with the
// exact operator named, never treated as plain assignment.
func (p *parser) parseAssign() (ir.Stmt, error) {
	name := p.next()
	if err := p.checkName(name); err != nil {
		return nil, err
	}
	if p.at(tokDot) {
		return nil, p.errf(ErrBroadcast, "broadcasting syntax is not supported")
	}

	var elem *ir.IndexExpr
	if p.at(tokLBracket) {
		p.next()
		ix, err := p.parseIndexExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		elem = &ix
	}

	switch t := p.cur(); t.kind {
	case tokAssign:
		p.next()
	case tokPlusEq, tokMinusEq, tokStarEq, tokSlashEq, tokCaretEq:
		return nil, p.errAt(t, ErrCompoundAssign, "compound assignment %q is not supported; write the full expression", t.text)
	default:
		return nil, p.errAt(t, ErrSyntax, "expected '=', found %q", t.text)
	}

	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if elem != nil {
		return &ir.IndexAssign{At: pos(name), Name: name.text, Elem: *elem, RHS: rhs}, nil
	}
	return &ir.Assign{At: pos(name), Name: name.text, RHS: rhs}, nil
}

// parseIndexExpr parses a 1-based element index: an integer literal or a
// loop variable name.
func (p *parser) parseIndexExpr() (ir.IndexExpr, error) {
	switch p.cur().kind {
	case tokNumber:
		t := p.next()
		n, err := strconv.Atoi(t.text)
		if err != nil || n < 1 {
			return ir.IndexExpr{}, p.errAt(t, ErrBadIndex, "index must be a positive integer or loop variable, got %q", t.text)
		}
		return ir.IndexExpr{At: pos(t), Lit: n}, nil
	case tokIdent:
		t := p.next()
		if err := p.checkName(t); err != nil {
			return ir.IndexExpr{}, err
		}
		return ir.IndexExpr{At: pos(t), Var: t.text}, nil
	}
	return ir.IndexExpr{}, p.errf(ErrBadIndex, "index must be a literal or loop variable, found %q", p.cur().text)
}

// Expression grammar, loosest to tightest binding:
//
//	expr   = mul { ('+'|'-') mul }
//	mul    = unary { ('*'|'/') unary }
//	unary  = '-' unary | power
//	power  = primary [ '^' unary ]
//
// Repeating the n-ary operators + or * without parentheses is rejected:
// the rewrite into binary temporaries must follow the author's explicit
// parenthesization, not an association order the compiler invents.

func (p *parser) parseExpr() (ir.Expr, error) {
	lhs, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		var op ir.BinOp
		switch t.kind {
		case tokPlus:
			op = ir.OpAdd
		case tokMinus:
			op = ir.OpSub
		case tokDot:
			return nil, p.errAt(t, ErrBroadcast, "broadcasting syntax is not supported")
		default:
			return lhs, nil
		}
		if op == ir.OpAdd {
			if b, ok := lhs.(*ir.Binary); ok && b.Op == ir.OpAdd && !b.Paren {
				return nil, p.errAt(t, ErrNAryChain, "write (a + b) + c: three or more '+' operands need explicit parentheses")
			}
		}
		p.next()
		rhs, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		lhs = &ir.Binary{At: lhs.Pos(), Op: op, L: lhs, R: rhs}
	}
}

func (p *parser) parseMul() (ir.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		var op ir.BinOp
		switch t.kind {
		case tokStar:
			op = ir.OpMul
		case tokSlash:
			op = ir.OpDiv
		default:
			return lhs, nil
		}
		if op == ir.OpMul {
			if b, ok := lhs.(*ir.Binary); ok && b.Op == ir.OpMul && !b.Paren {
				return nil, p.errAt(t, ErrNAryChain, "write (a * b) * c: three or more '*' operands need explicit parentheses")
			}
		}
		p.next()
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lhs = &ir.Binary{At: lhs.Pos(), Op: op, L: lhs, R: rhs}
	}
}

func (p *parser) parseUnary() (ir.Expr, error) {
	if p.at(tokMinus) {
		t := p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ir.Unary{At: pos(t), X: x}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (ir.Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.at(tokCaret) {
		p.next()
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ir.Binary{At: base.Pos(), Op: ir.OpPow, L: base, R: exp}, nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (ir.Expr, error) {
	switch t := p.cur(); t.kind {
	case tokNumber:
		p.next()
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			if strings.Count(t.text, ".") > 1 {
				return nil, p.errAt(t, ErrBroadcast, "broadcasting syntax is not supported")
			}
			return nil, p.errAt(t, ErrSyntax, "malformed number %q", t.text)
		}
		return &ir.Lit{At: pos(t), Value: v}, nil

	case tokLParen:
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		markParen(e)
		return e, nil

	case tokIdent:
		p.next()
		if err := p.checkName(t); err != nil {
			return nil, err
		}
		switch p.cur().kind {
		case tokLBracket:
			p.next()
			ix, err := p.parseIndexExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket, "']'"); err != nil {
				return nil, err
			}
			return &ir.Index{At: pos(t), Name: t.text, Elem: ix}, nil
		case tokLParen:
			return p.parseCallArgs(t)
		case tokDot:
			return nil, p.errf(ErrBroadcast, "broadcasting syntax is not supported")
		}
		return &ir.Ident{At: pos(t), Name: t.text}, nil
	}
	return nil, p.errf(ErrSyntax, "expected expression, found %q", p.cur().text)
}

func (p *parser) parseCallArgs(name token) (ir.Expr, error) {
	p.next() // '('
	var args []ir.Expr
	if !p.at(tokRParen) {
		for {
			a, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if !p.at(tokComma) {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return &ir.Call{At: pos(name), Fn: name.text, Args: args}, nil
}

func (p *parser) ident(what string) (token, error) {
	t, err := p.expect(tokIdent, what)
	if err != nil {
		return token{}, err
	}
	if err := p.checkName(t); err != nil {
		return token{}, err
	}
	return t, nil
}

// checkName rejects identifiers carrying the reserved generated-name
// prefix, so minted temporaries can never collide with user names.
func (p *parser) checkName(t token) error {
	if strings.HasPrefix(t.text, ReservedPrefix) {
		return p.errAt(t, ErrReservedName, "identifier %q uses the reserved prefix %q", t.text, ReservedPrefix)
	}
	return nil
}

// markParen records explicit parenthesization on nodes that participate in
// the n-ary chain check.
func markParen(e ir.Expr) {
	switch n := e.(type) {
	case *ir.Binary:
		n.Paren = true
	case *ir.Unary:
		n.Paren = true
	}
}
