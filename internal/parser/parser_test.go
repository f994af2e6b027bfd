package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vram0gh/taylorize/internal/ir"
)

func parseDefault(t *testing.T, source string) *ir.Source {
	t.Helper()
	src, err := Parse(ir.DefaultSignature([]string{"a", "b"}), source)
	require.NoError(t, err)
	return src
}

func parseErrCode(t *testing.T, source string) string {
	t.Helper()
	_, err := Parse(ir.DefaultSignature([]string{"a", "b"}), source)
	require.Error(t, err)
	var perr *ParseError
	require.True(t, errors.As(err, &perr), "want *ParseError, got %T: %v", err, err)
	return perr.Code
}

func TestParseSimpleAssignments(t *testing.T) {
	src := parseDefault(t, `
		v = x[1] * a
		dx[1] = v
		dx[2] = -x[2]
	`)
	require.Len(t, src.Body, 3)

	assign, ok := src.Body[0].(*ir.Assign)
	require.True(t, ok)
	assert.Equal(t, "v", assign.Name)

	out, ok := src.Body[1].(*ir.IndexAssign)
	require.True(t, ok)
	assert.Equal(t, "dx", out.Name)
	assert.Equal(t, 1, out.Elem.Lit)

	neg, ok := src.Body[2].(*ir.IndexAssign)
	require.True(t, ok)
	_, ok = neg.RHS.(*ir.Unary)
	assert.True(t, ok)
}

func TestParseSeparatorsAndComments(t *testing.T) {
	src := parseDefault(t, "v = a; dx[1] = v # trailing comment\n# whole-line comment\ndx[2] = v")
	assert.Len(t, src.Body, 3)
}

func TestParseCallsAndPow(t *testing.T) {
	src := parseDefault(t, `
		dx[1] = sin(x[1])
		dx[2] = pow(x[2], 3)
	`)
	call, ok := src.Body[0].(*ir.IndexAssign).RHS.(*ir.Call)
	require.True(t, ok)
	assert.Equal(t, "sin", call.Fn)
	require.Len(t, call.Args, 1)

	pw, ok := src.Body[1].(*ir.IndexAssign).RHS.(*ir.Call)
	require.True(t, ok)
	assert.Equal(t, "pow", pw.Fn)
	assert.Len(t, pw.Args, 2)
}

func TestParseCaretIsPow(t *testing.T) {
	src := parseDefault(t, "dx[1] = x[1]^2")
	bin, ok := src.Body[0].(*ir.IndexAssign).RHS.(*ir.Binary)
	require.True(t, ok)
	assert.Equal(t, ir.OpPow, bin.Op)
}

func TestParseArrayAndLoop(t *testing.T) {
	src := parseDefault(t, `
		array v[3]
		for i in 1:3 {
			v[i] = x[1] * i
		}
		dx[1] = v[2]
	`)
	decl, ok := src.Body[0].(*ir.ArrayDecl)
	require.True(t, ok)
	assert.Equal(t, "v", decl.Name)
	assert.Equal(t, 3, decl.Len.Lit)

	loop, ok := src.Body[1].(*ir.For)
	require.True(t, ok)
	assert.Equal(t, "i", loop.Var)
	assert.Equal(t, 1, loop.Lo.Lit)
	assert.Equal(t, 3, loop.Hi.Lit)
	require.Len(t, loop.Body, 1)
}

func TestParseParamBounds(t *testing.T) {
	src := parseDefault(t, `
		array v[a]
		for i in 1:b {
			v[1] = x[1]
		}
		dx[1] = v[1]
	`)
	decl := src.Body[0].(*ir.ArrayDecl)
	assert.Equal(t, "a", decl.Len.Param)
	loop := src.Body[1].(*ir.For)
	assert.Equal(t, "b", loop.Hi.Param)
}

func TestParseConditional(t *testing.T) {
	src := parseDefault(t, `
		if x[1] < 0 {
			dx[1] = -x[1]
		} else {
			dx[1] = x[1]
		}
	`)
	cond, ok := src.Body[0].(*ir.If)
	require.True(t, ok)
	assert.Equal(t, ir.CmpLT, cond.Cond.Op)
	assert.Len(t, cond.Then, 1)
	assert.Len(t, cond.Else, 1)
}

func TestParseParenthesizedChains(t *testing.T) {
	// Parenthesized repetition of the same operator is fine.
	parseDefault(t, "dx[1] = (x[1] + a) + b")
	parseDefault(t, "dx[1] = x[1] * (a * b)")
	// Mixed precedence needs no parentheses.
	parseDefault(t, "dx[1] = x[1] * a + b")
	parseDefault(t, "dx[1] = a - x[1] - b")
}

func TestRejections(t *testing.T) {
	tests := []struct {
		name   string
		source string
		code   string
	}{
		{"compound plus", "v = a\nv += x[1]", ErrCompoundAssign},
		{"compound times", "v = a\nv *= 2", ErrCompoundAssign},
		{"nary add chain", "dx[1] = x[1] + a + b", ErrNAryChain},
		{"nary mul chain", "dx[1] = x[1] * a * b", ErrNAryChain},
		{"short circuit and", "if x[1] < 0 && x[2] < 0 { dx[1] = a }", ErrShortCircuit},
		{"short circuit or", "if x[1] < 0 || x[2] < 0 { dx[1] = a }", ErrShortCircuit},
		{"broadcast call", "dx[1] = sin.(x[1])", ErrBroadcast},
		{"broadcast op", "dx[1] = x .* a", ErrBroadcast},
		{"reserved prefix", "_jetv = a", ErrReservedName},
		{"zero index", "dx[0] = a", ErrBadIndex},
		{"float index", "dx[1.5] = a", ErrBadIndex},
		{"float length", "array v[2.5]\ndx[1] = a", ErrBadLength},
		{"bare condition", "if x[1] { dx[1] = a }", ErrBadCondition},
		{"double compare", "if x[1] < a < b { dx[1] = a }", ErrBadCondition},
		{"missing rhs", "dx[1] =", ErrSyntax},
		{"stray rbrace", "dx[1] = a\n}", ErrSyntax},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, parseErrCode(t, tc.source), "source: %s", tc.source)
		})
	}
}

func TestErrorCarriesPosition(t *testing.T) {
	_, err := Parse(ir.DefaultSignature(nil), "dx[1] = x[1]\nv += 2")
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 2, perr.Line)
	assert.Contains(t, perr.Error(), "[E002]")
}

func TestUnicodeIdentifiers(t *testing.T) {
	src, err := Parse(ir.DefaultSignature([]string{"ω"}), "dx[1] = ω * x[1]")
	require.NoError(t, err)
	bin := src.Body[0].(*ir.IndexAssign).RHS.(*ir.Binary)
	id, ok := bin.L.(*ir.Ident)
	require.True(t, ok)
	assert.Equal(t, "ω", id.Name)

	// Identifier classification must look at the decoded rune. Letters
	// whose UTF-8 lead byte maps to a non-letter Latin-1 codepoint (Hebrew,
	// Cyrillic) would otherwise be rejected at the first byte.
	for _, name := range []string{"אלפא", "скорость"} {
		src, err := Parse(ir.DefaultSignature(nil), name+" = 2\ndx[1] = "+name+" * x[1]")
		require.NoError(t, err, "ident %q", name)
		local := src.Body[0].(*ir.Assign)
		assert.Equal(t, name, local.Name)
	}
}

func TestSubtractionChainAllowed(t *testing.T) {
	// Only + and * chains are ambiguous under reassociation rules; a-b-c
	// parses left-associated without complaint.
	src := parseDefault(t, "dx[1] = a - b - x[1]")
	_, ok := src.Body[0].(*ir.IndexAssign).RHS.(*ir.Binary)
	assert.True(t, ok)
}
