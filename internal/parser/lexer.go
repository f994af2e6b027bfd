package parser

import (
	"unicode"
	"unicode/utf8"
)

// tokKind is the type of a token.
type tokKind uint8

const (
	tokError tokKind = iota
	tokEOF
	tokNewline // statement separator: '\n' or ';'

	tokNumber
	tokIdent

	// Keywords
	tokArray
	tokIf
	tokElse
	tokFor
	tokIn

	// Operators
	tokPlus   // +
	tokMinus  // -
	tokStar   // *
	tokSlash  // /
	tokCaret  // ^
	tokAssign // =
	tokLt     // <
	tokGt     // >
	tokLtEq   // <=
	tokGtEq   // >=
	tokEqEq   // ==
	tokBangEq // !=
	tokColon  // :
	tokDot    // . (recognized only to reject broadcasting forms)

	// Compound assignment (recognized only to reject with a precise message)
	tokPlusEq  // +=
	tokMinusEq // -=
	tokStarEq  // *=
	tokSlashEq // /=
	tokCaretEq // ^=

	// Short-circuit operators (recognized only to reject)
	tokAmpAmp   // &&
	tokPipePipe // ||

	// Delimiters
	tokLParen   // (
	tokRParen   // )
	tokLBracket // [
	tokRBracket // ]
	tokLBrace   // {
	tokRBrace   // }
	tokComma    // ,
)

var keywords = map[string]tokKind{
	"array": tokArray,
	"if":    tokIf,
	"else":  tokElse,
	"for":   tokFor,
	"in":    tokIn,
}

// token is one lexed token with its 1-based source position.
type token struct {
	kind tokKind
	text string
	line int
	col  int
}

// lexer tokenizes right-hand-side source. '#' starts a line comment.
type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

// tokenize produces the full token stream, terminated by tokEOF.
// Consecutive separators collapse to a single tokNewline.
func (l *lexer) tokenize() []token {
	var toks []token
	for {
		t := l.next()
		if t.kind == tokNewline && len(toks) > 0 && toks[len(toks)-1].kind == tokNewline {
			continue
		}
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks
		}
	}
}

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *lexer) next() token {
	// Skip spaces, tabs, carriage returns, and comments.
	for l.pos < len(l.src) {
		c := l.peekByte()
		if c == ' ' || c == '\t' || c == '\r' {
			l.advance()
			continue
		}
		if c == '#' {
			for l.pos < len(l.src) && l.peekByte() != '\n' {
				l.advance()
			}
			continue
		}
		break
	}

	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: line, col: col}
	}

	c := l.peekByte()
	switch {
	case c == '\n' || c == ';':
		l.advance()
		return token{kind: tokNewline, text: string(c), line: line, col: col}
	case c >= '0' && c <= '9', c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]):
		return l.lexNumber(line, col)
	}
	// Identifiers may start beyond ASCII; classify the decoded rune, not
	// the UTF-8 lead byte.
	if r, _ := utf8.DecodeRuneInString(l.src[l.pos:]); isIdentStart(r) {
		return l.lexIdent(line, col)
	}

	l.advance()
	two := func(nextc byte, withKind, aloneKind tokKind) token {
		if l.peekByte() == nextc {
			l.advance()
			return token{kind: withKind, text: string(c) + string(nextc), line: line, col: col}
		}
		return token{kind: aloneKind, text: string(c), line: line, col: col}
	}

	switch c {
	case '+':
		return two('=', tokPlusEq, tokPlus)
	case '-':
		return two('=', tokMinusEq, tokMinus)
	case '*':
		return two('=', tokStarEq, tokStar)
	case '/':
		return two('=', tokSlashEq, tokSlash)
	case '^':
		return two('=', tokCaretEq, tokCaret)
	case '=':
		return two('=', tokEqEq, tokAssign)
	case '<':
		return two('=', tokLtEq, tokLt)
	case '>':
		return two('=', tokGtEq, tokGt)
	case '!':
		if l.peekByte() == '=' {
			l.advance()
			return token{kind: tokBangEq, text: "!=", line: line, col: col}
		}
		return token{kind: tokError, text: "!", line: line, col: col}
	case '&':
		if l.peekByte() == '&' {
			l.advance()
			return token{kind: tokAmpAmp, text: "&&", line: line, col: col}
		}
		return token{kind: tokError, text: "&", line: line, col: col}
	case '|':
		if l.peekByte() == '|' {
			l.advance()
			return token{kind: tokPipePipe, text: "||", line: line, col: col}
		}
		return token{kind: tokError, text: "|", line: line, col: col}
	case ':':
		return token{kind: tokColon, text: ":", line: line, col: col}
	case '.':
		return token{kind: tokDot, text: ".", line: line, col: col}
	case '(':
		return token{kind: tokLParen, text: "(", line: line, col: col}
	case ')':
		return token{kind: tokRParen, text: ")", line: line, col: col}
	case '[':
		return token{kind: tokLBracket, text: "[", line: line, col: col}
	case ']':
		return token{kind: tokRBracket, text: "]", line: line, col: col}
	case '{':
		return token{kind: tokLBrace, text: "{", line: line, col: col}
	case '}':
		return token{kind: tokRBrace, text: "}", line: line, col: col}
	case ',':
		return token{kind: tokComma, text: ",", line: line, col: col}
	}
	return token{kind: tokError, text: string(c), line: line, col: col}
}

func (l *lexer) lexNumber(line, col int) token {
	start := l.pos
	seenDot, seenExp := false, false
	for l.pos < len(l.src) {
		c := l.peekByte()
		if isDigit(c) {
			l.advance()
			continue
		}
		if c == '.' && !seenDot && !seenExp {
			// A second dot (1.2.3) or a dot before an exponent ends the number;
			// the stray dot is then rejected as broadcasting syntax upstream.
			seenDot = true
			l.advance()
			continue
		}
		if (c == 'e' || c == 'E') && !seenExp && l.pos > start {
			next := l.pos + 1
			if next < len(l.src) && (isDigit(l.src[next]) || l.src[next] == '+' || l.src[next] == '-') {
				seenExp = true
				l.advance() // e
				l.advance() // sign or first digit
				continue
			}
		}
		break
	}
	return token{kind: tokNumber, text: l.src[start:l.pos], line: line, col: col}
}

func (l *lexer) lexIdent(line, col int) token {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isIdentPart(r) {
			break
		}
		l.pos += size
		l.col++
	}
	text := l.src[start:l.pos]
	if kw, ok := keywords[text]; ok {
		return token{kind: kw, text: text, line: line, col: col}
	}
	return token{kind: tokIdent, text: text, line: line, col: col}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
