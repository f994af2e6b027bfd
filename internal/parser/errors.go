package parser

import "fmt"

// Parse error codes (E000-E099). Codes are stable: tests and callers match
// on them, messages are free to improve.
const (
	ErrSyntax         = "E001" // malformed token or statement
	ErrCompoundAssign = "E002" // x += y and friends
	ErrNAryChain      = "E003" // a+b+c without explicit parentheses
	ErrShortCircuit   = "E004" // && or || used as a conditional
	ErrBroadcast      = "E005" // broadcasting syntax (.op, f.(x))
	ErrReservedName   = "E006" // identifier uses the generated-name prefix
	ErrBadIndex       = "E007" // non-integer or non-loop-variable index
	ErrBadLength      = "E008" // array length not a literal or parameter name
	ErrBadCondition   = "E009" // conditional predicate is not a comparison
	ErrTrailingInput  = "E010" // input after the final statement
)

// ReservedPrefix marks generated names. User identifiers starting with it
// are rejected so minted temporaries can never collide with user code.
const ReservedPrefix = "_jet"

// ParseError is a structured parse failure naming the unsupported
// construct and its source location.
type ParseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line"`
	Col     int    `json:"col"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("[%s] %d:%d: %s", e.Code, e.Line, e.Col, e.Message)
}
