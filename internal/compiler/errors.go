package compiler

import (
	"fmt"

	"github.com/vram0gh/taylorize/internal/ir"
)

// Compile error codes (E100-E199). Parse errors use E000-E099 in
// internal/parser; the two ranges never overlap so callers can match on
// codes without caring which pass failed.
const (
	ErrUndefinedName   = "E101" // identifier read before any assignment
	ErrSelfAssign      = "E102" // x = x + y: target aliases its own prior value
	ErrReassign        = "E103" // second assignment to a local or temporary
	ErrBranchMismatch  = "E104" // if/else branches assign different output sets
	ErrBadCall         = "E105" // known function called with wrong arity
	ErrNotSeries       = "E106" // loop variable or array used as a scalar value
	ErrIndexRange      = "E107" // literal index outside the declared bounds
	ErrAssignTarget    = "E108" // assignment to state, parameter, or time
	ErrOutputRead      = "E109" // derivative output read as an operand
	ErrDependencyCycle = "E110" // no consistent statement order exists
	ErrEmptyRange      = "E111" // constant loop range is empty
	ErrDuplicateArray  = "E112" // array name declared twice
)

// CompileError is a compile-time diagnostic identifying the offending
// statement. Compilation is all-or-nothing: a failed specialization is
// simply not registered and the generic evaluator remains available.
type CompileError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Pos     ir.Pos `json:"pos"`
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Pos, e.Message)
}

func errAt(pos ir.Pos, code, format string, args ...any) error {
	return &CompileError{Code: code, Message: fmt.Sprintf(format, args...), Pos: pos}
}
