// Package ir holds the shared representations of the compilation
// pipeline: the parsed expression tree, the allocation plan, the
// per-order instruction program, and the canonical hashing that names a
// right-hand side.
//
// This package contains type definitions and their serialization only.
// All other internal packages import ir; ir imports nothing internal.
package ir
