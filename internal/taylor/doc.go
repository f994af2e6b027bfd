// Package taylor implements truncated power series (jets) with per-order
// coefficient recurrences.
//
// A Series holds the Taylor coefficients of one quantity up to a fixed
// maximum order. Two API layers are provided:
//
//   - Per-order updates (AddAt, MulAt, SinCosAt, ...) compute coefficient k
//     of the result from coefficients 0..k of the operands, without touching
//     any other order. The compiled recurrence evaluator is built entirely
//     out of these.
//   - Whole-series operations (Add, Mul, SinCos, ...) allocate a fresh result
//     and fill every order with the same recurrences. The generic
//     tree-interpreting evaluator uses these for cross-checking.
//
// Coupled pairs: sin/cos and sinh/cosh share a recurrence in which each
// member's order-k coefficient reads the other's lower orders, so both
// members must be produced together, sine first.
package taylor
