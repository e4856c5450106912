// Package condition implements the boolean condition language used to
// query facts, e.g. `gold >= 100 AND has_key`.
//
// The package has two stages:
//
//   - Tokenize converts a condition string into a flat token slice that
//     always ends with TokenEOF. Every token carries its 0-based character
//     position for error reporting.
//   - Evaluate runs a recursive-descent parser over the tokens and
//     evaluates while it descends. Identifiers are resolved immediately
//     through a caller-supplied Lookup; no syntax tree is kept and nothing
//     is cached between calls.
//
// Grammar (precedence low to high):
//
//	or      := and (OR and)*
//	and     := cmp (AND cmp)*
//	cmp     := unary (("==" | "!=" | ">" | "<" | ">=" | "<=") unary)?
//	unary   := (NOT | "!") unary | primary
//	primary := IDENT | NUMBER | STRING | BOOL | "(" or ")"
//
// Keywords (and, or, not, true, false) are case-insensitive.
//
// # Comparison Semantics
//
// An absent identifier compares as the number 0. Operands of different
// kinds are never equal AND never unequal: both == and != yield false.
// Ordering two strings is a syntax error; ordering a string against a
// number, or anything against a boolean, yields false.
//
// Both operands of AND and OR are always evaluated.
package condition
