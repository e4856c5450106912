package condition

import (
	"strings"

	"github.com/roach88/factstore/internal/ir"
)

// Lookup resolves an identifier to its current value.
// ok is false when no fact exists for key.
type Lookup func(key string) (value ir.Value, ok bool)

// parser evaluates while descending; it never builds a tree.
type parser struct {
	tokens []Token
	pos    int
	lookup Lookup
}

// Evaluate tokenizes, parses, and evaluates condition against lookup.
// The result is the truthiness of the whole expression.
func Evaluate(condition string, lookup Lookup) (bool, error) {
	v, err := evaluate(condition, lookup)
	if err != nil {
		return false, err
	}
	return ir.Truthy(v), nil
}

// Validate reports whether condition is well formed, evaluating it against
// an empty fact table.
func Validate(condition string) error {
	_, err := evaluate(condition, func(string) (ir.Value, bool) { return nil, false })
	return err
}

func evaluate(condition string, lookup Lookup) (ir.Value, error) {
	if strings.TrimSpace(condition) == "" {
		return nil, &SyntaxError{Code: ErrCodeEmpty, Message: "condition cannot be empty"}
	}

	tokens, err := Tokenize(condition)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens, lookup: lookup}
	v, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	// Trailing tokens after a complete expression
	if tok := p.cur(); tok.Type != TokenEOF {
		if tok.Type == TokenRParen {
			return nil, newSyntaxError(tok.Pos, "unmatched closing parenthesis")
		}
		return nil, newSyntaxError(tok.Pos, "unexpected %s after end of expression", describe(tok))
	}
	return v, nil
}

func (p *parser) cur() Token {
	return p.tokens[p.pos]
}

func (p *parser) advance() {
	if p.tokens[p.pos].Type != TokenEOF {
		p.pos++
	}
}

// parseOr parses: and (OR and)*
// A lone operand is returned as-is so "(gold) > 5" compares numbers.
func (p *parser) parseOr() (ir.Value, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	if p.cur().Type != TokenOr {
		return left, nil
	}

	result := ir.Truthy(left)
	for p.cur().Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		// Both sides already evaluated; no short-circuit
		result = ir.Truthy(right) || result
	}
	return ir.Bool(result), nil
}

// parseAnd parses: cmp (AND cmp)*
func (p *parser) parseAnd() (ir.Value, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if p.cur().Type != TokenAnd {
		return left, nil
	}

	result := ir.Truthy(left)
	for p.cur().Type == TokenAnd {
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		result = ir.Truthy(right) && result
	}
	return ir.Bool(result), nil
}

// parseComparison parses: unary (op unary)?
func (p *parser) parseComparison() (ir.Value, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	op := p.cur()
	if !isComparison(op.Type) {
		return left, nil
	}
	p.advance()

	right, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	result, err := compare(op, left, right)
	if err != nil {
		return nil, err
	}
	return ir.Bool(result), nil
}

// parseUnary parses: NOT unary | primary
func (p *parser) parseUnary() (ir.Value, error) {
	if p.cur().Type == TokenNot {
		p.advance()
		v, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ir.Bool(!ir.Truthy(v)), nil
	}
	return p.parsePrimary()
}

// parsePrimary parses: IDENT | NUMBER | STRING | BOOL | "(" or ")"
// Identifiers resolve immediately; absent facts yield a nil Value.
func (p *parser) parsePrimary() (ir.Value, error) {
	tok := p.cur()

	switch tok.Type {
	case TokenIdent:
		p.advance()
		v, ok := p.lookup(tok.Literal)
		if !ok {
			return nil, nil
		}
		return v, nil

	case TokenNumber, TokenString, TokenBool:
		p.advance()
		return tok.Value, nil

	case TokenLParen:
		p.advance()
		v, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closing := p.cur()
		if closing.Type != TokenRParen {
			if closing.Type == TokenEOF {
				return nil, newSyntaxError(tok.Pos, "unclosed parenthesis")
			}
			return nil, newSyntaxError(closing.Pos, "expected ')' but found %s", describe(closing))
		}
		p.advance()
		return v, nil

	case TokenEOF:
		return nil, newSyntaxError(tok.Pos, "unexpected end of condition: expected an operand")

	case TokenRParen:
		return nil, newSyntaxError(tok.Pos, "unmatched closing parenthesis")

	default:
		return nil, newSyntaxError(tok.Pos, "unexpected %s: expected an operand", describe(tok))
	}
}

func isComparison(t TokenType) bool {
	switch t {
	case TokenEq, TokenNotEq, TokenGT, TokenLT, TokenGTE, TokenLTE:
		return true
	default:
		return false
	}
}

// compare applies a comparison operator.
//
// Absent operands become Number(0). Mismatched kinds are false for both
// == and !=. Ordering two strings is an error; ordering with one string or
// any boolean is false.
func compare(op Token, left, right ir.Value) (bool, error) {
	if left == nil {
		left = ir.Number(0)
	}
	if right == nil {
		right = ir.Number(0)
	}

	switch op.Type {
	case TokenEq:
		if left.Kind() != right.Kind() {
			return false, nil
		}
		return ir.Equal(left, right), nil
	case TokenNotEq:
		if left.Kind() != right.Kind() {
			return false, nil
		}
		return !ir.Equal(left, right), nil
	}

	if left.Kind() == ir.KindString && right.Kind() == ir.KindString {
		return false, &SyntaxError{
			Code:    ErrCodeStringOrdering,
			Message: "ordering comparison " + op.Literal + " is not supported for strings",
			Pos:     op.Pos,
		}
	}

	l, lok := left.(ir.Number)
	r, rok := right.(ir.Number)
	if !lok || !rok {
		return false, nil
	}

	switch op.Type {
	case TokenGT:
		return l > r, nil
	case TokenLT:
		return l < r, nil
	case TokenGTE:
		return l >= r, nil
	case TokenLTE:
		return l <= r, nil
	default:
		return false, newSyntaxError(op.Pos, "unknown comparison operator %q", op.Literal)
	}
}

// describe renders a token for error messages.
func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of condition"
	case TokenAnd, TokenOr, TokenNot:
		return "operator " + tok.Literal
	case TokenString:
		return "string " + `"` + tok.Literal + `"`
	default:
		return "'" + tok.Literal + "'"
	}
}
