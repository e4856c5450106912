package condition

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/factstore/internal/ir"
)

// TokenType identifies the kind of a token.
type TokenType int

const (
	// TokenEOF ends every token stream.
	TokenEOF TokenType = iota

	// Literals
	TokenIdent  // fact reference
	TokenNumber // 42, -3.5
	TokenString // "text" or 'text'
	TokenBool   // true, false

	// Logical operators
	TokenAnd // AND
	TokenOr  // OR
	TokenNot // NOT or !

	// Comparison operators
	TokenEq    // ==
	TokenNotEq // !=
	TokenGT    // >
	TokenLT    // <
	TokenGTE   // >=
	TokenLTE   // <=

	// Delimiters
	TokenLParen // (
	TokenRParen // )
)

var tokenNames = map[TokenType]string{
	TokenEOF:    "EOF",
	TokenIdent:  "IDENT",
	TokenNumber: "NUMBER",
	TokenString: "STRING",
	TokenBool:   "BOOL",
	TokenAnd:    "AND",
	TokenOr:     "OR",
	TokenNot:    "NOT",
	TokenEq:     "==",
	TokenNotEq:  "!=",
	TokenGT:     ">",
	TokenLT:     "<",
	TokenGTE:    ">=",
	TokenLTE:    "<=",
	TokenLParen: "(",
	TokenRParen: ")",
}

// String returns the display name of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "ILLEGAL"
}

// Token is a single lexical unit of a condition.
type Token struct {
	Type TokenType

	// Literal is the surface text. Keywords are normalized to AND/OR/NOT;
	// string literals hold the decoded contents.
	Literal string

	// Pos is the 0-based character position where the token starts.
	Pos int

	// Value holds the decoded literal for TokenNumber, TokenString, and TokenBool.
	Value ir.Value
}

var keywords = map[string]TokenType{
	"and": TokenAnd,
	"or":  TokenOr,
	"not": TokenNot,
}

type lexer struct {
	input []rune
	pos   int // current position in input (points to current char)
}

// Tokenize converts a condition string into tokens.
// The returned slice always ends with a TokenEOF token.
func Tokenize(input string) ([]Token, error) {
	l := &lexer{input: []rune(input)}

	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) peekChar() rune {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *lexer) nextToken() (Token, error) {
	l.skipWhitespace()

	start := l.pos
	if start >= len(l.input) {
		return Token{Type: TokenEOF, Pos: start}, nil
	}

	ch := l.input[start]
	switch {
	case ch == '(':
		l.pos++
		return Token{Type: TokenLParen, Literal: "(", Pos: start}, nil
	case ch == ')':
		l.pos++
		return Token{Type: TokenRParen, Literal: ")", Pos: start}, nil
	case ch == '"' || ch == '\'':
		return l.readString(ch)
	case ch == '=':
		if l.peekChar() == '=' {
			l.pos += 2
			return Token{Type: TokenEq, Literal: "==", Pos: start}, nil
		}
		return Token{}, newSyntaxError(start, "unexpected character '='")
	case ch == '!':
		if l.peekChar() == '=' {
			l.pos += 2
			return Token{Type: TokenNotEq, Literal: "!=", Pos: start}, nil
		}
		l.pos++
		return Token{Type: TokenNot, Literal: "!", Pos: start}, nil
	case ch == '>':
		if l.peekChar() == '=' {
			l.pos += 2
			return Token{Type: TokenGTE, Literal: ">=", Pos: start}, nil
		}
		l.pos++
		return Token{Type: TokenGT, Literal: ">", Pos: start}, nil
	case ch == '<':
		if l.peekChar() == '=' {
			l.pos += 2
			return Token{Type: TokenLTE, Literal: "<=", Pos: start}, nil
		}
		l.pos++
		return Token{Type: TokenLT, Literal: "<", Pos: start}, nil
	case ch == '-' && isDigit(l.peekChar()):
		word := l.readWord()
		return numberToken(word, start)
	case isWordChar(ch):
		return l.readBareWord()
	default:
		return Token{}, newSyntaxError(start, "unexpected character %q", ch)
	}
}

// readString reads a quoted literal. The current char is the opening quote.
// Errors report the position of the opening quote.
func (l *lexer) readString(quote rune) (Token, error) {
	start := l.pos
	l.pos++ // opening quote

	var sb strings.Builder
	for {
		if l.pos >= len(l.input) {
			return Token{}, newSyntaxError(start, "unterminated string literal")
		}
		ch := l.input[l.pos]
		switch ch {
		case '\\':
			if l.pos+1 >= len(l.input) {
				return Token{}, newSyntaxError(start, "unterminated escape sequence in string literal")
			}
			esc := l.input[l.pos+1]
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			default:
				sb.WriteRune(esc)
			}
			l.pos += 2
		case quote:
			l.pos++
			s := sb.String()
			return Token{Type: TokenString, Literal: s, Pos: start, Value: ir.String(s)}, nil
		default:
			sb.WriteRune(ch)
			l.pos++
		}
	}
}

// readWord consumes a run of word characters and returns it.
func (l *lexer) readWord() string {
	start := l.pos
	// A leading '-' is part of the word for negative numbers
	l.pos++
	for l.pos < len(l.input) && isWordChar(l.input[l.pos]) {
		l.pos++
	}
	return string(l.input[start:l.pos])
}

func (l *lexer) readBareWord() (Token, error) {
	start := l.pos
	word := l.readWord()
	lower := strings.ToLower(word)

	switch lower {
	case "true":
		return Token{Type: TokenBool, Literal: word, Pos: start, Value: ir.Bool(true)}, nil
	case "false":
		return Token{Type: TokenBool, Literal: word, Pos: start, Value: ir.Bool(false)}, nil
	}

	if tt, ok := keywords[lower]; ok {
		return Token{Type: tt, Literal: strings.ToUpper(lower), Pos: start}, nil
	}

	if isDigit([]rune(word)[0]) {
		return numberToken(word, start)
	}

	return Token{Type: TokenIdent, Literal: word, Pos: start}, nil
}

// numberToken validates a numeric word: optional leading '-', digits,
// and at most one decimal point.
func numberToken(word string, start int) (Token, error) {
	digits := strings.TrimPrefix(word, "-")
	if strings.Count(digits, ".") > 1 {
		return Token{}, newSyntaxError(start, "invalid number %q: multiple decimal points", word)
	}
	for _, r := range digits {
		if !isDigit(r) && r != '.' {
			return Token{}, newSyntaxError(start, "invalid number %q", word)
		}
	}

	f, err := strconv.ParseFloat(word, 64)
	if err != nil {
		return Token{}, newSyntaxError(start, "invalid number %q", word)
	}
	return Token{Type: TokenNumber, Literal: word, Pos: start, Value: ir.Number(f)}, nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// isWordChar reports whether r belongs to the bare-word class [a-zA-Z0-9_.-].
func isWordChar(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		isDigit(r) ||
		r == '_' || r == '.' || r == '-'
}
