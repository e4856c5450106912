package condition

import (
	"errors"
	"fmt"
)

// SyntaxErrorCode categorizes condition failures.
type SyntaxErrorCode string

const (
	// ErrCodeEmpty indicates an empty or whitespace-only condition.
	ErrCodeEmpty SyntaxErrorCode = "EMPTY_CONDITION"

	// ErrCodeSyntax indicates a tokenizer or parser failure.
	ErrCodeSyntax SyntaxErrorCode = "SYNTAX"

	// ErrCodeStringOrdering indicates an ordering operator applied to two strings.
	ErrCodeStringOrdering SyntaxErrorCode = "UNSUPPORTED_ORDERING"

	// ErrCodeTooLong indicates the condition exceeds the configured maximum length.
	ErrCodeTooLong SyntaxErrorCode = "TOO_LONG"
)

// SyntaxError is returned when a condition cannot be tokenized, parsed, or
// evaluated. Pos is the 0-based character position of the offending token.
type SyntaxError struct {
	Code    SyntaxErrorCode
	Message string
	Pos     int
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e.Code == ErrCodeEmpty || e.Code == ErrCodeTooLong {
		return e.Message
	}
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Message)
}

func newSyntaxError(pos int, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Code:    ErrCodeSyntax,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
}

// IsSyntaxError returns true if err is (or wraps) a SyntaxError of any code.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

// IsEmptyConditionError returns true if err reports an empty condition.
func IsEmptyConditionError(err error) bool {
	var se *SyntaxError
	if errors.As(err, &se) {
		return se.Code == ErrCodeEmpty
	}
	return false
}
