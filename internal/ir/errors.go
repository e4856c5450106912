package ir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes validation errors.
type ErrorCode string

const (
	// ErrCodeInvalidKey indicates a key failed validation.
	ErrCodeInvalidKey ErrorCode = "INVALID_KEY"

	// ErrCodeInvalidValue indicates a value has the wrong shape, length, or is not finite.
	ErrCodeInvalidValue ErrorCode = "INVALID_VALUE"

	// ErrCodeReadOnly indicates an attempt to mutate a computed fact.
	ErrCodeReadOnly ErrorCode = "READ_ONLY"

	// ErrCodeCycleDetected indicates a computed definition would close a dependency cycle.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"

	// ErrCodeDuplicateComputed indicates a computed key is already registered.
	ErrCodeDuplicateComputed ErrorCode = "DUPLICATE_COMPUTED"
)

// ValidationError is returned synchronously by a mutation whose key or value
// is invalid. State is left unchanged.
type ValidationError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Key is the offending key as supplied by the caller (may be empty).
	Key string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s (key=%q)", e.Code, e.Message, e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// TypeError is returned when Toggle/Increment/Decrement find an existing
// value of the wrong kind. State is left unchanged.
type TypeError struct {
	// Op is the operation name ("toggle", "increment", "decrement").
	Op string

	// Key is the offending key.
	Key string

	// Want is the kind the operation requires.
	Want Kind

	// Got is the kind name of the stored value.
	Got string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("cannot %s %q: expected %s, found %s", e.Op, e.Key, e.Want, e.Got)
}

// NewValidationError creates a ValidationError.
func NewValidationError(code ErrorCode, key, message string) *ValidationError {
	return &ValidationError{Code: code, Key: key, Message: message}
}

// NewReadOnlyError creates the fixed error returned when mutating a computed fact.
func NewReadOnlyError(key string) *ValidationError {
	return &ValidationError{
		Code:    ErrCodeReadOnly,
		Key:     key,
		Message: "cannot modify computed flag",
	}
}

// IsValidationError returns true if err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsReadOnlyError returns true if err is a ValidationError with ErrCodeReadOnly.
func IsReadOnlyError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code == ErrCodeReadOnly
	}
	return false
}

// IsCycleError returns true if err is a ValidationError with ErrCodeCycleDetected.
func IsCycleError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code == ErrCodeCycleDetected
	}
	return false
}

// IsTypeError returns true if err is (or wraps) a TypeError.
func IsTypeError(err error) bool {
	var te *TypeError
	return errors.As(err, &te)
}
