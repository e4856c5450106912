package ir

import (
	"fmt"
	"math"
	"strings"
)

// Limits enforced on keys, string values, and condition strings.
const (
	// MaxKeyLength is the maximum key length in bytes, after trimming.
	MaxKeyLength = 256

	// MaxStringLength is the maximum length of a String value in bytes.
	MaxStringLength = 10000

	// MaxConditionLength is the maximum length of a condition in characters
	// (runes).
	MaxConditionLength = 10000
)

// reservedWords are the condition keywords a key may not equal (case-insensitive).
var reservedWords = []string{"and", "or", "not"}

// hazardKeys are identifiers that must never become keys, including when
// loaded from persisted data.
var hazardKeys = []string{"__proto__", "constructor", "prototype"}

// operatorFragments may not appear anywhere inside a key.
var operatorFragments = []string{">=", "<=", "==", "!=", ">", "<"}

// NormalizeKey trims surrounding whitespace from key and validates it.
// Returns the trimmed key or a ValidationError.
func NormalizeKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if err := validateTrimmedKey(trimmed, key); err != nil {
		return "", err
	}
	return trimmed, nil
}

// ValidateKey validates key as given (after trimming).
func ValidateKey(key string) error {
	_, err := NormalizeKey(key)
	return err
}

// IsHazardKey reports whether key is one of the prototype-hazard identifiers.
func IsHazardKey(key string) bool {
	for _, h := range hazardKeys {
		if key == h {
			return true
		}
	}
	return false
}

func validateTrimmedKey(key, original string) error {
	if key == "" {
		return NewValidationError(ErrCodeInvalidKey, original, "key cannot be empty")
	}
	if len(key) > MaxKeyLength {
		return NewValidationError(ErrCodeInvalidKey, original,
			fmt.Sprintf("key exceeds maximum length of %d", MaxKeyLength))
	}
	if strings.Contains(key, " ") {
		return NewValidationError(ErrCodeInvalidKey, original, "key cannot contain spaces")
	}
	if strings.HasPrefix(key, "!") {
		return NewValidationError(ErrCodeInvalidKey, original, "key cannot start with '!'")
	}
	for _, w := range reservedWords {
		if strings.EqualFold(key, w) {
			return NewValidationError(ErrCodeInvalidKey, original,
				fmt.Sprintf("key cannot be the reserved word %q", w))
		}
	}
	if IsHazardKey(key) {
		return NewValidationError(ErrCodeInvalidKey, original,
			fmt.Sprintf("key %q is not allowed", key))
	}
	for _, op := range operatorFragments {
		if strings.Contains(key, op) {
			return NewValidationError(ErrCodeInvalidKey, original,
				fmt.Sprintf("key cannot contain operator %q", op))
		}
	}
	return nil
}

// ValidateValue checks that v is a storable value.
// A nil value is not storable (callers redirect nil to deletion first).
func ValidateValue(key string, v Value) error {
	switch val := v.(type) {
	case nil:
		return NewValidationError(ErrCodeInvalidValue, key, "value cannot be absent")
	case Bool:
		return nil
	case Number:
		f := float64(val)
		if math.IsNaN(f) {
			return NewValidationError(ErrCodeInvalidValue, key, "number cannot be NaN")
		}
		if math.IsInf(f, 0) {
			return NewValidationError(ErrCodeInvalidValue, key, "number must be finite")
		}
		return nil
	case String:
		if len(val) > MaxStringLength {
			return NewValidationError(ErrCodeInvalidValue, key,
				fmt.Sprintf("string exceeds maximum length of %d", MaxStringLength))
		}
		return nil
	default:
		return NewValidationError(ErrCodeInvalidValue, key, fmt.Sprintf("unsupported value type %T", v))
	}
}
