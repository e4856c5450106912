package engine

import (
	"errors"
	"fmt"
)

// ErrPersistenceDisabled is returned by Save and Load on an engine built
// without WithPersistence.
var ErrPersistenceDisabled = errors.New("engine: persistence is not configured")

// SpecError reports a spec entry that could not be applied by FromSpec.
type SpecError struct {
	// Spec is the spec name.
	Spec string

	// Key identifies the offending fact or computed entry.
	Key string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *SpecError) Error() string {
	if e.Spec != "" {
		return fmt.Sprintf("spec %s: %s: %v", e.Spec, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *SpecError) Unwrap() error {
	return e.Err
}
