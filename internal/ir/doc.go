// Package ir provides the value and key domain shared by every other
// factstore package.
//
// This package contains type definitions and validation only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Only three value shapes exist: Bool, Number, String (sealed interface)
//   - Numbers are float64 and must be finite (no NaN, no ±Inf)
//   - A nil Value means "absent" and is never stored
//   - Keys are trimmed and validated at every API boundary
//   - All JSON tags use snake_case
package ir
