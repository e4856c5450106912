package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON for a set of facts.
// CRITICAL: This is the ONLY serialization that should be used for
// snapshot digests.
//
// Key differences from MarshalFacts:
// 1. Object keys sorted by UTF-16 code units (not insertion order)
// 2. No HTML escaping (< > & are NOT escaped)
// 3. Strings are NFC normalized
// 4. Integral numbers are written without exponent or fraction
// 5. Absent values are omitted
func MarshalCanonical(facts []Fact) ([]byte, error) {
	byKey := make(map[string]Value, len(facts))
	keys := make([]string, 0, len(facts))
	for _, f := range facts {
		if f.Value == nil {
			continue
		}
		if _, dup := byKey[f.Key]; !dup {
			keys = append(keys, f.Key)
		}
		byKey[f.Key] = f.Value
	}
	slices.SortFunc(keys, compareKeysRFC8785)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := marshalCanonicalValue(byKey[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalCanonicalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case Number:
		return marshalCanonicalNumber(float64(val))
	case String:
		return marshalCanonicalString(string(val))
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func marshalCanonicalNumber(f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite numbers are forbidden in canonical JSON: %v", f)
	}
	if f == 0 {
		// -0 and 0 are the same fact
		return []byte("0"), nil
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

// marshalCanonicalString produces a canonical JSON string with NFC normalization.
// Only control characters, backslash, and quote are escaped.
func marshalCanonicalString(s string) ([]byte, error) {
	// NFC normalize at serialization boundary
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // CRITICAL: <, >, & must NOT be escaped
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds trailing newline, remove it
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
// CRITICAL: Go's default string comparison uses UTF-8 which produces DIFFERENT order.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// If all compared units are equal, shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}
