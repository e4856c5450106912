package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Value is a sealed interface representing a fact value.
// Only Bool, Number, and String implement this.
// A nil Value means the fact is absent.
type Value interface {
	value() // Sealed - only these types implement it
	Kind() Kind
	String() string
}

// Kind identifies the shape of a Value.
type Kind int

const (
	// KindBool is a boolean value.
	KindBool Kind = iota + 1
	// KindNumber is a finite float64 value.
	KindNumber
	// KindString is a bounded string value.
	KindString
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Bool represents a boolean fact.
type Bool bool

func (Bool) value() {}

// Kind returns KindBool.
func (Bool) Kind() Kind { return KindBool }

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Number represents a numeric fact.
// Always float64 and always finite once stored.
type Number float64

func (Number) value() {}

// Kind returns KindNumber.
func (Number) Kind() Kind { return KindNumber }

func (n Number) String() string { return strconv.FormatFloat(float64(n), 'g', -1, 64) }

// String represents a string fact.
type String string

func (String) value() {}

// Kind returns KindString.
func (String) Kind() Kind { return KindString }

func (s String) String() string { return string(s) }

// KindName returns the kind name of v, or "undefined" for an absent value.
func KindName(v Value) string {
	if v == nil {
		return "undefined"
	}
	return v.Kind().String()
}

// Truthy reports the truthiness of v inside conditions.
//
// Bool is itself; absent is false; 0 is false; "" is false;
// every other number and string is true.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil:
		return false
	case Bool:
		return bool(val)
	case Number:
		return val != 0
	case String:
		return val != ""
	default:
		return false
	}
}

// Equal reports whether a and b have the same kind and the same value.
// Two absent values are equal.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	return a == b
}

// FromAny converts a Go value into a Value.
// nil converts to a nil Value (absent). Integers and floats become Number.
// Validation of finiteness and length happens in ValidateValue.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(float64(val)), nil
	case int:
		return Number(float64(val)), nil
	case int8:
		return Number(float64(val)), nil
	case int16:
		return Number(float64(val)), nil
	case int32:
		return Number(float64(val)), nil
	case int64:
		return Number(float64(val)), nil
	case uint:
		return Number(float64(val)), nil
	case uint8:
		return Number(float64(val)), nil
	case uint16:
		return Number(float64(val)), nil
	case uint32:
		return Number(float64(val)), nil
	case uint64:
		return Number(float64(val)), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Number(f), nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// MarshalValue marshals a Value to JSON bytes.
// An absent value marshals to null.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case Bool:
		return json.Marshal(bool(val))
	case Number:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("non-finite number cannot be marshaled: %v", f)
		}
		return json.Marshal(f)
	case String:
		return json.Marshal(string(val))
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// UnmarshalValue decodes a JSON scalar into a Value.
// null decodes to a nil Value. Arrays and objects are rejected.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return convertJSONValue(raw)
}

// convertJSONValue converts a decoded JSON scalar (UseNumber mode) to a Value.
func convertJSONValue(raw any) (Value, error) {
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number out of range: %s", val)
		}
		return Number(f), nil
	case []any:
		return nil, fmt.Errorf("arrays are not valid fact values")
	case map[string]any:
		return nil, fmt.Errorf("objects are not valid fact values")
	default:
		return nil, fmt.Errorf("unsupported type: %T", raw)
	}
}
