package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Fact is a single key/value entry.
// A nil Value in a Fact passed to a mutation means "delete this key".
type Fact struct {
	Key   string
	Value Value
}

// F is a shorthand for Fact for ergonomic construction.
// Example: e.SetMany(ir.F("gold", ir.Number(5)), ir.F("has_key", ir.Bool(true)))
func F(key string, value Value) Fact {
	return Fact{Key: key, Value: value}
}

// MarshalFacts marshals facts to a JSON object, preserving slice order.
// Absent values are skipped.
func MarshalFacts(facts []Fact) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	for _, f := range facts {
		if f.Value == nil {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		keyBytes, err := json.Marshal(f.Key)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", f.Key, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", f.Key, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalFacts decodes a JSON object into facts in document order.
// A repeated key keeps its first position and its last value.
// null members decode to absent values; nested arrays and objects are rejected.
func UnmarshalFacts(data []byte) ([]Fact, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read object start: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, found %v", tok)
	}

	var facts []Fact
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, found %v", keyTok)
		}

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		val, err := convertJSONValue(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}

		if i, seen := index[key]; seen {
			facts[i].Value = val
			continue
		}
		index[key] = len(facts)
		facts = append(facts, Fact{Key: key, Value: val})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read object end: %w", err)
	}
	return facts, nil
}
