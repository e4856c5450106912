package engine

import (
	"slices"

	"github.com/roach88/factstore/internal/ir"
)

// factTable is an insertion-ordered map from key to value.
type factTable struct {
	keys   []string
	values map[string]ir.Value
}

func newFactTable() *factTable {
	return &factTable{values: make(map[string]ir.Value)}
}

func (t *factTable) get(key string) (ir.Value, bool) {
	v, ok := t.values[key]
	return v, ok
}

func (t *factTable) has(key string) bool {
	_, ok := t.values[key]
	return ok
}

func (t *factTable) len() int {
	return len(t.keys)
}

// set stores v under key, appending key if new. Returns the previous value.
func (t *factTable) set(key string, v ir.Value) (old ir.Value, existed bool) {
	old, existed = t.values[key]
	if !existed {
		t.keys = append(t.keys, key)
	}
	t.values[key] = v
	return old, existed
}

// delete removes key. Returns the removed value.
func (t *factTable) delete(key string) (old ir.Value, existed bool) {
	old, existed = t.values[key]
	if !existed {
		return nil, false
	}
	delete(t.values, key)
	if i := slices.Index(t.keys, key); i >= 0 {
		t.keys = slices.Delete(t.keys, i, i+1)
	}
	return old, true
}

// keyList returns a copy of the keys in insertion order.
func (t *factTable) keyList() []string {
	return slices.Clone(t.keys)
}

// facts returns the table contents in insertion order.
func (t *factTable) facts() []ir.Fact {
	out := make([]ir.Fact, 0, len(t.keys))
	for _, k := range t.keys {
		out = append(out, ir.Fact{Key: k, Value: t.values[k]})
	}
	return out
}

// clone returns an independent copy. Values are immutable, so a shallow
// map copy is a full snapshot.
func (t *factTable) clone() *factTable {
	c := &factTable{
		keys:   slices.Clone(t.keys),
		values: make(map[string]ir.Value, len(t.values)),
	}
	for k, v := range t.values {
		c.values[k] = v
	}
	return c
}

// change is one key's difference between two tables.
type change struct {
	key      string
	newValue ir.Value
	oldValue ir.Value
}

// diffTables lists keys whose value differs from before to after: keys of
// before in order, then keys only present in after.
func diffTables(before, after *factTable) []change {
	var changes []change
	for _, k := range before.keys {
		old := before.values[k]
		nv, ok := after.values[k]
		if !ok {
			changes = append(changes, change{key: k, oldValue: old})
			continue
		}
		if !ir.Equal(old, nv) {
			changes = append(changes, change{key: k, newValue: nv, oldValue: old})
		}
	}
	for _, k := range after.keys {
		if !before.has(k) {
			changes = append(changes, change{key: k, newValue: after.values[k]})
		}
	}
	return changes
}
