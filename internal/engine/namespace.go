package engine

import (
	"strings"

	"github.com/roach88/factstore/internal/condition"
	"github.com/roach88/factstore/internal/ir"
)

// Namespace is a view of an Engine that prefixes every key with
// "<name>.". It holds no state of its own.
type Namespace struct {
	e      *Engine
	prefix string
}

// NewNamespace returns a view of e scoped to name. The name must itself be
// a valid key.
func NewNamespace(e *Engine, name string) (*Namespace, error) {
	n, err := ir.NormalizeKey(name)
	if err != nil {
		return nil, err
	}
	return &Namespace{e: e, prefix: n + "."}, nil
}

// Prefix returns the key prefix, including the trailing dot.
func (n *Namespace) Prefix() string {
	return n.prefix
}

// key validates a local key and returns its full form.
func (n *Namespace) key(local string) (string, error) {
	k, err := ir.NormalizeKey(local)
	if err != nil {
		return "", err
	}
	return n.prefix + k, nil
}

// Set stores value under the prefixed key; see Engine.Set.
func (n *Namespace) Set(key string, value ir.Value) error {
	k, err := n.key(key)
	if err != nil {
		return err
	}
	return n.e.Set(k, value)
}

// Get returns the value of the prefixed key. An invalid local key reads
// as absent.
func (n *Namespace) Get(key string) (ir.Value, bool) {
	k, err := n.key(key)
	if err != nil {
		return nil, false
	}
	return n.e.Get(k)
}

// Has reports whether the prefixed key is present.
func (n *Namespace) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Delete removes the prefixed key.
func (n *Namespace) Delete(key string) error {
	k, err := n.key(key)
	if err != nil {
		return err
	}
	return n.e.Delete(k)
}

// Toggle flips the prefixed boolean fact; see Engine.Toggle.
func (n *Namespace) Toggle(key string) (bool, error) {
	k, err := n.key(key)
	if err != nil {
		return false, err
	}
	return n.e.Toggle(k)
}

// Increment adds amount to the prefixed numeric fact.
func (n *Namespace) Increment(key string, amount float64) (float64, error) {
	k, err := n.key(key)
	if err != nil {
		return 0, err
	}
	return n.e.Increment(k, amount)
}

// Decrement subtracts amount from the prefixed numeric fact.
func (n *Namespace) Decrement(key string, amount float64) (float64, error) {
	k, err := n.key(key)
	if err != nil {
		return 0, err
	}
	return n.e.Decrement(k, amount)
}

// SetMany prefixes every key before delegating.
func (n *Namespace) SetMany(facts ...ir.Fact) error {
	full := make([]ir.Fact, 0, len(facts))
	for _, f := range facts {
		k, err := n.key(f.Key)
		if err != nil {
			return err
		}
		full = append(full, ir.Fact{Key: k, Value: f.Value})
	}
	return n.e.SetMany(full...)
}

// All returns the facts under the prefix with the prefix stripped.
func (n *Namespace) All() []ir.Fact {
	var out []ir.Fact
	for _, f := range n.e.All() {
		if local, ok := strings.CutPrefix(f.Key, n.prefix); ok {
			out = append(out, ir.Fact{Key: local, Value: f.Value})
		}
	}
	return out
}

// Keys returns the keys under the prefix with the prefix stripped.
func (n *Namespace) Keys() []string {
	var out []string
	for _, k := range n.e.Keys() {
		if local, ok := strings.CutPrefix(k, n.prefix); ok {
			out = append(out, local)
		}
	}
	return out
}

// Check prefixes every identifier in cond, then evaluates it on the engine.
// Error positions refer to the rewritten condition.
func (n *Namespace) Check(cond string) (bool, error) {
	if strings.TrimSpace(cond) == "" {
		return n.e.Check(cond)
	}
	rewritten, err := condition.RewriteIdentifiers(cond, func(id string) string {
		return n.prefix + id
	})
	if err != nil {
		return false, err
	}
	return n.e.Check(rewritten)
}

// Subscribe registers fn for changes under the prefix. Keys are delivered
// stripped. Aggregate events carry no key, so every AggregateKey event on
// the engine is passed through, including those of batches that touched
// only other namespaces.
func (n *Namespace) Subscribe(fn Listener) (unsubscribe func()) {
	return n.e.Subscribe(func(key string, newValue, oldValue ir.Value) {
		if key == AggregateKey {
			fn(key, newValue, oldValue)
			return
		}
		if local, ok := strings.CutPrefix(key, n.prefix); ok {
			fn(local, newValue, oldValue)
		}
	})
}

// SubscribeKey registers fn for changes to one key in the namespace.
func (n *Namespace) SubscribeKey(key string, fn KeyListener) (unsubscribe func(), err error) {
	k, err := n.key(key)
	if err != nil {
		return nil, err
	}
	return n.e.SubscribeKey(k, fn)
}
