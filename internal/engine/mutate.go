package engine

import (
	"github.com/roach88/factstore/internal/ir"
)

// Set stores value under key. A nil value deletes the key.
//
// Setting a computed key fails with a READ_ONLY ValidationError. Setting a
// key to the value it already holds is still a mutation: it records
// history and emits an event whose old and new values are equal.
func (e *Engine) Set(key string, value ir.Value) error {
	k, err := ir.NormalizeKey(key)
	if err != nil {
		return err
	}
	if value == nil {
		return e.Delete(k)
	}
	if err := ir.ValidateValue(k, value); err != nil {
		return err
	}
	if e.graph.has(k) {
		return ir.NewReadOnlyError(k)
	}
	e.mutate("set", func() { e.apply(k, value) })
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (e *Engine) Delete(key string) error {
	k, err := ir.NormalizeKey(key)
	if err != nil {
		return err
	}
	if e.graph.has(k) {
		return ir.NewReadOnlyError(k)
	}
	if !e.table.has(k) {
		return nil
	}

	e.mutate("delete", func() { e.remove(k) })
	return nil
}

// Toggle flips a boolean fact and returns the new value.
// An absent key is initialized to true.
func (e *Engine) Toggle(key string) (bool, error) {
	k, err := ir.NormalizeKey(key)
	if err != nil {
		return false, err
	}
	if e.graph.has(k) {
		return false, ir.NewReadOnlyError(k)
	}

	next := true
	if cur, ok := e.table.get(k); ok {
		b, isBool := cur.(ir.Bool)
		if !isBool {
			return false, &ir.TypeError{Op: "toggle", Key: k, Want: ir.KindBool, Got: ir.KindName(cur)}
		}
		next = !bool(b)
	}

	e.mutate("toggle", func() { e.apply(k, ir.Bool(next)) })
	return next, nil
}

// Increment adds amount to a numeric fact and returns the new value.
// An absent key is initialized to amount.
func (e *Engine) Increment(key string, amount float64) (float64, error) {
	return e.addNumber("increment", key, amount, amount)
}

// Decrement subtracts amount from a numeric fact and returns the new value.
// An absent key is initialized to -amount.
func (e *Engine) Decrement(key string, amount float64) (float64, error) {
	return e.addNumber("decrement", key, amount, -amount)
}

func (e *Engine) addNumber(op, key string, amount, delta float64) (float64, error) {
	k, err := ir.NormalizeKey(key)
	if err != nil {
		return 0, err
	}
	if err := ir.ValidateValue(k, ir.Number(amount)); err != nil {
		return 0, err
	}
	if e.graph.has(k) {
		return 0, ir.NewReadOnlyError(k)
	}

	next := delta
	if cur, ok := e.table.get(k); ok {
		n, isNumber := cur.(ir.Number)
		if !isNumber {
			return 0, &ir.TypeError{Op: op, Key: k, Want: ir.KindNumber, Got: ir.KindName(cur)}
		}
		next = float64(n) + delta
	}
	if err := ir.ValidateValue(k, ir.Number(next)); err != nil {
		return 0, err
	}

	e.mutate(op, func() { e.apply(k, ir.Number(next)) })
	return next, nil
}

// SetMany applies several facts as one batch. Every key and value is
// validated before anything changes; nil values delete. Global listeners
// receive exactly one aggregate event, even when nothing changed.
func (e *Engine) SetMany(facts ...ir.Fact) error {
	normalized := make([]ir.Fact, 0, len(facts))
	for _, f := range facts {
		k, err := ir.NormalizeKey(f.Key)
		if err != nil {
			return err
		}
		if f.Value != nil {
			if err := ir.ValidateValue(k, f.Value); err != nil {
				return err
			}
		}
		if e.graph.has(k) {
			return ir.NewReadOnlyError(k)
		}
		normalized = append(normalized, ir.Fact{Key: k, Value: f.Value})
	}

	mutationsTotal.WithLabelValues("set_many").Inc()
	return e.Batch(func() error {
		for _, f := range normalized {
			if f.Value == nil {
				e.remove(f.Key)
				continue
			}
			if old, ok := e.table.get(f.Key); ok && ir.Equal(old, f.Value) {
				continue
			}
			e.apply(f.Key, f.Value)
		}
		return nil
	})
}

// Clear removes every non-computed fact, then recomputes all computed
// facts. Global listeners receive exactly one aggregate event, even on an
// empty table.
func (e *Engine) Clear() {
	mutationsTotal.WithLabelValues("clear").Inc()
	_ = e.Batch(func() error {
		for _, k := range e.table.keyList() {
			if e.graph.has(k) {
				continue
			}
			if old, existed := e.table.delete(k); existed {
				e.emit(k, nil, old)
			}
		}
		e.recomputeAll()
		return nil
	})
}

// mutate runs fn as one top-level transaction, or joins the open batch.
func (e *Engine) mutate(op string, fn func()) {
	mutationsTotal.WithLabelValues(op).Inc()
	if e.batch.active() {
		fn()
		return
	}

	end := e.beginTx(op)
	defer end()

	if e.history != nil {
		e.history.record()
	}
	fn()
	e.autoSave()
}

// apply stores a validated value, recomputes dependents, and emits.
func (e *Engine) apply(key string, value ir.Value) {
	old, _ := e.table.set(key, value)
	e.recomputeDependents(key)
	e.emit(key, value, old)
}

// remove deletes key, recomputes dependents, and emits.
func (e *Engine) remove(key string) {
	old, existed := e.table.delete(key)
	if !existed {
		return
	}
	e.recomputeDependents(key)
	e.emit(key, nil, old)
}
