package engine

import (
	"context"
	"fmt"

	"github.com/roach88/factstore/internal/ir"
	"github.com/roach88/factstore/internal/store"
)

type persistence struct {
	backend  store.Backend
	key      string
	autoSave bool
}

// Save writes every non-computed fact to the backend as one JSON object in
// insertion order.
func (e *Engine) Save(ctx context.Context) error {
	if e.persist == nil {
		return ErrPersistenceDisabled
	}

	facts := make([]ir.Fact, 0, e.table.len())
	for _, f := range e.table.facts() {
		if !e.graph.has(f.Key) {
			facts = append(facts, f)
		}
	}
	data, err := ir.MarshalFacts(facts)
	if err != nil {
		return fmt.Errorf("encode facts: %w", err)
	}
	if err := e.persist.backend.Set(ctx, e.persist.key, string(data)); err != nil {
		return fmt.Errorf("save facts to %q: %w", e.persist.key, err)
	}
	return nil
}

// Load reads persisted facts and applies them as one batch.
//
// Missing, unreadable, or corrupt data is logged and leaves the table
// unchanged; only ErrPersistenceDisabled is returned. Prototype-hazard
// keys, invalid entries, and computed keys are skipped.
func (e *Engine) Load(ctx context.Context) error {
	if e.persist == nil {
		return ErrPersistenceDisabled
	}
	facts, ok := e.readPersisted(ctx)
	if !ok || len(facts) == 0 {
		return nil
	}
	mutationsTotal.WithLabelValues("load").Inc()
	return e.Batch(func() error {
		for _, f := range facts {
			if old, exists := e.table.get(f.Key); exists && ir.Equal(old, f.Value) {
				continue
			}
			e.apply(f.Key, f.Value)
		}
		return nil
	})
}

// loadInitial merges persisted facts during New, before any listener,
// history entry, or computed fact exists.
func (e *Engine) loadInitial() {
	facts, ok := e.readPersisted(context.Background())
	if !ok {
		return
	}
	for _, f := range facts {
		e.table.set(f.Key, f.Value)
	}
}

// readPersisted fetches and sanitizes the stored blob.
func (e *Engine) readPersisted(ctx context.Context) ([]ir.Fact, bool) {
	raw, found, err := e.persist.backend.Get(ctx, e.persist.key)
	if err != nil {
		e.logger.Error("load facts failed", "key", e.persist.key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	decoded, err := ir.UnmarshalFacts([]byte(raw))
	if err != nil {
		e.logger.Error("persisted facts are corrupt", "key", e.persist.key, "error", err)
		return nil, false
	}

	facts := make([]ir.Fact, 0, len(decoded))
	for _, f := range decoded {
		if ir.IsHazardKey(f.Key) {
			e.logger.Warn("skipping forbidden persisted key", "key", f.Key)
			continue
		}
		k, err := ir.NormalizeKey(f.Key)
		if err != nil {
			e.logger.Warn("skipping invalid persisted key", "key", f.Key, "error", err)
			continue
		}
		if f.Value == nil {
			continue
		}
		if err := ir.ValidateValue(k, f.Value); err != nil {
			e.logger.Warn("skipping invalid persisted value", "key", k, "error", err)
			continue
		}
		if e.graph.has(k) {
			continue
		}
		facts = append(facts, ir.Fact{Key: k, Value: f.Value})
	}
	return facts, true
}

// autoSave saves after a committed top-level change when enabled.
// Failures are logged, never returned.
func (e *Engine) autoSave() {
	if e.persist == nil || !e.persist.autoSave {
		return
	}
	if err := e.Save(context.Background()); err != nil {
		e.logger.Error("auto-save failed",
			"key", e.persist.key,
			"tx", e.tx.id,
			"error", err,
		)
	}
}
