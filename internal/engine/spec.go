package engine

import (
	"github.com/roach88/factstore/internal/ir"
	"github.com/roach88/factstore/internal/store"
)

// FromSpec builds an Engine from a compiled fact spec.
//
// The spec's facts seed the table, its history section enables undo/redo,
// and its computed entries are registered in declaration order as
// condition-backed facts. Persistence is configured only when both the spec
// declares it and backend is non-nil.
//
// opts are applied after the spec's own settings, so they take precedence.
func FromSpec(spec *ir.FactSpec, backend store.Backend, opts ...Option) (*Engine, error) {
	var specOpts []Option
	specOpts = append(specOpts, WithInitial(spec.Facts...))
	if spec.History.Enabled {
		specOpts = append(specOpts, WithMaxHistory(spec.History.Max))
	}
	if spec.Persistence != nil && backend != nil {
		specOpts = append(specOpts, WithPersistence(backend, spec.Persistence.Key, spec.Persistence.AutoSave))
	}

	e, err := New(append(specOpts, opts...)...)
	if err != nil {
		return nil, &SpecError{Spec: spec.Name, Key: "facts", Err: err}
	}

	for _, c := range spec.Computed {
		if err := e.ComputedCondition(c.Key, c.Condition); err != nil {
			return nil, &SpecError{Spec: spec.Name, Key: c.Key, Err: err}
		}
	}
	return e, nil
}
