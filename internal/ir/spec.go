package ir

// FactSpec is the compiled form of a declarative fact spec file.
// It is produced by the compiler package from CUE or YAML sources and
// consumed by engine.FromSpec.
type FactSpec struct {
	// Name identifies the spec (file stem when not declared).
	Name string `json:"name" validate:"max=128"`

	// Facts are the initial facts in declaration order.
	Facts []Fact `json:"-"`

	// Computed are condition-backed computed facts in declaration order.
	Computed []ComputedSpec `json:"computed,omitempty" validate:"dive"`

	// History configures undo/redo.
	History HistorySpec `json:"history"`

	// Persistence configures save/load; nil disables persistence.
	Persistence *PersistenceSpec `json:"persistence,omitempty"`
}

// ComputedSpec declares a computed fact whose value is the boolean result
// of a condition. Its dependencies are the identifiers in the condition.
type ComputedSpec struct {
	Key       string `json:"key" validate:"required,max=256"`
	Condition string `json:"condition" validate:"required,max=10000"`
}

// HistorySpec configures the undo/redo history.
type HistorySpec struct {
	Enabled bool `json:"enabled"`

	// Max is the maximum undo depth. Zero means the engine default.
	Max int `json:"max" validate:"gte=0,lte=100000"`
}

// PersistenceSpec configures the persistence adapter.
type PersistenceSpec struct {
	// Key is the backend key the fact blob is stored under.
	Key string `json:"key" validate:"required,max=256"`

	// AutoSave saves after every top-level mutation and batch.
	AutoSave bool `json:"auto_save"`
}
