package harness

// TraceEvent is one change delivered to global listeners during a scenario,
// tagged with the top-level step that caused it.
type TraceEvent struct {
	Step  int    `json:"step"`
	Op    string `json:"op"`
	Event string `json:"event"` // "key: old -> new"
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every delivered event in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Final is the table after the last step, one "key = value" per fact
	// in insertion order.
	Final []string `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Final:  []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event caused by step.
func (r *Result) AddTrace(step int, op, event string) {
	r.Trace = append(r.Trace, TraceEvent{Step: step, Op: op, Event: event})
}
