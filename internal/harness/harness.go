package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/factstore/internal/compiler"
	"github.com/roach88/factstore/internal/engine"
	"github.com/roach88/factstore/internal/ir"
	"github.com/roach88/factstore/internal/store"
	"github.com/roach88/factstore/internal/testutil"
)

// Harness executes one scenario against a real engine and records every
// change delivered to a global listener.
type Harness struct {
	engine   *engine.Engine
	recorder *testutil.EventRecorder
	txGen    *testutil.FixedTxGenerator
	logger   *slog.Logger
	result   *Result
	traced   int // recorder events already copied into the trace
}

// Run executes a scenario with logging suppressed.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger executes a scenario and returns the result.
//
// Each scenario gets a fresh engine with a fixed transaction ID, an
// in-memory persistence backend when the spec declares persistence, and
// the spec's computed facts. Step failures and assertion failures are
// reported in the Result; the returned error is reserved for scenarios
// that cannot be set up.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	h := &Harness{
		recorder: testutil.NewEventRecorder(),
		txGen:    testutil.NewFixedTxGenerator(scenario.TxID),
		logger:   logger,
		result:   NewResult(),
	}

	eng, err := h.newEngine(scenario)
	if err != nil {
		return nil, err
	}
	h.engine = eng
	eng.Subscribe(h.recorder.Listener())

	for i, step := range scenario.Steps {
		h.execute(fmt.Sprintf("steps[%d]", i), step)
		h.collectTrace(i, step.Op)
		h.logger.Debug("step completed", "step", i, "op", step.Op, "seq", eng.Seq())
	}

	for _, f := range eng.All() {
		h.result.Final = append(h.result.Final, f.Key+" = "+formatValue(f.Value))
	}

	for _, msg := range EvaluateAssertions(eng, h.recorder, h.result.Trace, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func (h *Harness) newEngine(scenario *Scenario) (*engine.Engine, error) {
	opts := []engine.Option{
		engine.WithLogger(h.logger),
		engine.WithTxIDGenerator(h.txGen),
	}
	if scenario.History {
		opts = append(opts, engine.WithHistory())
	}

	initial := make([]ir.Fact, 0, len(scenario.Facts))
	for i, f := range scenario.Facts {
		v, err := ir.FromAny(f.Value)
		if err != nil {
			return nil, fmt.Errorf("facts[%d]: %w", i, err)
		}
		initial = append(initial, ir.F(f.Key, v))
	}
	opts = append(opts, engine.WithInitial(initial...))

	if scenario.Spec == "" {
		eng, err := engine.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create engine: %w", err)
		}
		return eng, nil
	}

	spec, err := compiler.LoadFile(scenario.Spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load spec: %w", err)
	}
	if errs := compiler.Validate(spec); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid spec %s: %s", scenario.Spec, strings.Join(msgs, "; "))
	}
	eng, err := engine.FromSpec(spec, store.NewMemory(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return eng, nil
}

// execute runs one step and records any mismatch against its expectations.
func (h *Harness) execute(path string, step Step) {
	outcome, err := h.apply(path, step)

	switch {
	case step.Error == "" && err != nil:
		h.result.AddError(fmt.Sprintf("%s (%s): unexpected error: %v", path, step.Op, err))
		return
	case step.Error != "" && err == nil:
		h.result.AddError(fmt.Sprintf("%s (%s): expected error containing %q, got none", path, step.Op, step.Error))
		return
	case step.Error != "":
		if !strings.Contains(err.Error(), step.Error) {
			h.result.AddError(fmt.Sprintf("%s (%s): expected error containing %q, got: %v", path, step.Op, step.Error, err))
		}
		return
	}

	if step.Expect != nil && outcome != nil && *outcome != *step.Expect {
		h.result.AddError(fmt.Sprintf("%s (%s): expected %t, got %t", path, step.Op, *step.Expect, *outcome))
	}
}

// apply performs the step. The bool outcome is non-nil for operations that
// produce one (check, toggle, undo, redo).
func (h *Harness) apply(path string, step Step) (*bool, error) {
	e := h.engine

	switch step.Op {
	case OpSet:
		v, err := ir.FromAny(step.Value)
		if err != nil {
			return nil, err
		}
		return nil, e.Set(step.Key, v)

	case OpDelete:
		return nil, e.Delete(step.Key)

	case OpToggle:
		on, err := e.Toggle(step.Key)
		return &on, err

	case OpIncrement:
		_, err := e.Increment(step.Key, amount(step))
		return nil, err

	case OpDecrement:
		_, err := e.Decrement(step.Key, amount(step))
		return nil, err

	case OpSetMany:
		facts := make([]ir.Fact, 0, len(step.Facts))
		for _, f := range step.Facts {
			v, err := ir.FromAny(f.Value)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", f.Key, err)
			}
			facts = append(facts, ir.F(f.Key, v))
		}
		return nil, e.SetMany(facts...)

	case OpClear:
		e.Clear()
		return nil, nil

	case OpUndo, OpRedo:
		history := e.History()
		if history == nil {
			return nil, errors.New("history is not enabled")
		}
		var ok bool
		if step.Op == OpUndo {
			ok = history.Undo()
		} else {
			ok = history.Redo()
		}
		return &ok, nil

	case OpCheck:
		ok, err := e.Check(step.Condition)
		return &ok, err

	case OpBatch:
		abort := errors.New(step.Fail)
		err := e.Batch(func() error {
			for i, nested := range step.Steps {
				h.execute(fmt.Sprintf("%s.steps[%d]", path, i), nested)
			}
			if step.Fail != "" {
				return abort
			}
			return nil
		})
		if errors.Is(err, abort) && step.Error == "" {
			return nil, nil
		}
		return nil, err
	}
	return nil, fmt.Errorf("unknown op %q", step.Op)
}

func amount(step Step) float64 {
	if step.By == nil {
		return 1
	}
	return *step.By
}

// collectTrace moves events recorded since the last call into the trace.
func (h *Harness) collectTrace(step int, op string) {
	events := h.recorder.Events()
	for _, ev := range events[h.traced:] {
		h.result.AddTrace(step, op, ev.String())
	}
	h.traced = len(events)
}

// formatValue renders v the way trace events do: strings quoted.
func formatValue(v ir.Value) string {
	if s, ok := v.(ir.String); ok {
		return fmt.Sprintf("%q", string(s))
	}
	if v == nil {
		return "<absent>"
	}
	return v.String()
}
