package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/factstore/internal/engine"
	"github.com/roach88/factstore/internal/ir"
	"github.com/roach88/factstore/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Step, event.Op, event.Event)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(e *engine.Engine, rec *testutil.EventRecorder, trace []TraceEvent, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertFact:
			err = assertFact(e, a)
		case AssertMissing:
			err = assertMissing(e, a)
		case AssertCheck:
			err = assertCheck(e, a)
		case AssertEventCount:
			err = assertEventCount(rec, trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

// assertFact checks that key holds the expected value with the expected kind.
func assertFact(e *engine.Engine, a Assertion) error {
	want, err := ir.FromAny(a.Value)
	if err != nil {
		return fmt.Errorf("expected value: %w", err)
	}

	got, ok := e.Get(a.Key)
	if !ok {
		return &AssertionError{
			Type:     AssertFact,
			Expected: fmt.Sprintf("%s = %s", a.Key, formatValue(want)),
			Actual:   "key not present",
		}
	}
	if !ir.Equal(want, got) {
		return &AssertionError{
			Type:     AssertFact,
			Expected: fmt.Sprintf("%s = %s (%s)", a.Key, formatValue(want), ir.KindName(want)),
			Actual:   fmt.Sprintf("%s = %s (%s)", a.Key, formatValue(got), ir.KindName(got)),
		}
	}
	return nil
}

func assertMissing(e *engine.Engine, a Assertion) error {
	if got, ok := e.Get(a.Key); ok {
		return &AssertionError{
			Type:     AssertMissing,
			Expected: fmt.Sprintf("%s absent", a.Key),
			Actual:   fmt.Sprintf("%s = %s", a.Key, formatValue(got)),
		}
	}
	return nil
}

func assertCheck(e *engine.Engine, a Assertion) error {
	got, err := e.Check(a.Condition)
	if err != nil {
		return &AssertionError{
			Type:     AssertCheck,
			Expected: fmt.Sprintf("%q evaluates to %t", a.Condition, *a.Expect),
			Actual:   fmt.Sprintf("error: %v", err),
		}
	}
	if got != *a.Expect {
		return &AssertionError{
			Type:     AssertCheck,
			Expected: fmt.Sprintf("%q evaluates to %t", a.Condition, *a.Expect),
			Actual:   fmt.Sprintf("%t", got),
		}
	}
	return nil
}

// assertEventCount counts delivered events for a key, or all events when
// the key is empty.
func assertEventCount(rec *testutil.EventRecorder, trace []TraceEvent, a Assertion) error {
	count := rec.Len()
	what := "events"
	if a.Key != "" {
		count = rec.Count(a.Key)
		what = fmt.Sprintf("events for %s", a.Key)
	}

	if count != *a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s", *a.Count, what),
			Actual:   fmt.Sprintf("%d %s", count, what),
			Trace:    trace,
		}
	}
	return nil
}
