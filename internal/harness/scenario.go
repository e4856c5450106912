package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run against a fresh engine: optional spec and
// initial facts, a list of steps, and assertions on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Spec is an optional CUE or YAML fact spec, relative to the scenario
	// file. Its facts, computed entries, and history settings seed the engine.
	Spec string `yaml:"spec,omitempty"`

	// History enables undo/redo when the spec does not.
	History bool `yaml:"history,omitempty"`

	// TxID is the fixed transaction ID. Defaults to "test-tx-default".
	TxID string `yaml:"tx_id,omitempty"`

	// Facts are initial facts applied after the spec, without events.
	Facts []FactArg `yaml:"facts,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final table.
	Assertions []Assertion `yaml:"assertions"`
}

// FactArg is one key/value pair. A null value means absent.
type FactArg struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value"`
}

// Step is one engine operation.
type Step struct {
	// Op is the operation; see the Op constants.
	Op string `yaml:"op"`

	// Key is the target of set, delete, toggle, increment, and decrement.
	Key string `yaml:"key,omitempty"`

	// Value is the set value. Null deletes.
	Value any `yaml:"value,omitempty"`

	// By is the increment/decrement amount. Defaults to 1.
	By *float64 `yaml:"by,omitempty"`

	// Facts are the set_many entries.
	Facts []FactArg `yaml:"facts,omitempty"`

	// Condition is evaluated by check.
	Condition string `yaml:"condition,omitempty"`

	// Expect is the expected boolean outcome of check, toggle, undo, or redo.
	Expect *bool `yaml:"expect,omitempty"`

	// Steps are the nested steps of batch.
	Steps []Step `yaml:"steps,omitempty"`

	// Fail makes a batch return an error with this message after its
	// nested steps, rolling it back.
	Fail string `yaml:"fail,omitempty"`

	// Error is a substring the step's error must contain. When empty the
	// step must succeed.
	Error string `yaml:"error,omitempty"`
}

// Step operations.
const (
	OpSet       = "set"
	OpDelete    = "delete"
	OpToggle    = "toggle"
	OpIncrement = "increment"
	OpDecrement = "decrement"
	OpSetMany   = "set_many"
	OpClear     = "clear"
	OpUndo      = "undo"
	OpRedo      = "redo"
	OpBatch     = "batch"
	OpCheck     = "check"
)

// Assertion validates the final table or the trace.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	// Key is the fact key (fact, missing) or the event key to count
	// (event_count; empty counts every event).
	Key string `yaml:"key,omitempty"`

	// Value is the expected fact value.
	Value any `yaml:"value,omitempty"`

	// Condition and Expect are used by check.
	Condition string `yaml:"condition,omitempty"`
	Expect    *bool  `yaml:"expect,omitempty"`

	// Count is the expected number of events (event_count).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFact       = "fact"
	AssertMissing    = "missing"
	AssertCheck      = "check"
	AssertEventCount = "event_count"
)

// LoadScenario reads a scenario file, resolving its spec path relative to
// the file's directory.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads a scenario file, resolving its spec path
// relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Spec != "" && !filepath.IsAbs(scenario.Spec) && basePath != "" {
		scenario.Spec = filepath.Join(basePath, scenario.Spec)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Spec != "" {
		if _, err := os.Stat(s.Spec); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", s.Spec)
		}
	}

	for i, f := range s.Facts {
		if f.Key == "" {
			return fmt.Errorf("facts[%d]: key is required", i)
		}
	}

	for i := range s.Steps {
		if err := validateStep(fmt.Sprintf("steps[%d]", i), &s.Steps[i]); err != nil {
			return err
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(path string, step *Step) error {
	switch step.Op {
	case "":
		return fmt.Errorf("%s: op is required", path)
	case OpSet, OpDelete, OpToggle, OpIncrement, OpDecrement:
		if step.Key == "" {
			return fmt.Errorf("%s: key is required for %s", path, step.Op)
		}
	case OpSetMany:
		if len(step.Facts) == 0 {
			return fmt.Errorf("%s: facts list is required for set_many", path)
		}
	case OpCheck:
		if step.Condition == "" && step.Error == "" {
			return fmt.Errorf("%s: condition is required for check", path)
		}
		if step.Expect == nil && step.Error == "" {
			return fmt.Errorf("%s: expect is required for check", path)
		}
	case OpBatch:
		if len(step.Steps) == 0 {
			return fmt.Errorf("%s: steps list is required for batch", path)
		}
		for i := range step.Steps {
			if err := validateStep(fmt.Sprintf("%s.steps[%d]", path, i), &step.Steps[i]); err != nil {
				return err
			}
		}
	case OpClear, OpUndo, OpRedo:
	default:
		return fmt.Errorf("%s: unknown op %q", path, step.Op)
	}

	if step.Fail != "" && step.Op != OpBatch {
		return fmt.Errorf("%s: fail is only valid for batch", path)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFact:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for fact", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for fact (use missing for absent keys)", index)
		}
	case AssertMissing:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for missing", index)
		}
	case AssertCheck:
		if a.Condition == "" {
			return fmt.Errorf("assertions[%d]: condition is required for check", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for check", index)
		}
	case AssertEventCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for event_count", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
