package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/factstore/internal/testutil"
)

// TraceSnapshot is the golden-file form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	TxID         string       `json:"tx_id,omitempty"`
	Trace        []TraceEvent `json:"trace"`
	Final        []string     `json:"final"`
}

// Marshal renders the snapshot as indented JSON. HTML escaping is off so
// "->" and "<absent>" stay readable.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its trace and final table
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	return assertSnapshot(t, scenario.Name, &TraceSnapshot{
		ScenarioName: scenario.Name,
		TxID:         testutil.NewFixedTxGenerator(scenario.TxID).Generate(),
		Trace:        result.Trace,
		Final:        result.Final,
	})
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()
	return assertSnapshot(t, scenarioName, &TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Final:        result.Final,
	})
}

func assertSnapshot(t *testing.T, name string, snapshot *TraceSnapshot) error {
	t.Helper()

	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
