package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "specs/s.cue", `facts: {gold: 1}`)
	path := writeFile(t, dir, "scenarios/ok.yaml", `
name: ok
description: "loads"
spec: ../specs/s.cue
history: true
tx_id: fixed
facts:
  - { key: hero, value: "Ann" }
steps:
  - { op: set, key: gold, value: 2 }
  - op: batch
    fail: "nope"
    steps:
      - { op: increment, key: gold, by: 3 }
  - { op: check, condition: "gold == 2", expect: true }
assertions:
  - { type: fact, key: gold, value: 2 }
  - { type: event_count, count: 1 }
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "ok", s.Name)
	assert.Equal(t, filepath.Join(dir, "scenarios", "../specs/s.cue"), s.Spec)
	assert.True(t, s.History)
	assert.Equal(t, "fixed", s.TxID)
	assert.Equal(t, []FactArg{{Key: "hero", Value: "Ann"}}, s.Facts)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, 2, s.Steps[0].Value)
	assert.Equal(t, "nope", s.Steps[1].Fail)
	require.Len(t, s.Steps[1].Steps, 1)
	require.NotNil(t, s.Steps[1].Steps[0].By)
	assert.Equal(t, 3.0, *s.Steps[1].Steps[0].By)
	require.NotNil(t, s.Steps[2].Expect)
	assert.True(t, *s.Steps[2].Expect)
	require.NotNil(t, s.Assertions[1].Count)
	assert.Equal(t, 1, *s.Assertions[1].Count)
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "root/specs/s.yaml", "facts: {gold: 1}\n")
	path := writeFile(t, dir, "elsewhere/ok.yaml", `
name: ok
description: d
spec: specs/s.yaml
steps: [{ op: clear }]
assertions: [{ type: missing, key: x }]
`)

	s, err := LoadScenarioWithBasePath(path, filepath.Join(dir, "root"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "root", "specs", "s.yaml"), s.Spec)
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: d\nstep: []\n",
			wantErr: "field step not found",
		},
		{
			name:    "missing name",
			content: "description: d\nsteps: [{op: clear}]\nassertions: [{type: missing, key: a}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\nsteps: [{op: clear}]\nassertions: [{type: missing, key: a}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			content: "name: x\ndescription: d\nassertions: [{type: missing, key: a}]\n",
			wantErr: "steps list is required",
		},
		{
			name:    "no assertions",
			content: "name: x\ndescription: d\nsteps: [{op: clear}]\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "missing spec file",
			content: "name: x\ndescription: d\nspec: nope.cue\nsteps: [{op: clear}]\nassertions: [{type: missing, key: a}]\n",
			wantErr: "spec file not found",
		},
		{
			name:    "unknown op",
			content: "name: x\ndescription: d\nsteps: [{op: explode}]\nassertions: [{type: missing, key: a}]\n",
			wantErr: `steps[0]: unknown op "explode"`,
		},
		{
			name:    "set without key",
			content: "name: x\ndescription: d\nsteps: [{op: set, value: 1}]\nassertions: [{type: missing, key: a}]\n",
			wantErr: "steps[0]: key is required for set",
		},
		{
			name:    "nested batch step",
			content: "name: x\ndescription: d\nsteps: [{op: batch, steps: [{op: clear}, {op: toggle}]}]\nassertions: [{type: missing, key: a}]\n",
			wantErr: "steps[0].steps[1]: key is required for toggle",
		},
		{
			name:    "empty batch",
			content: "name: x\ndescription: d\nsteps: [{op: batch}]\nassertions: [{type: missing, key: a}]\n",
			wantErr: "steps list is required for batch",
		},
		{
			name:    "fail outside batch",
			content: "name: x\ndescription: d\nsteps: [{op: clear, fail: boom}]\nassertions: [{type: missing, key: a}]\n",
			wantErr: "fail is only valid for batch",
		},
		{
			name:    "check without expect",
			content: "name: x\ndescription: d\nsteps: [{op: check, condition: a}]\nassertions: [{type: missing, key: a}]\n",
			wantErr: "expect is required for check",
		},
		{
			name:    "set_many without facts",
			content: "name: x\ndescription: d\nsteps: [{op: set_many}]\nassertions: [{type: missing, key: a}]\n",
			wantErr: "facts list is required for set_many",
		},
		{
			name:    "unknown assertion",
			content: "name: x\ndescription: d\nsteps: [{op: clear}]\nassertions: [{type: vibes}]\n",
			wantErr: `assertions[0]: unknown assertion type "vibes"`,
		},
		{
			name:    "fact without value",
			content: "name: x\ndescription: d\nsteps: [{op: clear}]\nassertions: [{type: fact, key: a}]\n",
			wantErr: "value is required for fact",
		},
		{
			name:    "negative count",
			content: "name: x\ndescription: d\nsteps: [{op: clear}]\nassertions: [{type: event_count, count: -1}]\n",
			wantErr: "count must be non-negative",
		},
		{
			name:    "event_count without count",
			content: "name: x\ndescription: d\nsteps: [{op: clear}]\nassertions: [{type: event_count}]\n",
			wantErr: "count is required for event_count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "s.yaml", tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
