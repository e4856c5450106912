package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factstore/internal/ir"
)

func specWithComputed(pairs ...string) *ir.FactSpec {
	spec := &ir.FactSpec{Name: "test"}
	for i := 0; i+1 < len(pairs); i += 2 {
		spec.Computed = append(spec.Computed, ir.ComputedSpec{Key: pairs[i], Condition: pairs[i+1]})
	}
	return spec
}

func TestAnalyzeCycles_Nil(t *testing.T) {
	assert.Empty(t, AnalyzeCycles(nil))
}

func TestAnalyzeCycles_NoComputed(t *testing.T) {
	spec := &ir.FactSpec{Facts: []ir.Fact{ir.F("gold", ir.Number(1))}}
	reports := AnalyzeCycles(spec)
	assert.NotNil(t, reports)
	assert.Empty(t, reports)
}

func TestAnalyzeCycles_DAG(t *testing.T) {
	spec := specWithComputed(
		"rich", "gold >= 1000",
		"can_buy", "rich AND shop_open",
		"happy", "can_buy OR has_pet",
	)
	assert.Empty(t, AnalyzeCycles(spec))
}

func TestAnalyzeCycles_SelfLoop(t *testing.T) {
	reports := AnalyzeCycles(specWithComputed("loop", "loop OR ready"))

	require.Len(t, reports, 1)
	assert.Equal(t, []string{"loop", "loop"}, reports[0].Path)
	assert.Equal(t, "computed flag loop depends on itself", reports[0].Message)
}

func TestAnalyzeCycles_TwoNodeCycle(t *testing.T) {
	reports := AnalyzeCycles(specWithComputed("a", "b", "b", "a"))

	require.Len(t, reports, 1)
	assert.Equal(t, []string{"a", "b", "a"}, reports[0].Path)
	assert.Equal(t, "circular dependency: a -> b -> a", reports[0].Message)
}

func TestAnalyzeCycles_ThreeNodeCycle(t *testing.T) {
	reports := AnalyzeCycles(specWithComputed(
		"a", "b AND gold > 5",
		"b", "c",
		"c", "NOT a",
	))

	require.Len(t, reports, 1)
	assert.Equal(t, []string{"a", "b", "c", "a"}, reports[0].Path)
	assert.Equal(t, "circular dependency: a -> b -> c -> a", reports[0].Message)
}

func TestAnalyzeCycles_MultipleIndependentCycles(t *testing.T) {
	reports := AnalyzeCycles(specWithComputed(
		"x", "y",
		"y", "x",
		"solo", "solo",
		"fine", "gold > 1",
	))

	require.Len(t, reports, 2)
	assert.Equal(t, []string{"solo", "solo"}, reports[0].Path)
	assert.Equal(t, []string{"x", "y", "x"}, reports[1].Path)
}

func TestAnalyzeCycles_SkipsUntokenizableConditions(t *testing.T) {
	reports := AnalyzeCycles(specWithComputed(
		"broken", "'unterminated",
		"ok", "broken",
	))
	assert.Empty(t, reports)
}

func TestAnalyzeCycles_Deterministic(t *testing.T) {
	spec := specWithComputed(
		"d", "e", "e", "f", "f", "d",
		"a", "b", "b", "a",
	)
	first := AnalyzeCycles(spec)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, AnalyzeCycles(spec))
	}
}

func TestDetectCycles_LargerCycleWithTail(t *testing.T) {
	graph := map[string][]string{
		"entry": {"c1"},
		"c1":    {"c2"},
		"c2":    {"c3"},
		"c3":    {"c4"},
		"c4":    {"c1", "leaf"},
	}
	cycles := DetectCycles(graph)

	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"c1", "c2", "c3", "c4", "c1"}, cycles[0])
}

func TestDetectCycles_ShortestPathInsideComponent(t *testing.T) {
	graph := map[string][]string{
		"a": {"b", "c"},
		"b": {"c"},
		"c": {"a"},
	}
	cycles := DetectCycles(graph)

	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "c", "a"}, cycles[0])
}

func TestDetectCycles_Empty(t *testing.T) {
	assert.Empty(t, DetectCycles(nil))
	assert.Empty(t, DetectCycles(map[string][]string{"a": {"b"}}))
}

func TestHasSelfLoop(t *testing.T) {
	graph := map[string][]string{
		"a": {"a", "b"},
		"b": {"c"},
	}
	assert.True(t, hasSelfLoop("a", graph))
	assert.False(t, hasSelfLoop("b", graph))
	assert.False(t, hasSelfLoop("missing", graph))
}

func TestTarjanSCC_SingleNode(t *testing.T) {
	sccs := tarjanSCC(map[string][]string{"a": nil})
	assert.Equal(t, [][]string{{"a"}}, sccs)
}

func TestTarjanSCC_TwoNodeCycle(t *testing.T) {
	sccs := tarjanSCC(map[string][]string{
		"b": {"a"},
		"a": {"b"},
		"c": nil,
	})
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, sccs)
}

func TestTarjanSCC_DAG(t *testing.T) {
	sccs := tarjanSCC(map[string][]string{
		"a": {"b"},
		"b": {"c"},
	})
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, sccs)
}

func TestReconstructCyclePath_SelfLoop(t *testing.T) {
	path := reconstructCyclePath([]string{"a"}, map[string][]string{"a": {"a"}})
	assert.Equal(t, []string{"a", "a"}, path)
}

func TestReconstructCyclePath_TwoNodes(t *testing.T) {
	path := reconstructCyclePath([]string{"a", "b"}, map[string][]string{
		"a": {"b"},
		"b": {"a"},
	})
	assert.Equal(t, []string{"a", "b", "a"}, path)
}
