package compiler

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factstore/internal/ir"
)

func validSpec() *ir.FactSpec {
	return &ir.FactSpec{
		Name: "dungeon",
		Facts: []ir.Fact{
			ir.F("gold", ir.Number(100)),
			ir.F("has_key", ir.Bool(false)),
			ir.F("hero", ir.String("Ann")),
		},
		Computed: []ir.ComputedSpec{
			{Key: "rich", Condition: "gold >= 1000"},
			{Key: "can_open", Condition: "has_key AND NOT rich"},
		},
		History:     ir.HistorySpec{Enabled: true, Max: 50},
		Persistence: &ir.PersistenceSpec{Key: "dungeon_facts", AutoSave: true},
	}
}

// codes extracts error codes for compact assertions.
func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func findCode(errs []ValidationError, code string) *ValidationError {
	for i := range errs {
		if errs[i].Code == code {
			return &errs[i]
		}
	}
	return nil
}

func TestValidateValidSpec(t *testing.T) {
	assert.Empty(t, Validate(validSpec()))
}

func TestValidateEmptySpec(t *testing.T) {
	assert.Empty(t, Validate(&ir.FactSpec{}))
}

func TestValidateNilSpec(t *testing.T) {
	errs := Validate(nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrSchema, errs[0].Code)
}

func TestValidateNullFactIsAllowed(t *testing.T) {
	spec := validSpec()
	spec.Facts = append(spec.Facts, ir.F("gone", nil))
	assert.Empty(t, Validate(spec))
}

func TestValidateInvalidFactKeys(t *testing.T) {
	tests := []struct {
		name string
		key  string
		msg  string
	}{
		{"empty", "   ", "empty"},
		{"space", "has key", "spaces"},
		{"bang", "!flag", "'!'"},
		{"reserved", "AND", "reserved word"},
		{"hazard", "__proto__", "not allowed"},
		{"operator", "a>=b", "operator"},
		{"too long", strings.Repeat("k", ir.MaxKeyLength+1), "maximum length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &ir.FactSpec{Facts: []ir.Fact{ir.F(tt.key, ir.Bool(true))}}
			errs := Validate(spec)

			require.Len(t, errs, 1)
			assert.Equal(t, ErrInvalidFactKey, errs[0].Code)
			assert.Equal(t, "facts[0]", errs[0].Field)
			assert.Contains(t, errs[0].Message, tt.msg)
		})
	}
}

func TestValidateInvalidFactValues(t *testing.T) {
	tests := []struct {
		name  string
		value ir.Value
	}{
		{"NaN", ir.Number(math.NaN())},
		{"infinity", ir.Number(math.Inf(1))},
		{"long string", ir.String(strings.Repeat("x", ir.MaxStringLength+1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &ir.FactSpec{Facts: []ir.Fact{ir.F("v", tt.value)}}
			errs := Validate(spec)

			require.Len(t, errs, 1)
			assert.Equal(t, ErrInvalidFactValue, errs[0].Code)
			assert.Equal(t, "facts.v", errs[0].Field)
		})
	}
}

func TestValidateDuplicateFact(t *testing.T) {
	spec := &ir.FactSpec{Facts: []ir.Fact{
		ir.F("gold", ir.Number(1)),
		ir.F(" gold ", ir.Number(2)),
	}}
	errs := Validate(spec)

	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateFact, errs[0].Code)
	assert.Equal(t, "facts[1]", errs[0].Field)
}

func TestValidateInvalidComputedKey(t *testing.T) {
	spec := &ir.FactSpec{Computed: []ir.ComputedSpec{{Key: "not", Condition: "a"}}}
	errs := Validate(spec)

	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidComputedKey, errs[0].Code)
	assert.Equal(t, "computed[0]", errs[0].Field)
}

func TestValidateDuplicateComputed(t *testing.T) {
	spec := &ir.FactSpec{Computed: []ir.ComputedSpec{
		{Key: "rich", Condition: "gold > 1"},
		{Key: "rich", Condition: "gold > 2"},
	}}
	errs := Validate(spec)

	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateComputed, errs[0].Code)
	assert.Equal(t, "computed.rich", errs[0].Field)
}

func TestValidateComputedShadowsFact(t *testing.T) {
	spec := validSpec()
	spec.Computed = append(spec.Computed, ir.ComputedSpec{Key: "gold", Condition: "hero == 'Ann'"})
	errs := Validate(spec)

	require.Len(t, errs, 1)
	assert.Equal(t, ErrComputedShadowsFact, errs[0].Code)
	assert.Equal(t, "computed.gold", errs[0].Field)
}

func TestValidateInvalidConditions(t *testing.T) {
	tests := []struct {
		name string
		cond string
	}{
		{"dangling operator", "gold >="},
		{"unclosed paren", "(a AND b"},
		{"unterminated string", "name == 'Ann"},
		{"string ordering", "'a' < 'b'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &ir.FactSpec{Computed: []ir.ComputedSpec{{Key: "c", Condition: tt.cond}}}
			errs := Validate(spec)

			ve := findCode(errs, ErrInvalidCondition)
			require.NotNil(t, ve, "got %v", errs)
			assert.Equal(t, "computed.c", ve.Field)
		})
	}
}

func TestValidateEmptyConditionReportedOnce(t *testing.T) {
	spec := &ir.FactSpec{Computed: []ir.ComputedSpec{{Key: "c", Condition: ""}}}
	errs := Validate(spec)

	require.Len(t, errs, 1)
	assert.Equal(t, ErrSchema, errs[0].Code)
	assert.Equal(t, "computed[0].condition", errs[0].Field)
	assert.Equal(t, "is required", errs[0].Message)
}

func TestValidateCircularDependency(t *testing.T) {
	spec := &ir.FactSpec{Computed: []ir.ComputedSpec{
		{Key: "a", Condition: "b"},
		{Key: "b", Condition: "a"},
	}}
	errs := Validate(spec)

	require.Len(t, errs, 1)
	assert.Equal(t, ErrCircularDependency, errs[0].Code)
	assert.Equal(t, "computed.a", errs[0].Field)
	assert.Equal(t, "circular dependency: a -> b -> a", errs[0].Message)
}

func TestValidateSelfDependency(t *testing.T) {
	spec := &ir.FactSpec{Computed: []ir.ComputedSpec{{Key: "loop", Condition: "NOT loop"}}}
	errs := Validate(spec)

	require.Len(t, errs, 1)
	assert.Equal(t, ErrCircularDependency, errs[0].Code)
	assert.Contains(t, errs[0].Message, "depends on itself")
}

func TestValidatePersistenceKey(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		spec := &ir.FactSpec{Persistence: &ir.PersistenceSpec{}}
		errs := Validate(spec)

		require.Len(t, errs, 1)
		assert.Equal(t, ErrInvalidPersistence, errs[0].Code)
		assert.Equal(t, "persistence.key", errs[0].Field)
	})

	t.Run("invalid", func(t *testing.T) {
		spec := &ir.FactSpec{Persistence: &ir.PersistenceSpec{Key: "my facts"}}
		errs := Validate(spec)

		require.Len(t, errs, 1)
		assert.Equal(t, ErrInvalidPersistence, errs[0].Code)
		assert.Contains(t, errs[0].Message, "spaces")
	})
}

func TestValidateSchemaConstraints(t *testing.T) {
	t.Run("negative history max", func(t *testing.T) {
		spec := &ir.FactSpec{History: ir.HistorySpec{Enabled: true, Max: -1}}
		errs := Validate(spec)

		require.Len(t, errs, 1)
		assert.Equal(t, ErrSchema, errs[0].Code)
		assert.Equal(t, "history.max", errs[0].Field)
		assert.Equal(t, "must be >= 0", errs[0].Message)
	})

	t.Run("long name", func(t *testing.T) {
		spec := &ir.FactSpec{Name: strings.Repeat("n", 129)}
		errs := Validate(spec)

		require.Len(t, errs, 1)
		assert.Equal(t, "name", errs[0].Field)
		assert.Equal(t, "must be at most 128 long", errs[0].Message)
	})
}

func TestValidateCollectsAllErrors(t *testing.T) {
	spec := &ir.FactSpec{
		Facts: []ir.Fact{
			ir.F("bad key", ir.Bool(true)),
			ir.F("n", ir.Number(math.NaN())),
		},
		Computed: []ir.ComputedSpec{
			{Key: "c", Condition: "AND"},
			{Key: "x", Condition: "y"},
			{Key: "y", Condition: "x"},
		},
	}
	errs := Validate(spec)

	assert.Equal(t, []string{
		ErrInvalidFactKey,
		ErrInvalidFactValue,
		ErrInvalidCondition,
		ErrCircularDependency,
	}, codes(errs))
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "facts.gold", Message: "bad", Code: ErrInvalidFactValue}
	assert.Equal(t, "[E102] facts.gold: bad", err.Error())
}

func TestSchemaField(t *testing.T) {
	assert.Equal(t, "computed[3].condition", schemaField("FactSpec.Computed[3].Condition"))
	assert.Equal(t, "persistence.auto_save", schemaField("FactSpec.Persistence.AutoSave"))
	assert.Equal(t, "name", schemaField("FactSpec.Name"))
}
