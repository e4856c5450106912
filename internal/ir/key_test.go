package ir

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKeyTrims(t *testing.T) {
	key, err := NormalizeKey("  gold\t")
	require.NoError(t, err)
	assert.Equal(t, "gold", key)
}

func TestNormalizeKeyValid(t *testing.T) {
	valid := []string{"gold", "has_key", "player.level", "a-b", "x1", "Android", "notify", "ORacle", "proto"}
	for _, key := range valid {
		t.Run(key, func(t *testing.T) {
			_, err := NormalizeKey(key)
			assert.NoError(t, err)
		})
	}
}

func TestNormalizeKeyInvalid(t *testing.T) {
	invalid := map[string]string{
		"empty":          "",
		"whitespace":     "   ",
		"inner space":    "has key",
		"bang prefix":    "!flag",
		"and":            "and",
		"OR upper":       "OR",
		"Not mixed":      "Not",
		"proto":          "__proto__",
		"constructor":    "constructor",
		"prototype":      "prototype",
		"gt":             "a>b",
		"lt":             "a<b",
		"gte":            "a>=b",
		"lte":            "a<=b",
		"eq":             "a==b",
		"neq":            "a!=b",
		"too long":       strings.Repeat("k", MaxKeyLength+1),
	}

	for name, key := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeKey(key)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, ErrCodeInvalidKey, ve.Code)
		})
	}
}

func TestNormalizeKeyMaxLength(t *testing.T) {
	_, err := NormalizeKey(strings.Repeat("k", MaxKeyLength))
	assert.NoError(t, err)
}

func TestIsHazardKey(t *testing.T) {
	assert.True(t, IsHazardKey("__proto__"))
	assert.True(t, IsHazardKey("constructor"))
	assert.False(t, IsHazardKey("Constructor"))
	assert.False(t, IsHazardKey("gold"))
}

func TestValidateValue(t *testing.T) {
	assert.NoError(t, ValidateValue("k", Bool(false)))
	assert.NoError(t, ValidateValue("k", Number(-1.5)))
	assert.NoError(t, ValidateValue("k", String("")))
	assert.NoError(t, ValidateValue("k", String(strings.Repeat("s", MaxStringLength))))

	for name, v := range map[string]Value{
		"nil":      nil,
		"nan":      Number(math.NaN()),
		"inf":      Number(math.Inf(1)),
		"neg inf":  Number(math.Inf(-1)),
		"too long": String(strings.Repeat("s", MaxStringLength+1)),
	} {
		t.Run(name, func(t *testing.T) {
			err := ValidateValue("k", v)
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, ErrCodeInvalidValue, ve.Code)
			assert.Equal(t, "k", ve.Key)
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	ro := NewReadOnlyError("total")
	assert.True(t, IsReadOnlyError(ro))
	assert.True(t, IsValidationError(ro))
	assert.False(t, IsCycleError(ro))
	assert.Contains(t, ro.Error(), "cannot modify computed flag")

	te := &TypeError{Op: "toggle", Key: "gold", Want: KindBool, Got: "number"}
	assert.True(t, IsTypeError(te))
	assert.False(t, IsValidationError(te))
	assert.Equal(t, `cannot toggle "gold": expected boolean, found number`, te.Error())
}
