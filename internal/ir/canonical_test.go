package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	data, err := MarshalCanonical([]Fact{
		F("b", Number(2)),
		F("a", Bool(false)),
		F("C", String("x")),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"C":"x","a":false,"b":2}`, string(data))
}

func TestMarshalCanonicalNumbers(t *testing.T) {
	data, err := MarshalCanonical([]Fact{
		F("a", Number(100)),
		F("b", Number(-0.5)),
		F("c", Number(1e21)),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":100,"b":-0.5,"c":1e+21}`, string(data))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	data, err := MarshalCanonical([]Fact{F("s", String("<a&b>"))})
	require.NoError(t, err)
	assert.Equal(t, `{"s":"<a&b>"}`, string(data))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// Decomposed (e + U+0301) and precomposed must serialize identically
	decomposed, err := MarshalCanonical([]Fact{F("s", String("e\u0301"))})
	require.NoError(t, err)
	composed, err := MarshalCanonical([]Fact{F("s", String("\u00e9"))})
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestCompareKeysRFC8785(t *testing.T) {
	assert.Equal(t, -1, compareKeysRFC8785("A", "a"))
	assert.Equal(t, 1, compareKeysRFC8785("aa", "a"))
	assert.Equal(t, 0, compareKeysRFC8785("same", "same"))
}

func TestDigestIgnoresOrder(t *testing.T) {
	d1, err := Digest([]Fact{F("a", Number(1)), F("b", Bool(true))})
	require.NoError(t, err)
	d2, err := Digest([]Fact{F("b", Bool(true)), F("a", Number(1))})
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)

	d3, err := Digest([]Fact{F("a", Number(2)), F("b", Bool(true))})
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)
}

func TestDigestTypeSensitive(t *testing.T) {
	d1, err := Digest([]Fact{F("a", Number(1))})
	require.NoError(t, err)
	d2, err := Digest([]Fact{F("a", String("1"))})
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}
