package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifiers(t *testing.T) {
	idents, err := Identifiers(`gold >= 100 AND has_key OR gold < 5 AND "str" == name`)
	require.NoError(t, err)
	assert.Equal(t, []string{"gold", "has_key", "name"}, idents)
}

func TestIdentifiersIgnoresLiterals(t *testing.T) {
	idents, err := Identifiers(`NOT true AND 'gold' == 5`)
	require.NoError(t, err)
	assert.Empty(t, idents)
}

func TestIdentifiersTokenizeError(t *testing.T) {
	_, err := Identifiers(`a & b`)
	assert.True(t, IsSyntaxError(err))
}

func TestRewriteIdentifiers(t *testing.T) {
	prefix := func(s string) string { return "ns." + s }

	tests := []struct {
		input string
		want  string
	}{
		{"gold > 1 AND 'x y' == name", "ns.gold > 1 AND 'x y' == ns.name"},
		{"NOT flag OR true", "NOT ns.flag OR true"},
		{"!flag", "!ns.flag"},
		{"(a)and(b)", "(ns.a)and(ns.b)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := RewriteIdentifiers(tt.input, prefix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRewriteIdentifiersRejectsBadInput(t *testing.T) {
	_, err := RewriteIdentifiers(`"é" == é_x`, func(s string) string { return s })
	assert.True(t, IsSyntaxError(err))
}

func TestRewriteIdentifiersPreservesUnicodeStrings(t *testing.T) {
	got, err := RewriteIdentifiers(`"ünï" == label`, func(s string) string { return "ns." + s })
	require.NoError(t, err)
	assert.Equal(t, `"ünï" == ns.label`, got)
}
