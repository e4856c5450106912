package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id := gen.Generate()
		require.False(t, seen[id], "id %s generated twice", id)
		seen[id] = true

		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
	}
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("tx-a", "tx-b")

	assert.Equal(t, "tx-a", gen.Generate())
	assert.Equal(t, "tx-b", gen.Generate())
	assert.Equal(t, "tx-3", gen.Generate())
	assert.Equal(t, "tx-4", gen.Generate())
}

func TestFixedGenerator_Empty(t *testing.T) {
	gen := NewFixedGenerator()
	assert.Equal(t, "tx-1", gen.Generate())
}
