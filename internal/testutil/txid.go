package testutil

// FixedTxGenerator generates the same transaction ID every time.
//
// Debug logs and history entries then carry a stable ID, so two runs of the
// same scenario log identical lines.
//
// Unlike engine.FixedGenerator, which returns IDs in sequence, this
// generator always returns the same ID.
//
// Thread-safety: FixedTxGenerator is stateless and safe for concurrent use.
type FixedTxGenerator struct {
	id string
}

// NewFixedTxGenerator creates a new fixed transaction ID generator.
//
// If id is empty, Generate() returns "test-tx-default".
func NewFixedTxGenerator(id string) *FixedTxGenerator {
	if id == "" {
		id = "test-tx-default"
	}
	return &FixedTxGenerator{id: id}
}

// Generate returns the fixed ID.
//
// Implements engine.TxIDGenerator.
func (g *FixedTxGenerator) Generate() string {
	return g.id
}
