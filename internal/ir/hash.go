package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainSnapshot prefixes every snapshot digest. Bump the version suffix
// if the canonical form ever changes.
const DomainSnapshot = "factstore/snapshot/v1"

// Digest hashes a fact table as SHA256(DomainSnapshot || 0x00 || canonical).
// Insertion order does not affect the result.
func Digest(facts []Fact) (string, error) {
	canonical, err := MarshalCanonical(facts)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	sum := sha256.New()
	sum.Write(append([]byte(DomainSnapshot), 0x00))
	sum.Write(canonical)
	return hex.EncodeToString(sum.Sum(nil)), nil
}
