package ssn

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the hex-encoded SHA-256 of the resident registration number
// concatenated with a static salt. The salt is a fixed deployment secret,
// not per-record random: the hash must be deterministic so it can serve as
// a dedupe and lookup key.
func Hash(ssn, salt string) string {
	sum := sha256.Sum256([]byte(ssn + salt))
	return hex.EncodeToString(sum[:])
}
