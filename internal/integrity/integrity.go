// Package integrity provides deterministic content hashing used to detect
// whether a contract's source bytes have changed since indexing.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeFileHash produces a SHA-256 hex digest of a contract's raw source
// bytes, in the same hex SHA-256 form the upload pipeline stores as
// Contract.FileHash, so a caller can hash its current copy of a file and
// pass the result to check_change (spec §6). No source bytes are stored, so
// the stored hash is never recomputed from a blob.
func ComputeFileHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
