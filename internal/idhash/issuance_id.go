package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeIssuanceID computes a deterministic issuance ID using SHA256.
// Formula: SHA256(kind|signature)
// Returns hex-encoded hash (64 characters).
func ComputeIssuanceID(kind string, signature string) string {
	data := fmt.Sprintf("%s|%s", kind, signature)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
