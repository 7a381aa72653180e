// Package sha256 names stored blobs by content digest.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// ShortLen is the digest prefix length used in blob names.
const ShortLen = 12

// Digest returns the hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Short returns the first ShortLen hex characters of the digest.
func Short(data []byte) string {
	return Digest(data)[:ShortLen]
}
