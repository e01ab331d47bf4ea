package recorder

import (
	"crypto/sha256"
	"encoding/hex"
)

// MaxHashSize is the maximum content size that will be hashed (1MB).
// Larger bodies are hashed on the first MaxHashSize bytes only, which keeps
// record construction cheap for large payloads while still providing a
// stable fingerprint.
const MaxHashSize = 1024 * 1024

// HashContent computes the SHA-256 hash of the content and returns it as a
// hex string. Returns an empty string for empty content.
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	if len(content) > MaxHashSize {
		content = content[:MaxHashSize]
	}

	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// HashString computes the SHA-256 hash of a string.
func HashString(s string) string {
	return HashContent([]byte(s))
}
