package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken computes the hex-encoded SHA-256 hash of a session token.
// Tokens are stored hashed so a database leak doesn't leak live sessions.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidateSHA256 validates that a string is a valid SHA-256 hex hash.
func ValidateSHA256(hash string) bool {
	if len(hash) != 64 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
