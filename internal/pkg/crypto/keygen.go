// Package crypto provides cryptographic utilities for TeamLedger.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// TokenBytes is the entropy, in bytes, of a generated session token.
const TokenBytes = 32

// GenerateToken generates a random URL-safe session token.
// The raw token is handed to the client once; only its hash is stored.
func GenerateToken() (string, error) {
	raw := make([]byte, TokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
