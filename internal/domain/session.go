package domain

import (
	"time"
)

// Session is an issued bearer token. The token itself is returned to the
// caller exactly once at login; only its SHA-256 hash is persisted.
type Session struct {
	// ID is the unique identifier for the session (auto-generated).
	ID int64 `json:"id"`

	// UserID is the user the session authenticates.
	UserID int64 `json:"user_id"`

	// TokenHash is the hex-encoded SHA-256 hash of the bearer token.
	TokenHash string `json:"-"`

	// ExpiresAt is when the session stops authenticating requests.
	ExpiresAt time.Time `json:"expires_at"`

	// CreatedAt is when the session was issued.
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
