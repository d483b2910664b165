package domain

import "time"

// CSRFToken persists single-use anti-forgery tokens. Only the SHA-256 digest
// of the plaintext is stored; the plaintext exists transiently in the issuing
// response and the validating request.
type CSRFToken struct {
	ID         int64
	TokenHash  string
	SessionRef string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Expired reports whether the record is past its expiry at the given instant.
func (t CSRFToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
