package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// EncodedLength is the length of a generated token: 32 random bytes rendered
// as lowercase hex.
const EncodedLength = 64

// Generate returns a fresh anti-forgery token built from n bytes of
// OS-provided randomness, hex-encoded. Callers pass the configured byte
// count; anything below 32 is raised to 32.
func Generate(n int) (string, error) {
	if n < 32 {
		n = 32
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read entropy: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Hash returns the hex-encoded SHA-256 digest of the plaintext token. Records
// are stored and looked up by this digest so the plaintext never persists.
func Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
