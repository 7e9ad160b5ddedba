// Copyright (c) 2026 NextDash. All rights reserved.

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// # Opaque Tokens

// DefaultTokenLength is the byte length of generated opaque tokens.
// 32 random bytes (256 bits) leave brute-force lookup out of reach.
const DefaultTokenLength = 32

// GenerateToken returns a hex-encoded cryptographically random value of
// byteLength random bytes. It is used for session refresh tokens and for
// password-reset / email-verification tokens.
func GenerateToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultTokenLength
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sec: failed to generate token: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// DigestToken returns the hex-encoded SHA-256 digest of a raw opaque token.
//
// Opaque tokens are already high-entropy random values, so a fast one-way
// hash is appropriate here (unlike passwords, which go through bcrypt).
// Only the digest ever reaches storage or a WHERE clause, so a database
// compromise does not yield usable secrets.
func DigestToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
