// Copyright (c) 2026 NextDash. All rights reserved.

package sec

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor applied when configuration does not
// override it.
const DefaultBcryptCost = 12

// PasswordHasher applies the bcrypt adaptive hash with a configured work factor.
//
// The zero value is not useful; construct with [NewPasswordHasher] so the
// cost is validated once at startup.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher with the given work factor.
// Out-of-range values fall back to [DefaultBcryptCost].
func NewPasswordHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return PasswordHasher{cost: cost}
}

// Hash hashes a plain-text password using the bcrypt algorithm.
func (h PasswordHasher) Hash(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), h.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify compares a plain-text password with its hashed version.
//
// It reports false for any mismatch, including a malformed digest; it never
// returns an error, so callers cannot branch on the failure reason.
func (h PasswordHasher) Verify(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}
