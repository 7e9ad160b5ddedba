// Copyright (c) 2026 NextDash. All rights reserved.

// Package auth implements credential verification, session lifecycle, and
// the token flows built on top of them (refresh, password reset, email
// verification).
//
// # Architecture
//
// Entities in this file represent the authoritative server-side state of an
// authenticated client. Raw tokens never appear in these structs: every
// stored token field holds a SHA-256 digest, so a database dump yields
// nothing replayable.
package auth

import (
	"time"

	"github.com/nextdash/nextdash/internal/platform/sec"
)

// TokenPurpose classifies an ephemeral single-use token.
type TokenPurpose string

const (
	// PurposePasswordReset tokens let the holder set a new password.
	// Short-lived: the link sits in an inbox.
	PurposePasswordReset TokenPurpose = "password_reset"

	// PurposeEmailVerification tokens confirm ownership of an address.
	PurposeEmailVerification TokenPurpose = "email_verification"
)

const (
	// ResetTokenBytes is the entropy of a password reset token before hex encoding.
	ResetTokenBytes = 32

	// VerificationTokenBytes is the entropy of an email verification token.
	VerificationTokenBytes = 32
)

// Account is the authentication-side view of a user row joined with its
// role. It carries exactly what the login and token flows need; full
// profile management lives in the identity package.
//
// # Rules
//   - Email is unique and matched exactly as stored.
//   - PasswordHash is produced by bcrypt only, never any other scheme.
//   - Inactive accounts authenticate as if they did not exist.
type Account struct {
	ID            int64             `json:"id"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	Email         string            `json:"email"`
	PasswordHash  string            `json:"-"` // Explicitly omitted from JSON for security.
	RoleID        int               `json:"role_id"`
	RoleName      string            `json:"role_name"`
	Permissions   sec.PermissionMap `json:"permissions"`
	IsActive      bool              `json:"is_active"`
	EmailVerified bool              `json:"email_verified"`
	LastLoginAt   *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// ToActor snapshots the account into the authorization view carried in the
// request context.
func (account *Account) ToActor() *sec.Actor {
	return &sec.Actor{
		UserID:      account.ID,
		Email:       account.Email,
		RoleID:      account.RoleID,
		Permissions: account.Permissions,
	}
}

// Session represents a live authenticated client.
//
// # Security Concept
//
// Access tokens are stateless JWTs and cannot be recalled before they
// expire. Every protected request therefore also checks for a matching
// session row; deleting the row revokes access immediately regardless of
// the JWT's remaining lifetime. The row is keyed by the access token's
// digest, with the refresh token's digest stored alongside for rotation.
type Session struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	TokenHash        string    `json:"-"` // Digest of the access token. Omitted for security.
	RefreshTokenHash string    `json:"-"` // Digest of the refresh token. Omitted for security.
	UserAgent        string    `json:"user_agent,omitempty"`
	IPAddress        string    `json:"ip_address,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// EphemeralToken is a single-use token for password reset or email
// verification. At most one valid token exists per (user, purpose) pair;
// issuing a new one supersedes the old. Consumption is a row deletion, so
// the first concurrent consumer wins and the second fails closed.
type EphemeralToken struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"user_id"`
	TokenHash string       `json:"-"`
	Purpose   TokenPurpose `json:"purpose"`
	ExpiresAt time.Time    `json:"expires_at"`
	CreatedAt time.Time    `json:"created_at"`
}
