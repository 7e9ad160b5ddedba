// Copyright (c) 2026 NextDash. All rights reserved.

package auth

import (
	"context"
	"time"
)

// AccountRepository defines the authentication-side data access contract
// for user rows.
//
// # Review Process
//
// This interface is placed in a separate file from session.go so entity
// changes and storage-contract changes can be reviewed independently.
//
// # Implementations
//
// The canonical implementation is PostgreSQL (store_postgres.go). Lookups
// always join the role row so the caller receives a complete permission map.
type AccountRepository interface {
	// FindByEmail returns the account with the given email, matched exactly
	// as stored.
	//
	// Returns [apperr.NotFound] if no account is registered with this email.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// FindByID returns the account with the given ID.
	//
	// Returns [apperr.NotFound] if the account does not exist.
	FindByID(ctx context.Context, id int64) (*Account, error)

	// UpdatePassword replaces only the account's password hash.
	// Kept separate from profile updates to prevent accidental overwrites.
	UpdatePassword(ctx context.Context, userID int64, newHash string) error

	// TouchLastLogin records a successful authentication timestamp.
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error
}

// SessionRepository defines the data access contract for session rows.
//
// # Domain Ownership
//
// Sessions are owned entirely by the auth domain; no other package reads
// or writes them directly.
type SessionRepository interface {
	// Create persists a new session for an authenticated login.
	// Token hashes must already be digests, never raw tokens.
	Create(ctx context.Context, session *Session) error

	// FindLiveByTokenHash returns the unexpired session matching the access
	// token digest.
	//
	// Returns [apperr.NotFound] uniformly whether the row is absent or
	// expired, so callers cannot distinguish the two.
	FindLiveByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*Session, error)

	// FindLiveByRefreshHash returns the unexpired session matching the
	// refresh token digest. Same uniform not-found behavior.
	FindLiveByRefreshHash(ctx context.Context, refreshHash string, now time.Time) (*Session, error)

	// DeleteByTokenHash removes the session matching the access token
	// digest. Deleting a non-existent row is not an error.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteByID removes a specific session row.
	DeleteByID(ctx context.Context, sessionID int64) error

	// DeleteAllForUser removes every session belonging to the user.
	// Used on forced logout-everywhere, e.g. after a password change.
	DeleteAllForUser(ctx context.Context, userID int64) error

	// DeleteExpired removes all sessions whose expiry has passed.
	// Safe to run concurrently with normal traffic.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// EphemeralTokenRepository defines the contract for single-use token rows.
type EphemeralTokenRepository interface {
	// Upsert stores the token digest for the (user, purpose) pair,
	// replacing any previous token of the same purpose. The replacement
	// must be atomic so a concurrent issue never leaves two valid tokens.
	Upsert(ctx context.Context, token *EphemeralToken) error

	// Verify reports the owning user ID for a live row matching the digest
	// and purpose without consuming it. Not-found, expired, and wrong
	// purpose are one opaque outcome ([apperr.NotFound]).
	Verify(ctx context.Context, tokenHash string, purpose TokenPurpose, now time.Time) (int64, error)

	// Consume atomically deletes the unexpired row matching the digest and
	// purpose, returning the owning user ID.
	//
	// Returns [apperr.NotFound] if no such row exists; under concurrent
	// calls exactly one caller succeeds.
	Consume(ctx context.Context, tokenHash string, purpose TokenPurpose, now time.Time) (int64, error)

	// ConsumeVerification deletes the matching verification row and flips
	// the owning account's verified flag in a single transaction, returning
	// the user ID.
	ConsumeVerification(ctx context.Context, tokenHash string, now time.Time) (int64, error)

	// DeleteExpired removes all rows whose expiry has passed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
