// Copyright (c) 2026 NextDash. All rights reserved.

// PostgreSQL implementations of the auth storage contracts.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] values via the dberr helper so no pgx details leak past
// this file.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nextdash/nextdash/internal/platform/dberr"
)

const accountColumns = `
	u.id, u.first_name, u.last_name, u.email, u.password_hash, u.role_id, r.name,
	COALESCE(r.permissions, '{}'::jsonb), u.is_active, u.email_verified,
	u.last_login_at, u.created_at, u.updated_at`

// PostgresAccountRepository implements [AccountRepository] using pgx.
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates the PostgreSQL account repository.
func NewAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

func scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID,
		&account.FirstName,
		&account.LastName,
		&account.Email,
		&account.PasswordHash,
		&account.RoleID,
		&account.RoleName,
		&account.Permissions,
		&account.IsActive,
		&account.EmailVerified,
		&account.LastLoginAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// FindByEmail retrieves an account with its role by exact email match.
//
// # Returns
//
// Returns [*Account] if found, or [apperr.NotFound] if no account exists.
func (repository *PostgresAccountRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	query := `
		SELECT` + accountColumns + `
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.email = $1`

	account, err := scanAccount(repository.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, "Account")
	}
	return account, nil
}

// FindByID retrieves an account with its role by primary key.
func (repository *PostgresAccountRepository) FindByID(ctx context.Context, id int64) (*Account, error) {
	query := `
		SELECT` + accountColumns + `
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1`

	account, err := scanAccount(repository.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "Account")
	}
	return account, nil
}

// UpdatePassword replaces only the password hash for an account.
func (repository *PostgresAccountRepository) UpdatePassword(ctx context.Context, userID int64, newHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	_, err := repository.pool.Exec(ctx, query, userID, newHash)
	if err != nil {
		return fmt.Errorf("account_repo_update_password_failed: %w", err)
	}
	return nil
}

// TouchLastLogin records the time of a successful authentication.
func (repository *PostgresAccountRepository) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	const query = `UPDATE users SET last_login_at = $2 WHERE id = $1`

	_, err := repository.pool.Exec(ctx, query, userID, at)
	if err != nil {
		return fmt.Errorf("account_repo_touch_last_login_failed: %w", err)
	}
	return nil
}

// ── Session Repository ───────────────────────────────────────────────────────

// PostgresSessionRepository implements [SessionRepository].
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates the PostgreSQL session repository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

// Create persists a new session row.
func (repository *PostgresSessionRepository) Create(ctx context.Context, session *Session) error {
	const query = `
		INSERT INTO user_sessions (user_id, token_hash, refresh_token_hash, user_agent, ip_address, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	err := repository.pool.QueryRow(ctx, query,
		session.UserID,
		session.TokenHash,
		session.RefreshTokenHash,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.CreatedAt,
	).Scan(&session.ID)

	if err != nil {
		return fmt.Errorf("session_repo_create_failed: %w", err)
	}
	return nil
}

const sessionColumns = `id, user_id, token_hash, refresh_token_hash, user_agent, ip_address, expires_at, created_at`

func scanSession(row pgx.Row) (*Session, error) {
	session := &Session{}
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.RefreshTokenHash,
		&session.UserAgent,
		&session.IPAddress,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// FindLiveByTokenHash retrieves the unexpired session for an access token digest.
// Absent and expired rows are indistinguishable to the caller.
func (repository *PostgresSessionRepository) FindLiveByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM user_sessions
		WHERE token_hash = $1 AND expires_at > $2`

	session, err := scanSession(repository.pool.QueryRow(ctx, query, tokenHash, now))
	if err != nil {
		return nil, dberr.Wrap(err, "Session")
	}
	return session, nil
}

// FindLiveByRefreshHash retrieves the unexpired session for a refresh token digest.
func (repository *PostgresSessionRepository) FindLiveByRefreshHash(ctx context.Context, refreshHash string, now time.Time) (*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM user_sessions
		WHERE refresh_token_hash = $1 AND expires_at > $2`

	session, err := scanSession(repository.pool.QueryRow(ctx, query, refreshHash, now))
	if err != nil {
		return nil, dberr.Wrap(err, "Session")
	}
	return session, nil
}

// DeleteByTokenHash removes the session matching the access token digest.
// Idempotent: a missing row is not an error.
func (repository *PostgresSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	const query = `DELETE FROM user_sessions WHERE token_hash = $1`

	_, err := repository.pool.Exec(ctx, query, tokenHash)
	if err != nil {
		return fmt.Errorf("session_repo_delete_failed: %w", err)
	}
	return nil
}

// DeleteByID removes a single session row.
func (repository *PostgresSessionRepository) DeleteByID(ctx context.Context, sessionID int64) error {
	const query = `DELETE FROM user_sessions WHERE id = $1`

	_, err := repository.pool.Exec(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("session_repo_delete_by_id_failed: %w", err)
	}
	return nil
}

// DeleteAllForUser removes every session belonging to the user.
func (repository *PostgresSessionRepository) DeleteAllForUser(ctx context.Context, userID int64) error {
	const query = `DELETE FROM user_sessions WHERE user_id = $1`

	_, err := repository.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("session_repo_delete_all_failed: %w", err)
	}
	return nil
}

// DeleteExpired removes all sessions whose expiry has passed and reports
// how many rows were reclaimed.
func (repository *PostgresSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM user_sessions WHERE expires_at <= $1`

	tag, err := repository.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("session_repo_delete_expired_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ── Ephemeral Token Repository ───────────────────────────────────────────────

// PostgresEphemeralTokenRepository implements [EphemeralTokenRepository].
type PostgresEphemeralTokenRepository struct {
	pool *pgxpool.Pool
}

// NewEphemeralTokenRepository creates the PostgreSQL ephemeral token repository.
func NewEphemeralTokenRepository(pool *pgxpool.Pool) *PostgresEphemeralTokenRepository {
	return &PostgresEphemeralTokenRepository{pool: pool}
}

// Upsert replaces any prior token of the same purpose for the user.
//
// The delete and insert run in one transaction so a concurrent issue can
// never leave two valid tokens for the same (user, purpose) pair.
func (repository *PostgresEphemeralTokenRepository) Upsert(ctx context.Context, token *EphemeralToken) error {
	transaction, err := repository.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ephemeral_repo_upsert_begin_failed: %w", err)
	}
	defer transaction.Rollback(ctx)

	const deleteQuery = `DELETE FROM ephemeral_tokens WHERE user_id = $1 AND purpose = $2`
	if _, err := transaction.Exec(ctx, deleteQuery, token.UserID, token.Purpose); err != nil {
		return fmt.Errorf("ephemeral_repo_upsert_delete_failed: %w", err)
	}

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	const insertQuery = `
		INSERT INTO ephemeral_tokens (user_id, token_hash, purpose, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err = transaction.QueryRow(ctx, insertQuery,
		token.UserID,
		token.TokenHash,
		token.Purpose,
		token.ExpiresAt,
		token.CreatedAt,
	).Scan(&token.ID)
	if err != nil {
		return fmt.Errorf("ephemeral_repo_upsert_insert_failed: %w", err)
	}

	if err := transaction.Commit(ctx); err != nil {
		return fmt.Errorf("ephemeral_repo_upsert_commit_failed: %w", err)
	}
	return nil
}

// Verify checks for a live row without consuming it.
func (repository *PostgresEphemeralTokenRepository) Verify(ctx context.Context, tokenHash string, purpose TokenPurpose, now time.Time) (int64, error) {
	const query = `
		SELECT user_id FROM ephemeral_tokens
		WHERE token_hash = $1 AND purpose = $2 AND expires_at > $3`

	var userID int64
	err := repository.pool.QueryRow(ctx, query, tokenHash, purpose, now).Scan(&userID)
	if err != nil {
		return 0, dberr.Wrap(err, "Token")
	}
	return userID, nil
}

// Consume deletes the live row matching the digest and purpose and returns
// the owning user ID. The single-statement DELETE ... RETURNING is the
// mutual exclusion: under concurrent calls the first deleter wins and the
// second sees ErrNoRows.
func (repository *PostgresEphemeralTokenRepository) Consume(ctx context.Context, tokenHash string, purpose TokenPurpose, now time.Time) (int64, error) {
	const query = `
		DELETE FROM ephemeral_tokens
		WHERE token_hash = $1 AND purpose = $2 AND expires_at > $3
		RETURNING user_id`

	var userID int64
	err := repository.pool.QueryRow(ctx, query, tokenHash, purpose, now).Scan(&userID)
	if err != nil {
		return 0, dberr.Wrap(err, "Token")
	}
	return userID, nil
}

// ConsumeVerification deletes the matching verification row and marks the
// owning account verified, both in one transaction.
func (repository *PostgresEphemeralTokenRepository) ConsumeVerification(ctx context.Context, tokenHash string, now time.Time) (int64, error) {
	transaction, err := repository.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ephemeral_repo_verify_begin_failed: %w", err)
	}
	defer transaction.Rollback(ctx)

	const deleteQuery = `
		DELETE FROM ephemeral_tokens
		WHERE token_hash = $1 AND purpose = $2 AND expires_at > $3
		RETURNING user_id`

	var userID int64
	err = transaction.QueryRow(ctx, deleteQuery, tokenHash, PurposeEmailVerification, now).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, dberr.Wrap(err, "Token")
		}
		return 0, fmt.Errorf("ephemeral_repo_verify_delete_failed: %w", err)
	}

	const verifyQuery = `UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`
	if _, err := transaction.Exec(ctx, verifyQuery, userID); err != nil {
		return 0, fmt.Errorf("ephemeral_repo_verify_update_failed: %w", err)
	}

	if err := transaction.Commit(ctx); err != nil {
		return 0, fmt.Errorf("ephemeral_repo_verify_commit_failed: %w", err)
	}
	return userID, nil
}

// DeleteExpired removes all rows whose expiry has passed.
func (repository *PostgresEphemeralTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM ephemeral_tokens WHERE expires_at <= $1`

	tag, err := repository.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("ephemeral_repo_delete_expired_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
