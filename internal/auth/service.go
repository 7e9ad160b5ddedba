// Copyright (c) 2026 NextDash. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nextdash/nextdash/internal/platform/apperr"
	"github.com/nextdash/nextdash/internal/platform/ctxutil"
	"github.com/nextdash/nextdash/internal/platform/mail"
	"github.com/nextdash/nextdash/internal/platform/sec"
)

// Cause sentinels distinguish login failures in server-side logs while the
// client always receives the same generic message.
var (
	errUnknownEmail     = errors.New("auth: no account for email")
	errInactiveAccount  = errors.New("auth: account is deactivated")
	errPasswordMismatch = errors.New("auth: password mismatch")
	errNoSession        = errors.New("auth: no live session for token")
)

// loginFailedMessage is identical for unknown email, inactive account, and
// wrong password so responses cannot be used to enumerate users.
const loginFailedMessage = "Invalid email or password"

// Config carries the externally configured lifetimes and link base.
type Config struct {
	SessionTTL           time.Duration
	ResetTokenTTL        time.Duration
	VerificationTokenTTL time.Duration
	AppBaseURL           string
}

// Service implements the authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to credential checks,
// session lifecycle, or token consumption must be reviewed by the security
// team.
//
// # State Machine
//
// Each protected request walks Unauthenticated -> TokenPresented ->
// TokenVerified -> SessionConfirmed -> Authorized; any failing stage
// short-circuits to rejected. Both the JWT check and the session-row check
// are mandatory: a valid signature with no live session row is NOT
// authenticated.
type Service struct {
	accounts AccountRepository
	sessions SessionRepository
	tokens   EphemeralTokenRepository
	signer   *sec.TokenService
	hasher   sec.PasswordHasher
	mailer   mail.Mailer
	cfg      Config

	now func() time.Time
}

// NewService constructs a new [Service] with its dependencies.
func NewService(
	accounts AccountRepository,
	sessions SessionRepository,
	tokens EphemeralTokenRepository,
	signer *sec.TokenService,
	hasher sec.PasswordHasher,
	mailer mail.Mailer,
	cfg Config,
) *Service {
	return &Service{
		accounts: accounts,
		sessions: sessions,
		tokens:   tokens,
		signer:   signer,
		hasher:   hasher,
		mailer:   mailer,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock overrides the wall clock. Test hook for expiry boundaries.
func (service *Service) WithClock(now func() time.Time) *Service {
	service.now = now
	return service
}

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// LoginResult represents a successfully established session.
type LoginResult struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Account      *Account  `json:"user"`
}

// Login validates credentials and establishes a session.
//
// # Parameters
//   - ctx: Context for the database operations.
//   - input: Email, plain-text password, and client metadata.
//
// # Returns
//   - A [*LoginResult] carrying both tokens and the sanitized account.
//   - Returns [apperr.Unauthorized] with one generic message whether the
//     email is unknown, the account is inactive, or the password is wrong.
//
// # Flow
//  1. Look up the account by email, exactly as stored.
//  2. Reject inactive accounts before touching the password.
//  3. Verify the bcrypt hash (constant-time comparison).
//  4. Issue the access/refresh token pair and persist the session row.
func (service *Service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	// ── 1. Fetch Account ──────────────────────────────────────────────────

	account, err := service.accounts.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, apperr.Unauthorized(loginFailedMessage).WithCause(errUnknownEmail)
	}

	// ── 2. Account State ──────────────────────────────────────────────────

	if !account.IsActive {
		return nil, apperr.Unauthorized(loginFailedMessage).WithCause(errInactiveAccount)
	}

	// ── 3. Credential Verification ────────────────────────────────────────

	if !service.hasher.Verify(input.Password, account.PasswordHash) {
		return nil, apperr.Unauthorized(loginFailedMessage).WithCause(errPasswordMismatch)
	}

	// ── 4. Session Establishment ──────────────────────────────────────────

	result, err := service.establishSession(ctx, account, input.UserAgent, input.IPAddress)
	if err != nil {
		return nil, err
	}

	now := service.now()
	if err := service.accounts.TouchLastLogin(ctx, account.ID, now); err != nil {
		return nil, fmt.Errorf("auth_service_touch_last_login_failed: %w", err)
	}
	account.LastLoginAt = &now

	return result, nil
}

// establishSession issues a token pair and persists the matching session row.
// The session expiry is a fixed window from now, independent of the JWTs'
// own expiries, so revocation and the sweep work off one timestamp.
func (service *Service) establishSession(ctx context.Context, account *Account, userAgent, ipAddress string) (*LoginResult, error) {
	accessToken, err := service.signer.IssueAccessToken(account.ID, account.Email, account.RoleID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refreshToken, err := service.signer.IssueRefreshToken(account.ID, account.Email, account.RoleID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	expiresAt := service.now().Add(service.cfg.SessionTTL)
	session := &Session{
		UserID:           account.ID,
		TokenHash:        sec.DigestToken(accessToken),
		RefreshTokenHash: sec.DigestToken(refreshToken),
		UserAgent:        userAgent,
		IPAddress:        ipAddress,
		ExpiresAt:        expiresAt,
		CreatedAt:        service.now(),
	}

	if err := service.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("auth_service_session_create_failed: %w", err)
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		Account:      account,
	}, nil
}

// AuthenticateToken resolves an access token into an authorization actor.
//
// # Parameters
//   - ctx: Context for the database operations.
//   - token: The raw access token presented by the client.
//
// # Returns
//   - The [*sec.Actor] snapshot on success.
//   - Returns [apperr.Unauthorized] at ANY failing stage. Signature,
//     expiry, missing session, and deactivated account are deliberately
//     indistinguishable to the caller.
//
// # Security
//
// The session-row lookup is not optional: it is what makes logout and
// revoke-all effective while the JWT is still within its lifetime.
func (service *Service) AuthenticateToken(ctx context.Context, token string) (*sec.Actor, error) {
	// ── 1. Signature & Expiry ─────────────────────────────────────────────

	// Claims are not trusted beyond the signature check; the database row
	// is authoritative for role and permissions after a role change.
	if _, err := service.signer.VerifyAccessToken(token); err != nil {
		return nil, apperr.Unauthorized("Invalid or expired token").WithCause(err)
	}

	// ── 2. Session Confirmation ───────────────────────────────────────────

	session, err := service.sessions.FindLiveByTokenHash(ctx, sec.DigestToken(token), service.now())
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired token").WithCause(errNoSession)
	}

	// ── 3. Identity Load ──────────────────────────────────────────────────

	account, err := service.accounts.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired token").WithCause(err)
	}
	if !account.IsActive {
		return nil, apperr.Unauthorized("Invalid or expired token").WithCause(errInactiveAccount)
	}

	return account.ToActor(), nil
}

// Me returns the sanitized account for the authenticated user.
func (service *Service) Me(ctx context.Context, userID int64) (*Account, error) {
	account, err := service.accounts.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Refresh implements refresh-token rotation.
//
// It verifies the refresh JWT, locates the session it belongs to, destroys
// that session, and establishes a brand-new one. The old token pair is dead
// the moment this returns, which stops replay of a stolen refresh token.
func (service *Service) Refresh(ctx context.Context, refreshToken, userAgent, ipAddress string) (*LoginResult, error) {
	// ── 1. Verify Refresh Token ───────────────────────────────────────────

	if _, err := service.signer.VerifyRefreshToken(refreshToken); err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token").WithCause(err)
	}

	// ── 2. Find & Rotate Session ──────────────────────────────────────────

	session, err := service.sessions.FindLiveByRefreshHash(ctx, sec.DigestToken(refreshToken), service.now())
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token").WithCause(errNoSession)
	}

	if err := service.sessions.DeleteByID(ctx, session.ID); err != nil {
		return nil, fmt.Errorf("auth_service_rotate_delete_failed: %w", err)
	}

	// ── 3. Reload Account ─────────────────────────────────────────────────

	account, err := service.accounts.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token").WithCause(err)
	}
	if !account.IsActive {
		return nil, apperr.Unauthorized("Invalid or expired refresh token").WithCause(errInactiveAccount)
	}

	// ── 4. Issue Fresh Pair ───────────────────────────────────────────────

	return service.establishSession(ctx, account, userAgent, ipAddress)
}

// Logout revokes the session matching the access token.
// Idempotent: an unknown or already revoked token is still a successful logout.
func (service *Service) Logout(ctx context.Context, accessToken string) error {
	if err := service.sessions.DeleteByTokenHash(ctx, sec.DigestToken(accessToken)); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}
	return nil
}

// RequestPasswordReset issues a reset token and emails the reset link.
//
// # Security
//
// The outcome is identical whether or not the email has an account, and a
// mail delivery failure is logged rather than surfaced. Any variation in
// the response would let a caller probe which addresses are registered.
func (service *Service) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := service.accounts.FindByEmail(ctx, email)
	if err != nil {
		// Unknown address: pretend we sent something.
		return nil
	}

	rawToken, err := sec.GenerateToken(ResetTokenBytes)
	if err != nil {
		return fmt.Errorf("auth_service_reset_token_failed: %w", err)
	}

	token := &EphemeralToken{
		UserID:    account.ID,
		TokenHash: sec.DigestToken(rawToken),
		Purpose:   PurposePasswordReset,
		ExpiresAt: service.now().Add(service.cfg.ResetTokenTTL),
		CreatedAt: service.now(),
	}
	if err := service.tokens.Upsert(ctx, token); err != nil {
		return fmt.Errorf("auth_service_reset_upsert_failed: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", service.cfg.AppBaseURL, rawToken)
	err = service.mailer.Send(ctx, account.Email,
		"Reset Your NextDash Password",
		fmt.Sprintf(`<p>Hi %s,</p><p>Click the link below to reset your password. It expires in %d minutes.</p><p><a href="%s">Reset password</a></p>`,
			account.FirstName, int(service.cfg.ResetTokenTTL.Minutes()), resetURL),
		fmt.Sprintf("Hi %s,\n\nReset your password here (expires in %d minutes): %s\n",
			account.FirstName, int(service.cfg.ResetTokenTTL.Minutes()), resetURL),
	)
	if err != nil {
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "password_reset_mail_failed",
			"user_id", account.ID, "error", err)
	}

	return nil
}

// VerifyPasswordResetToken checks whether a reset token is still valid
// without consuming it. The reset page calls this before showing the form
// so the user is not asked for a new password against a dead link.
func (service *Service) VerifyPasswordResetToken(ctx context.Context, rawToken string) error {
	_, err := service.tokens.Verify(ctx, sec.DigestToken(rawToken), PurposePasswordReset, service.now())
	if err != nil {
		return apperr.Unauthorized("Invalid or expired reset token").WithCause(err)
	}
	return nil
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
//
// # Flow
//  1. Consume the token (single-row delete; first caller wins).
//  2. Hash and persist the new password.
//  3. Revoke every session so a stolen session does not survive the reset.
func (service *Service) ConfirmPasswordReset(ctx context.Context, rawToken, newPassword string) error {
	userID, err := service.tokens.Consume(ctx, sec.DigestToken(rawToken), PurposePasswordReset, service.now())
	if err != nil {
		return apperr.Unauthorized("Invalid or expired reset token").WithCause(err)
	}

	newHash, err := service.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_hash_failed: %w", err)
	}

	if err := service.accounts.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("auth_service_reset_persist_failed: %w", err)
	}

	if err := service.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("auth_service_reset_revoke_failed: %w", err)
	}

	return nil
}

// ConfirmEmailVerification consumes a verification token and flips the
// account's verified flag. Both writes happen in one transaction inside
// the store.
func (service *Service) ConfirmEmailVerification(ctx context.Context, rawToken string) error {
	_, err := service.tokens.ConsumeVerification(ctx, sec.DigestToken(rawToken), service.now())
	if err != nil {
		if apperr.IsAppError(err) {
			return apperr.Unauthorized("Invalid or expired verification token").WithCause(err)
		}
		return err
	}
	return nil
}

// IssueEmailVerification creates a verification token for the account and
// emails the confirmation link. Called by identity when an account is
// created or its email changes.
func (service *Service) IssueEmailVerification(ctx context.Context, userID int64) error {
	account, err := service.accounts.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	rawToken, err := sec.GenerateToken(VerificationTokenBytes)
	if err != nil {
		return fmt.Errorf("auth_service_verification_token_failed: %w", err)
	}

	token := &EphemeralToken{
		UserID:    account.ID,
		TokenHash: sec.DigestToken(rawToken),
		Purpose:   PurposeEmailVerification,
		ExpiresAt: service.now().Add(service.cfg.VerificationTokenTTL),
		CreatedAt: service.now(),
	}
	if err := service.tokens.Upsert(ctx, token); err != nil {
		return fmt.Errorf("auth_service_verification_upsert_failed: %w", err)
	}

	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", service.cfg.AppBaseURL, rawToken)
	err = service.mailer.Send(ctx, account.Email,
		"Verify Your NextDash Email",
		fmt.Sprintf(`<p>Hi %s,</p><p>Confirm your email address by clicking the link below.</p><p><a href="%s">Verify email</a></p>`,
			account.FirstName, verifyURL),
		fmt.Sprintf("Hi %s,\n\nConfirm your email address: %s\n", account.FirstName, verifyURL),
	)
	if err != nil {
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "verification_mail_failed",
			"user_id", account.ID, "error", err)
	}

	return nil
}

// SweepExpired purges expired sessions and ephemeral tokens. Run from the
// periodic maintenance worker; safe alongside live traffic.
func (service *Service) SweepExpired(ctx context.Context) (sessions, tokens int64, err error) {
	now := service.now()

	sessions, err = service.sessions.DeleteExpired(ctx, now)
	if err != nil {
		return 0, 0, err
	}

	tokens, err = service.tokens.DeleteExpired(ctx, now)
	if err != nil {
		return sessions, 0, err
	}

	return sessions, tokens, nil
}
