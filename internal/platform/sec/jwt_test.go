// Copyright (c) 2026 NextDash. All rights reserved.

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextdash/nextdash/internal/platform/sec"
)

func newSigner(t *testing.T) *sec.TokenService {
	t.Helper()
	signer, err := sec.NewTokenService("access-secret-a", "refresh-secret-b", 15*time.Minute, 168*time.Hour, "nextdash.app")
	require.NoError(t, err)
	return signer
}

/*
TestNewTokenService_Validation checks the constructor rejections: empty
secrets, equal secrets, and non-positive lifetimes.
*/
func TestNewTokenService_Validation(t *testing.T) {
	_, err := sec.NewTokenService("", "b", time.Minute, time.Hour, "nextdash.app")
	assert.Error(t, err)

	_, err = sec.NewTokenService("same", "same", time.Minute, time.Hour, "nextdash.app")
	assert.Error(t, err)

	_, err = sec.NewTokenService("a", "b", 0, time.Hour, "nextdash.app")
	assert.Error(t, err)
}

/*
TestTokens_RoundTrip checks that issued tokens verify and carry the
identity claims.
*/
func TestTokens_RoundTrip(t *testing.T) {
	signer := newSigner(t)

	accessToken, err := signer.IssueAccessToken(42, "mona@example.com", 2)
	require.NoError(t, err)

	claims, err := signer.VerifyAccessToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "mona@example.com", claims.Email)
	assert.Equal(t, 2, claims.RoleID)
	assert.Equal(t, "nextdash.app", claims.Issuer)

	refreshToken, err := signer.IssueRefreshToken(42, "mona@example.com", 2)
	require.NoError(t, err)
	_, err = signer.VerifyRefreshToken(refreshToken)
	require.NoError(t, err)
}

/*
TestTokens_ClassSeparation checks that an access token never verifies as
a refresh token and vice versa.
*/
func TestTokens_ClassSeparation(t *testing.T) {
	signer := newSigner(t)

	accessToken, err := signer.IssueAccessToken(42, "mona@example.com", 2)
	require.NoError(t, err)
	refreshToken, err := signer.IssueRefreshToken(42, "mona@example.com", 2)
	require.NoError(t, err)

	_, err = signer.VerifyRefreshToken(accessToken)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)

	_, err = signer.VerifyAccessToken(refreshToken)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)
}

/*
TestTokens_Expiry checks expiry enforcement with an injected clock.
*/
func TestTokens_Expiry(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer := newSigner(t).WithClock(func() time.Time { return clock })

	accessToken, err := signer.IssueAccessToken(42, "mona@example.com", 2)
	require.NoError(t, err)

	// Still valid just inside the lifetime.
	clock = clock.Add(14 * time.Minute)
	_, err = signer.VerifyAccessToken(accessToken)
	require.NoError(t, err)

	// Dead just past it.
	clock = clock.Add(2 * time.Minute)
	_, err = signer.VerifyAccessToken(accessToken)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)
}

/*
TestTokens_ForeignSignature checks that tokens signed with a different
secret are rejected uniformly.
*/
func TestTokens_ForeignSignature(t *testing.T) {
	signer := newSigner(t)

	foreign, err := sec.NewTokenService("other-access", "other-refresh", 15*time.Minute, 168*time.Hour, "nextdash.app")
	require.NoError(t, err)

	forged, err := foreign.IssueAccessToken(42, "mona@example.com", 1)
	require.NoError(t, err)

	_, err = signer.VerifyAccessToken(forged)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)

	_, err = signer.VerifyAccessToken("not-even-a-token")
	assert.ErrorIs(t, err, sec.ErrInvalidToken)
}
