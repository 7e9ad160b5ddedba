// Copyright (c) 2026 NextDash. All rights reserved.

// Package sec provides the cryptographic primitives of the platform: password
// hashing, opaque token generation and digesting, the signed token codec, and
// the permission model.
//
// # Architecture
//
// This package isolates security-sensitive code from the domain logic. It has
// no storage access and is injected into the Application layer via small
// interfaces, which keeps it trivially testable with a fake clock.
package sec

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload embedded inside a signed token.
//
// It carries just enough identity to reconstruct the actor without a database
// round-trip on every request: the user ID, email, and role ID, plus the
// registered issued-at/expiry claims. Claims are never persisted.
type Claims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	RoleID int    `json:"rid"`
}

// ErrInvalidToken is the single failure outcome of token verification.
//
// Bad signature, malformed structure, wrong signing method, and expiry all
// collapse into this one error so that callers (and therefore clients) cannot
// distinguish "expired" from "forged". Anything more granular would be an
// oracle for an attacker probing the signing secret.
var ErrInvalidToken = errors.New("sec: invalid or expired token")

// TokenService issues and verifies the two classes of signed tokens using
// HMAC-SHA256.
//
// Access and refresh tokens are signed with DISTINCT secrets so that
// possession of one secret cannot forge the other class of token.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenService creates a TokenService from externally configured secrets
// and lifetimes.
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, issuer string) (*TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("sec: token secrets must not be empty")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("sec: access and refresh secrets must differ")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("sec: token lifetimes must be positive")
	}

	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        issuer,
		now:           time.Now,
	}, nil
}

// WithClock replaces the wall clock used for issuance and verification.
// It exists for tests; production code never calls it.
func (service *TokenService) WithClock(now func() time.Time) *TokenService {
	service.now = now
	return service
}

// AccessTTL returns the configured access token lifetime.
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (service *TokenService) RefreshTTL() time.Duration { return service.refreshTTL }

// # Issuance

// IssueAccessToken creates a signed short-lived access token for the identity.
func (service *TokenService) IssueAccessToken(userID int64, email string, roleID int) (string, error) {
	return service.issue(userID, email, roleID, service.accessTTL, service.accessSecret)
}

// IssueRefreshToken creates a signed long-lived refresh token for the identity.
func (service *TokenService) IssueRefreshToken(userID int64, email string, roleID int) (string, error) {
	return service.issue(userID, email, roleID, service.refreshTTL, service.refreshSecret)
}

func (service *TokenService) issue(userID int64, email string, roleID int, ttl time.Duration, secret []byte) (string, error) {
	currentTime := service.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(ttl)),
		},
		UserID: userID,
		Email:  email,
		RoleID: roleID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return signedToken, nil
}

// # Verification

// VerifyAccessToken checks the signature and expiry of an access token and
// returns its claims. Any failure yields [ErrInvalidToken].
func (service *TokenService) VerifyAccessToken(tokenString string) (*Claims, error) {
	return service.verify(tokenString, service.accessSecret)
}

// VerifyRefreshToken checks the signature and expiry of a refresh token and
// returns its claims. Any failure yields [ErrInvalidToken].
func (service *TokenService) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return service.verify(tokenString, service.refreshSecret)
}

func (service *TokenService) verify(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(service.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
