// Copyright (c) 2026 NextDash. All rights reserved.

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/nextdash/nextdash/internal/platform/constants"
	"github.com/nextdash/nextdash/internal/platform/ctxutil"
	"github.com/nextdash/nextdash/internal/platform/sec"
)

// # Authentication

// Authenticator resolves a bearer token into an authorization snapshot.
// Implemented by the auth service so this package stays free of domain imports.
type Authenticator interface {
	AuthenticateToken(ctx context.Context, token string) (*sec.Actor, error)
}

/*
Authenticate extracts the access token from the request and, when it is
valid, attaches the resulting actor to the context.

Token lookup order:

 1. Authorization header ("Bearer <token>").
 2. The auth_token cookie.

Requests without a token pass through anonymously so that public routes
keep working; a token that is present but invalid is rejected outright
rather than downgraded to anonymous.
*/
func Authenticate(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			token := ExtractToken(request)
			if token == "" {
				next.ServeHTTP(writer, request)
				return
			}

			actor, err := authenticator.AuthenticateToken(request.Context(), token)
			if err != nil {
				writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
				return
			}

			ctx := ctxutil.WithActor(request.Context(), actor)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// ExtractToken pulls the raw access token out of the request. Exported so
// the logout handler can revoke the exact token that authenticated it.
func ExtractToken(request *http.Request) string {

	header := request.Header.Get(constants.HeaderAuthorization)
	if header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, constants.AuthHeaderScheme) {
			return strings.TrimSpace(token)
		}
		return ""
	}

	cookie, err := request.Cookie(constants.AuthTokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// # Authorization Guards

// RequireAuth rejects requests that carry no authenticated actor.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

		if ctxutil.GetActor(request.Context()) == nil {
			writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		next.ServeHTTP(writer, request)
	})
}

// RequirePermission allows only actors holding the given resource/action grant.
// Admins pass unconditionally.
func RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			actor := ctxutil.GetActor(request.Context())
			if actor == nil {
				writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			if !actor.IsAdmin() && !actor.HasPermission(resource, action) {
				writeError(writer, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// RequireRole allows only actors at or above the given role threshold.
func RequireRole(roleID int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			actor := ctxutil.GetActor(request.Context())
			if actor == nil {
				writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			if !actor.IsAtLeastRole(roleID) {
				writeError(writer, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// RequireAdmin restricts the route to administrators.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

		actor := ctxutil.GetActor(request.Context())
		if actor == nil {
			writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		if !actor.IsAdmin() {
			writeError(writer, http.StatusForbidden, "FORBIDDEN", "Administrator access required")
			return
		}

		next.ServeHTTP(writer, request)
	})
}
