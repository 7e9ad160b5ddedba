// Copyright (c) 2026 NextDash. All rights reserved.

package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nextdash/nextdash/internal/platform/ctxutil"
	"github.com/nextdash/nextdash/internal/platform/middleware"
	"github.com/nextdash/nextdash/internal/platform/sec"
)

type fakeAuthenticator struct {
	actor *sec.Actor
	err   error
	seen  string
}

func (f *fakeAuthenticator) AuthenticateToken(_ context.Context, token string) (*sec.Actor, error) {
	f.seen = token
	if f.err != nil {
		return nil, f.err
	}
	return f.actor, nil
}

func okHandler(hit *bool) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		*hit = true
		writer.WriteHeader(http.StatusOK)
	})
}

func withActor(request *http.Request, actor *sec.Actor) *http.Request {
	return request.WithContext(ctxutil.WithActor(request.Context(), actor))
}

/*
TestExtractToken checks the header-then-cookie lookup order.
*/
func TestExtractToken(t *testing.T) {
	// 1. Bearer header wins.
	request := httptest.NewRequest("GET", "/", nil)
	request.Header.Set("Authorization", "Bearer header-token")
	request.AddCookie(&http.Cookie{Name: "auth_token", Value: "cookie-token"})
	assert.Equal(t, "header-token", middleware.ExtractToken(request))

	// 2. Scheme comparison is case-insensitive.
	request = httptest.NewRequest("GET", "/", nil)
	request.Header.Set("Authorization", "bearer lower-token")
	assert.Equal(t, "lower-token", middleware.ExtractToken(request))

	// 3. A malformed header is not silently rescued by the cookie.
	request = httptest.NewRequest("GET", "/", nil)
	request.Header.Set("Authorization", "Basic dXNlcjpwdw==")
	request.AddCookie(&http.Cookie{Name: "auth_token", Value: "cookie-token"})
	assert.Empty(t, middleware.ExtractToken(request))

	// 4. Cookie fallback when no header is present.
	request = httptest.NewRequest("GET", "/", nil)
	request.AddCookie(&http.Cookie{Name: "auth_token", Value: "cookie-token"})
	assert.Equal(t, "cookie-token", middleware.ExtractToken(request))

	// 5. Nothing at all.
	request = httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, middleware.ExtractToken(request))
}

/*
TestAuthenticate_AnonymousPassThrough checks that tokenless requests
continue anonymously while invalid tokens are rejected outright.
*/
func TestAuthenticate_AnonymousPassThrough(t *testing.T) {
	authenticator := &fakeAuthenticator{err: errors.New("bad token")}

	// 1. No token: the request continues with no actor.
	var hit bool
	handler := middleware.Authenticate(authenticator)(okHandler(&hit))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/", nil))
	assert.True(t, hit)
	assert.Equal(t, http.StatusOK, recorder.Code)

	// 2. Present but invalid: 401, not anonymous downgrade.
	hit = false
	recorder = httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/", nil)
	request.Header.Set("Authorization", "Bearer broken")
	handler.ServeHTTP(recorder, request)
	assert.False(t, hit)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "broken", authenticator.seen)
}

/*
TestAuthenticate_AttachesActor checks that a valid token puts the actor
into the request context.
*/
func TestAuthenticate_AttachesActor(t *testing.T) {
	authenticator := &fakeAuthenticator{
		actor: &sec.Actor{UserID: 7, RoleID: 2, Permissions: sec.PermissionMap{}},
	}

	var got *sec.Actor
	handler := middleware.Authenticate(authenticator)(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		got = ctxutil.GetActor(request.Context())
	}))

	request := httptest.NewRequest("GET", "/", nil)
	request.Header.Set("Authorization", "Bearer good")
	handler.ServeHTTP(httptest.NewRecorder(), request)

	assert.NotNil(t, got)
	assert.Equal(t, int64(7), got.UserID)
}

/*
TestRequirePermission checks the three outcomes: no actor, missing grant,
and admin bypass.
*/
func TestRequirePermission(t *testing.T) {
	guard := middleware.RequirePermission("users", "delete")

	// 1. No actor: 401.
	var hit bool
	recorder := httptest.NewRecorder()
	guard(okHandler(&hit)).ServeHTTP(recorder, httptest.NewRequest("DELETE", "/users/3", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, hit)

	// 2. Actor without the grant: 403.
	member := &sec.Actor{UserID: 3, RoleID: 3, Permissions: sec.PermissionMap{"users": {"read"}}}
	recorder = httptest.NewRecorder()
	guard(okHandler(&hit)).ServeHTTP(recorder, withActor(httptest.NewRequest("DELETE", "/users/3", nil), member))
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.False(t, hit)

	// 3. Actor with the grant passes.
	granted := &sec.Actor{UserID: 2, RoleID: 2, Permissions: sec.PermissionMap{"users": {"delete"}}}
	recorder = httptest.NewRecorder()
	guard(okHandler(&hit)).ServeHTTP(recorder, withActor(httptest.NewRequest("DELETE", "/users/3", nil), granted))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, hit)

	// 4. Admin passes without the explicit grant.
	hit = false
	admin := &sec.Actor{UserID: 1, RoleID: 1, Permissions: sec.PermissionMap{}}
	recorder = httptest.NewRecorder()
	guard(okHandler(&hit)).ServeHTTP(recorder, withActor(httptest.NewRequest("DELETE", "/users/3", nil), admin))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, hit)
}

/*
TestRequireRole checks the hierarchy threshold guard.
*/
func TestRequireRole(t *testing.T) {
	guard := middleware.RequireRole(2)

	manager := &sec.Actor{UserID: 2, RoleID: 2, Permissions: sec.PermissionMap{}}
	var hit bool
	recorder := httptest.NewRecorder()
	guard(okHandler(&hit)).ServeHTTP(recorder, withActor(httptest.NewRequest("GET", "/", nil), manager))
	assert.Equal(t, http.StatusOK, recorder.Code)

	member := &sec.Actor{UserID: 3, RoleID: 3, Permissions: sec.PermissionMap{}}
	recorder = httptest.NewRecorder()
	guard(okHandler(&hit)).ServeHTTP(recorder, withActor(httptest.NewRequest("GET", "/", nil), member))
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}
