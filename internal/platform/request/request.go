// Copyright (c) 2026 NextDash. All rights reserved.

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nextdash/nextdash/internal/platform/apperr"
	"github.com/nextdash/nextdash/internal/platform/ctxutil"
	"github.com/nextdash/nextdash/internal/platform/sec"
	"github.com/nextdash/nextdash/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
NumericID retrieves a named URL parameter and parses it as a positive int64.

Returns:
  - int64: The parsed identifier
  - error: apperr.ValidationError if the parameter is not a positive integer
*/
func NumericID(request *http.Request, name string) (int64, error) {
	raw := chi.URLParam(request, name)

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.ValidationError("Invalid " + name + " parameter")
	}

	return id, nil
}

/*
Actor extracts the authenticated actor from the request context.

Returns nil if the request is not authenticated.
*/
func Actor(request *http.Request) *sec.Actor {
	return ctxutil.GetActor(request.Context())
}

/*
RequiredActor ensures the request is authenticated and returns the actor.

Returns:
  - *sec.Actor: The authenticated actor snapshot
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredActor(request *http.Request) (*sec.Actor, error) {

	// Get the actor injected by the authentication middleware
	actor := ctxutil.GetActor(request.Context())

	// If the request is not authenticated, return an error
	if actor == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	return actor, nil
}

/*
RequiredUserID returns the user ID of the currently authenticated actor.

Returns:
  - int64: User ID
  - error: apperr.Unauthorized if not authenticated
*/
func RequiredUserID(request *http.Request) (int64, error) {

	actor, err := RequiredActor(request)
	if err != nil {
		return 0, err
	}

	return actor.UserID, nil
}
