// Copyright (c) 2026 NextDash. All rights reserved.

package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nextdash/nextdash/internal/platform/ctxutil"
	"github.com/nextdash/nextdash/internal/platform/sec"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Initially should return the default logger
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_Actor verifies that the authenticated actor can be stored in
context.
*/
func TestContext_Actor(t *testing.T) {
	ctx := context.Background()
	actor := &sec.Actor{
		UserID: 7,
		Email:  "mona@example.com",
		RoleID: 2,
	}

	// 1. Anonymous requests carry no actor
	assert.Nil(t, ctxutil.GetActor(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithActor(ctx, actor)
	retrieved := ctxutil.GetActor(ctx)

	assert.NotNil(t, retrieved)
	assert.Equal(t, int64(7), retrieved.UserID)
	assert.Equal(t, 2, retrieved.RoleID)
}
