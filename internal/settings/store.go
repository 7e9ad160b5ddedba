// Copyright (c) 2026 NextDash. All rights reserved.

package settings

import (
	"context"
	"encoding/json"
)

// AdminRepository is the storage contract for platform-wide settings.
type AdminRepository interface {
	// List returns every admin setting ordered by key.
	List(ctx context.Context) ([]AdminSetting, error)

	// GetMany returns the values for the requested keys. Missing keys are
	// simply absent from the result.
	GetMany(ctx context.Context, keys []string) (map[string]json.RawMessage, error)

	// Upsert inserts or replaces a single setting value.
	Upsert(ctx context.Context, key string, value json.RawMessage) error
}

// UserRepository is the storage contract for per-user settings documents.
type UserRepository interface {
	// Get returns the user's settings document, or nil when the user has
	// never saved any.
	Get(ctx context.Context, userID int64) (json.RawMessage, error)

	// Put inserts or replaces the user's settings document.
	Put(ctx context.Context, userID int64, document json.RawMessage) error

	// Reset deletes the user's settings row. Idempotent.
	Reset(ctx context.Context, userID int64) error
}
