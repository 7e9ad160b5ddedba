// Copyright (c) 2026 NextDash. All rights reserved.

package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nextdash/nextdash/internal/platform/apperr"
	"github.com/nextdash/nextdash/internal/platform/constants"
	"github.com/nextdash/nextdash/internal/platform/ctxutil"
)

const publicCacheKey = constants.RedisPrefixPublicSettings + "snapshot"

const maxSettingKeyLen = 100

// Cache is the slice of the Redis API the service needs. Satisfied by
// *redis.Client; narrowed for tests.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Service coordinates admin, public, and per-user settings.
//
// The public snapshot is served from Redis when possible. The cache is a
// pure accelerator: every cache failure falls through to PostgreSQL, and
// admin writes invalidate the snapshot so readers converge within one
// request rather than one TTL.
type Service struct {
	admin AdminRepository
	users UserRepository
	cache Cache
}

// NewService creates the settings service.
func NewService(admin AdminRepository, users UserRepository, cache Cache) *Service {
	return &Service{admin: admin, users: users, cache: cache}
}

// ListAdmin returns every admin setting ordered by key.
func (service *Service) ListAdmin(ctx context.Context) ([]AdminSetting, error) {
	return service.admin.List(ctx)
}

// BulkUpsert writes each entry of the settings object and invalidates the
// public snapshot.
//
// # Business Rules
//   - The object must be non-empty.
//   - Keys are bounded in length; values must be valid JSON.
func (service *Service) BulkUpsert(ctx context.Context, entries map[string]json.RawMessage) error {
	if len(entries) == 0 {
		return apperr.ValidationError("Settings object is required")
	}
	for key, value := range entries {
		if key == "" || len(key) > maxSettingKeyLen {
			return apperr.ValidationError("Invalid setting key")
		}
		if !json.Valid(value) {
			return apperr.ValidationError("Invalid setting value")
		}
	}

	for key, value := range entries {
		if err := service.admin.Upsert(ctx, key, value); err != nil {
			return err
		}
	}

	if err := service.cache.Del(ctx, publicCacheKey).Err(); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "public_settings_cache_invalidate_failed",
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Public returns the allowlisted settings snapshot, served from Redis
// when the cached copy is still fresh.
func (service *Service) Public(ctx context.Context) (map[string]json.RawMessage, error) {
	if cached, err := service.cache.Get(ctx, publicCacheKey).Bytes(); err == nil {
		snapshot := map[string]json.RawMessage{}
		if err := json.Unmarshal(cached, &snapshot); err == nil {
			return snapshot, nil
		}
	}

	snapshot, err := service.admin.GetMany(ctx, publicKeys)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(snapshot); err == nil {
		if err := service.cache.Set(ctx, publicCacheKey, encoded, constants.PublicSettingsCacheTTL).Err(); err != nil {
			ctxutil.GetLogger(ctx).WarnContext(ctx, "public_settings_cache_set_failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return snapshot, nil
}

// UserDocument returns the user's settings document. Users who never
// saved anything get an empty object.
func (service *Service) UserDocument(ctx context.Context, userID int64) (json.RawMessage, error) {
	document, err := service.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if document == nil {
		return json.RawMessage(`{}`), nil
	}
	return document, nil
}

// SaveUserDocument replaces the user's settings document. The document
// must be a JSON object.
func (service *Service) SaveUserDocument(ctx context.Context, userID int64, document json.RawMessage) error {
	trimmed := bytes.TrimSpace(document)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return apperr.ValidationError("Settings object is required")
	}
	return service.users.Put(ctx, userID, trimmed)
}

// ResetUserDocument removes the user's saved settings so defaults apply.
func (service *Service) ResetUserDocument(ctx context.Context, userID int64) error {
	return service.users.Reset(ctx, userID)
}
