// Copyright (c) 2026 NextDash. All rights reserved.

package settings_test

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextdash/nextdash/internal/platform/apperr"
	"github.com/nextdash/nextdash/internal/settings"
)

// ── Fakes ──────────────────────────────────────────────────────────────

type fakeAdmin struct {
	values  map[string]json.RawMessage
	upserts int
}

func (f *fakeAdmin) List(_ context.Context) ([]settings.AdminSetting, error) {
	keys := make([]string, 0, len(f.values))
	for key := range f.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]settings.AdminSetting, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, settings.AdminSetting{Key: key, Value: f.values[key]})
	}
	return entries, nil
}

func (f *fakeAdmin) GetMany(_ context.Context, keys []string) (map[string]json.RawMessage, error) {
	result := map[string]json.RawMessage{}
	for _, key := range keys {
		if value, ok := f.values[key]; ok {
			result[key] = value
		}
	}
	return result, nil
}

func (f *fakeAdmin) Upsert(_ context.Context, key string, value json.RawMessage) error {
	f.upserts++
	f.values[key] = value
	return nil
}

type fakeUsers struct {
	documents map[int64]json.RawMessage
}

func (f *fakeUsers) Get(_ context.Context, userID int64) (json.RawMessage, error) {
	return f.documents[userID], nil
}

func (f *fakeUsers) Put(_ context.Context, userID int64, document json.RawMessage) error {
	f.documents[userID] = document
	return nil
}

func (f *fakeUsers) Reset(_ context.Context, userID int64) error {
	delete(f.documents, userID)
	return nil
}

type fakeCache struct {
	entries map[string]string
	hits    int
	misses  int
}

func (f *fakeCache) Get(_ context.Context, key string) *redis.StringCmd {
	if value, ok := f.entries[key]; ok {
		f.hits++
		return redis.NewStringResult(value, nil)
	}
	f.misses++
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.entries[key] = string(v)
	case string:
		f.entries[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCache) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := f.entries[key]; ok {
			delete(f.entries, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

// ── Fixture ────────────────────────────────────────────────────────────

type fixture struct {
	service *settings.Service
	admin   *fakeAdmin
	users   *fakeUsers
	cache   *fakeCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	admin := &fakeAdmin{values: map[string]json.RawMessage{
		"app_name":        json.RawMessage(`"NextDash"`),
		"theme_mode":      json.RawMessage(`"dark"`),
		"smtp_password":   json.RawMessage(`"hunter2"`),
		"session_timeout": json.RawMessage(`1440`),
	}}
	users := &fakeUsers{documents: map[int64]json.RawMessage{}}
	cache := &fakeCache{entries: map[string]string{}}
	return &fixture{
		service: settings.NewService(admin, users, cache),
		admin:   admin,
		users:   users,
		cache:   cache,
	}
}

// ── Tests ──────────────────────────────────────────────────────────────

/*
TestPublic_Allowlist checks that only allowlisted keys leave through the
public endpoint, cache or not.
*/
func TestPublic_Allowlist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snapshot, err := f.service.Public(ctx)
	require.NoError(t, err)

	assert.Contains(t, snapshot, "app_name")
	assert.Contains(t, snapshot, "theme_mode")
	assert.NotContains(t, snapshot, "smtp_password")
	assert.NotContains(t, snapshot, "session_timeout")
}

/*
TestPublic_CacheFlow checks that the first read populates the cache, that
subsequent reads are served from it, and that an admin write invalidates
the snapshot.
*/
func TestPublic_CacheFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 1. Cold read misses the cache and fills it.
	first, err := f.service.Public(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.misses)
	assert.JSONEq(t, `"NextDash"`, string(first["app_name"]))

	// 2. A direct database change is invisible while the snapshot lives.
	f.admin.values["app_name"] = json.RawMessage(`"Sneaky"`)
	second, err := f.service.Public(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits)
	assert.JSONEq(t, `"NextDash"`, string(second["app_name"]))

	// 3. An admin write drops the snapshot; the next read is fresh.
	err = f.service.BulkUpsert(ctx, map[string]json.RawMessage{
		"app_name": json.RawMessage(`"NextDash Pro"`),
	})
	require.NoError(t, err)

	third, err := f.service.Public(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `"NextDash Pro"`, string(third["app_name"]))
}

/*
TestBulkUpsert_Validation checks rejection of empty objects, oversized
keys, and malformed values.
*/
func TestBulkUpsert_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.service.BulkUpsert(ctx, nil)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.As(err).HTTPStatus)

	longKey := make([]byte, 101)
	for i := range longKey {
		longKey[i] = 'k'
	}
	err = f.service.BulkUpsert(ctx, map[string]json.RawMessage{
		string(longKey): json.RawMessage(`true`),
	})
	require.Error(t, err)

	err = f.service.BulkUpsert(ctx, map[string]json.RawMessage{
		"app_name": json.RawMessage(`{broken`),
	})
	require.Error(t, err)
	assert.Zero(t, f.admin.upserts, "nothing should be written when validation fails")
}

/*
TestUserDocument_Lifecycle checks the default, save, and reset paths of
the per-user settings document.
*/
func TestUserDocument_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 1. A user with no saved settings gets an empty object.
	document, err := f.service.UserDocument(ctx, 7)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(document))

	// 2. Saving a document round-trips.
	err = f.service.SaveUserDocument(ctx, 7, json.RawMessage(`{"sidebar":"collapsed","per_page":50}`))
	require.NoError(t, err)

	document, err = f.service.UserDocument(ctx, 7)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sidebar":"collapsed","per_page":50}`, string(document))

	// 3. Non-object payloads are rejected.
	err = f.service.SaveUserDocument(ctx, 7, json.RawMessage(`["not","an","object"]`))
	require.Error(t, err)
	assert.Equal(t, 400, apperr.As(err).HTTPStatus)

	// 4. Reset returns the user to defaults and is idempotent.
	require.NoError(t, f.service.ResetUserDocument(ctx, 7))
	require.NoError(t, f.service.ResetUserDocument(ctx, 7))

	document, err = f.service.UserDocument(ctx, 7)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(document))
}
