// Copyright (c) 2026 NextDash. All rights reserved.

package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextdash/nextdash/internal/notification"
	"github.com/nextdash/nextdash/internal/platform/apperr"
	"github.com/nextdash/nextdash/internal/platform/sec"
	"github.com/nextdash/nextdash/pkg/pagination"
)

// ── Fakes ──────────────────────────────────────────────────────────────

type fakeRepository struct {
	nextID int64
	rows   map[int64]*notification.Notification
	now    time.Time
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		rows: map[int64]*notification.Notification{},
		now:  time.Now(),
	}
}

func (f *fakeRepository) live(n *notification.Notification) bool {
	return n.ExpiresAt == nil || n.ExpiresAt.After(f.now)
}

func (f *fakeRepository) ListForUser(_ context.Context, userID int64, filter notification.Filter, _ pagination.Params) ([]notification.Notification, int64, error) {
	matches := []notification.Notification{}
	for _, n := range f.rows {
		if n.UserID != userID || !f.live(n) {
			continue
		}
		if filter.Unread != nil && n.IsRead == *filter.Unread {
			continue
		}
		if filter.Kind != nil && n.Kind != *filter.Kind {
			continue
		}
		matches = append(matches, *n)
	}
	return matches, int64(len(matches)), nil
}

func (f *fakeRepository) CountUnread(_ context.Context, userID int64) (int64, error) {
	var count int64
	for _, n := range f.rows {
		if n.UserID == userID && !n.IsRead && f.live(n) {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepository) FindByID(_ context.Context, id int64) (*notification.Notification, error) {
	n, ok := f.rows[id]
	if !ok || !f.live(n) {
		return nil, apperr.NotFound("Notification")
	}
	copied := *n
	return &copied, nil
}

func (f *fakeRepository) Create(_ context.Context, n *notification.Notification) error {
	f.nextID++
	n.ID = f.nextID
	n.CreatedAt = f.now
	stored := *n
	f.rows[n.ID] = &stored
	return nil
}

func (f *fakeRepository) SetRead(_ context.Context, id int64, read bool) error {
	n, ok := f.rows[id]
	if !ok {
		return apperr.NotFound("Notification")
	}
	n.IsRead = read
	if read {
		at := f.now
		n.ReadAt = &at
	} else {
		n.ReadAt = nil
	}
	return nil
}

func (f *fakeRepository) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	var changed int64
	for _, n := range f.rows {
		if n.UserID == userID && !n.IsRead && f.live(n) {
			n.IsRead = true
			at := f.now
			n.ReadAt = &at
			changed++
		}
	}
	return changed, nil
}

func (f *fakeRepository) Delete(_ context.Context, id int64) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var removed int64
	for id, n := range f.rows {
		if n.ExpiresAt != nil && !n.ExpiresAt.After(now) {
			delete(f.rows, id)
			removed++
		}
	}
	return removed, nil
}

// ── Fixture ────────────────────────────────────────────────────────────

type fixture struct {
	service *notification.Service
	repo    *fakeRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newFakeRepository()
	return &fixture{
		service: notification.NewService(repo),
		repo:    repo,
	}
}

func (f *fixture) seed(t *testing.T, userID int64, title string, read bool, expiresAt *time.Time) int64 {
	t.Helper()
	n := &notification.Notification{
		UserID:    userID,
		Title:     title,
		Message:   "body of " + title,
		Kind:      notification.KindInfo,
		ExpiresAt: expiresAt,
	}
	require.NoError(t, f.repo.Create(context.Background(), n))
	if read {
		require.NoError(t, f.repo.SetRead(context.Background(), n.ID, true))
	}
	return n.ID
}

func memberActor(userID int64) *sec.Actor {
	return &sec.Actor{UserID: userID, RoleID: 3, Permissions: sec.PermissionMap{}}
}

func adminActor() *sec.Actor {
	return &sec.Actor{UserID: 99, RoleID: 1, Permissions: sec.PermissionMap{}}
}

// ── Tests ──────────────────────────────────────────────────────────────

/*
TestListForUser_UnreadCount checks that the feed carries the unread badge
count and that expired rows are invisible.
*/
func TestListForUser_UnreadCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 1. Two unread, one read, one expired for user 7.
	f.seed(t, 7, "first", false, nil)
	f.seed(t, 7, "second", false, nil)
	f.seed(t, 7, "third", true, nil)
	past := f.repo.now.Add(-time.Hour)
	f.seed(t, 7, "stale", false, &past)

	// 2. A row for someone else must not bleed in.
	f.seed(t, 8, "other", false, nil)

	feed, err := f.service.ListForUser(ctx, memberActor(7), notification.Filter{}, pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)

	assert.Len(t, feed.Notifications, 3)
	assert.Equal(t, int64(2), feed.UnreadCount)
}

/*
TestCreate_KindRules checks the default kind and the rejection of unknown
kinds.
*/
func TestCreate_KindRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 1. Empty kind defaults to info.
	created, err := f.service.Create(ctx, notification.CreateInput{
		UserID:  7,
		Title:   "Deploy finished",
		Message: "Build 42 is live",
	})
	require.NoError(t, err)
	assert.Equal(t, notification.KindInfo, created.Kind)
	assert.NotZero(t, created.ID)

	// 2. Unknown kind is rejected before storage is touched.
	_, err = f.service.Create(ctx, notification.CreateInput{
		UserID:  7,
		Title:   "Bad",
		Message: "Bad",
		Kind:    notification.Kind("urgent"),
	})
	require.Error(t, err)
	assert.Equal(t, 400, apperr.As(err).HTTPStatus)
}

/*
TestSetRead_OwnershipGuard checks that a user cannot mark another user's
notification, while an administrator can.
*/
func TestSetRead_OwnershipGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.seed(t, 7, "private", false, nil)

	// 1. A stranger is rejected with 403.
	_, err := f.service.SetRead(ctx, memberActor(8), id, true)
	require.Error(t, err)
	assert.Equal(t, 403, apperr.As(err).HTTPStatus)
	assert.False(t, f.repo.rows[id].IsRead)

	// 2. The owner succeeds and the read timestamp is stamped.
	updated, err := f.service.SetRead(ctx, memberActor(7), id, true)
	require.NoError(t, err)
	assert.True(t, updated.IsRead)
	assert.NotNil(t, updated.ReadAt)

	// 3. Marking unread again clears the timestamp.
	updated, err = f.service.SetRead(ctx, memberActor(7), id, false)
	require.NoError(t, err)
	assert.False(t, updated.IsRead)
	assert.Nil(t, updated.ReadAt)

	// 4. An administrator bypasses the ownership check.
	_, err = f.service.SetRead(ctx, adminActor(), id, true)
	require.NoError(t, err)
}

/*
TestMarkAllRead checks the bulk transition and that it only touches the
actor's own unread rows.
*/
func TestMarkAllRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, 7, "a", false, nil)
	f.seed(t, 7, "b", false, nil)
	f.seed(t, 7, "c", true, nil)
	otherID := f.seed(t, 8, "d", false, nil)

	count, err := f.service.MarkAllRead(ctx, memberActor(7))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.False(t, f.repo.rows[otherID].IsRead)

	// Repeat is a no-op.
	count, err = f.service.MarkAllRead(ctx, memberActor(7))
	require.NoError(t, err)
	assert.Zero(t, count)
}

/*
TestDelete_OwnershipGuard checks that deletion is owner-scoped.
*/
func TestDelete_OwnershipGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.seed(t, 7, "doomed", false, nil)

	err := f.service.Delete(ctx, memberActor(8), id)
	require.Error(t, err)
	assert.Equal(t, 403, apperr.As(err).HTTPStatus)

	require.NoError(t, f.service.Delete(ctx, memberActor(7), id))
	assert.NotContains(t, f.repo.rows, id)
}

/*
TestSweepExpired checks that only rows past their expiry are purged.
*/
func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := f.repo.now.Add(-time.Minute)
	future := f.repo.now.Add(time.Hour)
	f.seed(t, 7, "stale", false, &past)
	keepID := f.seed(t, 7, "fresh", false, &future)
	foreverID := f.seed(t, 7, "forever", false, nil)

	removed, err := f.service.SweepExpired(ctx, f.repo.now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Contains(t, f.repo.rows, keepID)
	assert.Contains(t, f.repo.rows, foreverID)
}
