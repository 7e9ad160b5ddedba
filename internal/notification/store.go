// Copyright (c) 2026 NextDash. All rights reserved.

package notification

import (
	"context"
	"time"

	"github.com/nextdash/nextdash/pkg/pagination"
)

// Repository defines the data access contract for notifications.
//
// Every read is scoped to a single owner and silently excludes expired
// entries; callers never see a notification past its ExpiresAt.
type Repository interface {
	// ListForUser returns a page of the user's live notifications, newest
	// first, plus the total matching count.
	ListForUser(ctx context.Context, userID int64, filter Filter, page pagination.Params) ([]Notification, int64, error)

	// CountUnread returns the user's live unread count.
	CountUnread(ctx context.Context, userID int64) (int64, error)

	// FindByID returns a single notification.
	//
	// Returns [apperr.NotFound] if it does not exist.
	FindByID(ctx context.Context, id int64) (*Notification, error)

	// Create persists a new notification and fills in the generated ID.
	Create(ctx context.Context, n *Notification) error

	// SetRead flips the read flag, stamping or clearing ReadAt.
	SetRead(ctx context.Context, id int64, read bool) error

	// MarkAllRead marks every live unread notification of the user as read
	// and reports how many rows changed.
	MarkAllRead(ctx context.Context, userID int64) (int64, error)

	// Delete removes a notification row.
	Delete(ctx context.Context, id int64) error

	// DeleteExpired removes all rows whose expiry has passed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
