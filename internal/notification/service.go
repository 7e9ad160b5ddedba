// Copyright (c) 2026 NextDash. All rights reserved.

package notification

import (
	"context"
	"time"

	"github.com/nextdash/nextdash/internal/platform/apperr"
	"github.com/nextdash/nextdash/internal/platform/sec"
	"github.com/nextdash/nextdash/pkg/pagination"
)

// Service coordinates notification reads and lifecycle changes.
//
// Every mutation on an existing notification is owner-scoped: a user may
// only touch their own rows. Administrators bypass the ownership check.
type Service struct {
	notifications Repository
}

// NewService creates the notification service.
func NewService(notifications Repository) *Service {
	return &Service{notifications: notifications}
}

// Feed is the response shape for a notification listing. The unread count
// rides alongside the page so clients can render a badge without a second
// round trip.
type Feed struct {
	Notifications []Notification  `json:"notifications"`
	UnreadCount   int64           `json:"unread_count"`
	Meta          pagination.Meta `json:"pagination"`
}

// ListForUser returns the actor's live notifications with the unread count.
func (service *Service) ListForUser(ctx context.Context, actor *sec.Actor, filter Filter, page pagination.Params) (*Feed, error) {
	notifications, total, err := service.notifications.ListForUser(ctx, actor.UserID, filter, page)
	if err != nil {
		return nil, err
	}

	unread, err := service.notifications.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	return &Feed{
		Notifications: notifications,
		UnreadCount:   unread,
		Meta:          pagination.NewMeta(page.Page, page.Limit, int(total)),
	}, nil
}

// CreateInput carries the fields for an administratively created notification.
type CreateInput struct {
	UserID     int64
	Title      string
	Message    string
	Kind       Kind
	ActionURL  string
	ActionText string
	ExpiresAt  *time.Time
}

// Create inserts a notification for the target user.
//
// # Business Rules
//   - An empty kind defaults to [KindInfo].
//   - An unknown kind is rejected before touching storage.
func (service *Service) Create(ctx context.Context, input CreateInput) (*Notification, error) {
	if input.Kind == "" {
		input.Kind = KindInfo
	}
	if !input.Kind.Valid() {
		return nil, apperr.ValidationError("Invalid notification type")
	}

	n := &Notification{
		UserID:     input.UserID,
		Title:      input.Title,
		Message:    input.Message,
		Kind:       input.Kind,
		ActionURL:  input.ActionURL,
		ActionText: input.ActionText,
		ExpiresAt:  input.ExpiresAt,
	}
	if err := service.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// SetRead marks a single notification read or unread.
func (service *Service) SetRead(ctx context.Context, actor *sec.Actor, id int64, read bool) (*Notification, error) {
	n, err := service.ownedNotification(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := service.notifications.SetRead(ctx, id, read); err != nil {
		return nil, err
	}

	n.IsRead = read
	if read {
		now := time.Now()
		n.ReadAt = &now
	} else {
		n.ReadAt = nil
	}
	return n, nil
}

// MarkAllRead marks every unread notification of the actor as read and
// returns how many rows changed.
func (service *Service) MarkAllRead(ctx context.Context, actor *sec.Actor) (int64, error) {
	return service.notifications.MarkAllRead(ctx, actor.UserID)
}

// Delete removes one of the actor's notifications.
func (service *Service) Delete(ctx context.Context, actor *sec.Actor, id int64) error {
	if _, err := service.ownedNotification(ctx, actor, id); err != nil {
		return err
	}
	return service.notifications.Delete(ctx, id)
}

// SweepExpired purges notifications past their expiry. Intended for the
// background sweeper.
func (service *Service) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return service.notifications.DeleteExpired(ctx, now)
}

func (service *Service) ownedNotification(ctx context.Context, actor *sec.Actor, id int64) (*Notification, error) {
	n, err := service.notifications.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Forbidden("Cannot access another user's notification")
	}
	return n, nil
}
