// Copyright (c) 2026 NextDash. All rights reserved.

// Package notification implements the in-app notification feed: per-user
// messages with read tracking, optional expiry, and optional call-to-action
// links.
package notification

import "time"

// Kind labels the visual severity of a notification.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Valid reports whether the kind is one of the known severities.
func (k Kind) Valid() bool {
	switch k {
	case KindInfo, KindSuccess, KindWarning, KindError:
		return true
	}
	return false
}

// Notification is a single feed entry addressed to one user.
//
// # Expiry
//
// ExpiresAt is optional. Expired entries are hidden from every read path
// but kept until the maintenance sweep removes them.
type Notification struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Kind       Kind       `json:"type"`
	IsRead     bool       `json:"is_read"`
	ActionURL  string     `json:"action_url,omitempty"`
	ActionText string     `json:"action_text,omitempty"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Filter narrows a notification listing. Nil fields mean "any".
type Filter struct {
	Unread *bool
	Kind   *Kind
}
