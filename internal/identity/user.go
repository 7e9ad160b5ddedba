// Copyright (c) 2026 NextDash. All rights reserved.

// Package identity implements administration of users and roles: listing,
// provisioning, approval, profile management, and the role definitions the
// permission model reads from.
//
// # Architecture
//
// Entities in this file represent the "Truth" of the system. They have no
// dependencies on outer layers (databases, HTTP, or third-party libraries)
// beyond the permission map type they embed.
package identity

import (
	"strings"
	"time"

	"github.com/nextdash/nextdash/internal/platform/sec"
)

// SystemRoleMaxID marks the roles seeded at install time (admin, manager,
// user). They can be edited but never deleted.
const SystemRoleMaxID = 3

// Role is a named bundle of permissions plus a position in the numeric
// hierarchy (lower ID, more privilege).
type Role struct {
	ID          int               `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Permissions sec.PermissionMap `json:"permissions"`
	IsActive    bool              `json:"is_active"`
	UserCount   int64             `json:"user_count,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// User represents a dashboard account with its role joined in.
//
// # Rules
//   - Email is unique.
//   - PasswordHash is produced by the credential hasher exclusively.
//   - IsApproved gates self-registered accounts until an admin signs off.
type User struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"` // Explicitly omitted from JSON for security.
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	RoleID        int        `json:"role_id"`
	RoleName      string     `json:"role_name,omitempty"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	IsActive      bool       `json:"is_active"`
	EmailVerified bool       `json:"email_verified"`
	IsApproved    bool       `json:"is_approved"`
	ApprovedBy    *int64     `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// FullName joins the name parts for display and email salutations.
func (user *User) FullName() string {
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

// UserFilter narrows a user listing. Nil fields mean "any".
type UserFilter struct {
	RoleID *int
	Active *bool
	Search string // Matches first name, last name, or email, case-insensitive.
}
