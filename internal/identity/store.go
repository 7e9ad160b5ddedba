// Copyright (c) 2026 NextDash. All rights reserved.

package identity

import (
	"context"

	"github.com/nextdash/nextdash/pkg/pagination"
)

// UserRepository defines the data access contract for user administration.
//
// # Implementations
//
// The canonical implementation is PostgreSQL (store_postgres.go). Reads
// join the role row for the display name; the permission map itself is
// only needed by the auth domain.
type UserRepository interface {
	// List returns a page of users matching the filter plus the total count.
	List(ctx context.Context, filter UserFilter, page pagination.Params) ([]User, int64, error)

	// FindByID returns the user with the given ID.
	//
	// Returns [apperr.NotFound] if the user does not exist.
	FindByID(ctx context.Context, id int64) (*User, error)

	// FindByEmail returns the user with the given email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Create persists a new user and fills in the generated ID.
	//
	// Returns [apperr.Conflict] if the email is already registered.
	Create(ctx context.Context, user *User) error

	// Update persists the user's mutable fields (names, email, role,
	// avatar, active flag). The password hash is never touched here.
	Update(ctx context.Context, user *User) error

	// Approve flips the approval flag and records who approved when.
	Approve(ctx context.Context, userID, approverID int64) error

	// Delete removes the user row. Sessions cascade via foreign key.
	Delete(ctx context.Context, id int64) error
}

// RoleRepository defines the data access contract for role definitions.
type RoleRepository interface {
	// List returns all roles with their active-user counts.
	List(ctx context.Context) ([]Role, error)

	// FindByID returns the role with the given ID.
	//
	// Returns [apperr.NotFound] if the role does not exist.
	FindByID(ctx context.Context, id int) (*Role, error)

	// Create persists a new role and fills in the generated ID.
	Create(ctx context.Context, role *Role) error

	// Update persists the role's name, description, permissions, and
	// active flag.
	Update(ctx context.Context, role *Role) error

	// Deactivate soft-deletes the role by clearing its active flag.
	// Rows are kept so historical user references stay intact.
	Deactivate(ctx context.Context, id int) error

	// CountActiveUsers reports how many active users hold the role.
	CountActiveUsers(ctx context.Context, id int) (int64, error)
}
