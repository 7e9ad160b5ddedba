// Copyright (c) 2026 NextDash. All rights reserved.

package identity

import (
	"context"
	"fmt"

	"github.com/nextdash/nextdash/internal/platform/apperr"
	"github.com/nextdash/nextdash/internal/platform/ctxutil"
	"github.com/nextdash/nextdash/internal/platform/mail"
	"github.com/nextdash/nextdash/internal/platform/sec"
	"github.com/nextdash/nextdash/pkg/pagination"
	"github.com/nextdash/nextdash/pkg/pointer"
)

// VerificationIssuer creates and delivers email verification tokens.
// Implemented by the auth service; the interface keeps identity from
// importing the auth package directly.
type VerificationIssuer interface {
	IssueEmailVerification(ctx context.Context, userID int64) error
}

// Service implements user and role administration use cases.
//
// # Hierarchy Guard
//
// Every mutating operation re-checks the role hierarchy through
// [sec.Actor.CanManageRole]: an actor may only touch targets of
// equal-or-lower privilege, and may only assign roles it could hold
// itself. Violations fail closed with Forbidden, never silently
// downgrade the request.
type Service struct {
	users    UserRepository
	roles    RoleRepository
	hasher   sec.PasswordHasher
	mailer   mail.Mailer
	verifier VerificationIssuer
}

// NewService constructs a new [Service] with its dependencies.
func NewService(
	users UserRepository,
	roles RoleRepository,
	hasher sec.PasswordHasher,
	mailer mail.Mailer,
	verifier VerificationIssuer,
) *Service {
	return &Service{
		users:    users,
		roles:    roles,
		hasher:   hasher,
		mailer:   mailer,
		verifier: verifier,
	}
}

// ── Users ────────────────────────────────────────────────────────────────────

// ListUsers returns a filtered page of users plus pagination metadata.
func (service *Service) ListUsers(ctx context.Context, filter UserFilter, page pagination.Params) ([]User, *pagination.Meta, error) {
	users, total, err := service.users.List(ctx, filter, page)
	if err != nil {
		return nil, nil, err
	}
	meta := pagination.NewMeta(page.Page, page.Limit, int(total))
	return users, &meta, nil
}

// GetUser returns a single user by ID.
func (service *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return service.users.FindByID(ctx, id)
}

// CreateUserInput holds the data required to provision an account.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	RoleID    int
}

// CreateUser provisions a new account on behalf of an administrator.
//
// # Parameters
//   - ctx: Context for the database operations.
//   - actor: The authenticated administrator performing the action.
//   - input: The new account's details, including its initial password.
//
// # Returns
//   - The created [*User].
//   - Returns [apperr.Forbidden] if the requested role outranks the actor.
//   - Returns [apperr.Conflict] if the email is already registered.
//
// # Business Rules
//   - The assigned role must exist, be active, and be manageable by the actor.
//   - Admin-created accounts are active and pre-approved but start unverified;
//     a verification email goes out immediately.
func (service *Service) CreateUser(ctx context.Context, actor *sec.Actor, input CreateUserInput) (*User, error) {
	// ── 1. Hierarchy Guard ────────────────────────────────────────────────

	if !actor.CanManageRole(input.RoleID) {
		return nil, apperr.Forbidden("Cannot assign a role above your own")
	}

	role, err := service.roles.FindByID(ctx, input.RoleID)
	if err != nil {
		return nil, apperr.ValidationError("Role does not exist")
	}
	if !role.IsActive {
		return nil, apperr.ValidationError("Role is deactivated")
	}

	// ── 2. Credential Setup ───────────────────────────────────────────────

	passwordHash, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("identity_service_hash_failed: %w", err)
	}

	// ── 3. Persistence ────────────────────────────────────────────────────

	user := &User{
		Email:        input.Email,
		PasswordHash: passwordHash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		RoleID:       input.RoleID,
		IsActive:     true,
		IsApproved:   true,
	}
	if err := service.users.Create(ctx, user); err != nil {
		return nil, err
	}
	user.RoleName = role.Name

	// ── 4. Onboarding Mail ────────────────────────────────────────────────

	// Mail failures are logged, not surfaced: the account exists either way
	// and verification can be re-issued.
	service.sendWelcome(ctx, user)
	if err := service.verifier.IssueEmailVerification(ctx, user.ID); err != nil {
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "verification_issue_failed",
			"user_id", user.ID, "error", err)
	}

	return user, nil
}

func (service *Service) sendWelcome(ctx context.Context, user *User) {
	err := service.mailer.Send(ctx, user.Email,
		"Welcome to NextDash!",
		fmt.Sprintf(`<p>Hi %s,</p><p>Your NextDash account is ready. Sign in with your email address to get started.</p>`, user.FirstName),
		fmt.Sprintf("Hi %s,\n\nYour NextDash account is ready. Sign in with your email address to get started.\n", user.FirstName),
	)
	if err != nil {
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "welcome_mail_failed",
			"user_id", user.ID, "error", err)
	}
}

// UpdateUserInput holds the optional fields of a partial user update.
// Nil means "leave unchanged".
type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	RoleID    *int
	AvatarURL *string
	IsActive  *bool
}

// UpdateUser applies a partial update to a user.
//
// # Business Rules
//   - The actor must outrank (or equal) the target's current role.
//   - A role change additionally requires the actor to outrank the NEW role,
//     and the new role must exist and be active.
func (service *Service) UpdateUser(ctx context.Context, actor *sec.Actor, userID int64, input UpdateUserInput) (*User, error) {
	// ── 1. Load Target ────────────────────────────────────────────────────

	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// ── 2. Hierarchy Guard ────────────────────────────────────────────────

	if !actor.CanManageRole(user.RoleID) {
		return nil, apperr.Forbidden("Cannot manage a user with a higher role")
	}

	if input.RoleID != nil && *input.RoleID != user.RoleID {
		if !actor.CanManageRole(*input.RoleID) {
			return nil, apperr.Forbidden("Cannot assign a role above your own")
		}
		role, err := service.roles.FindByID(ctx, *input.RoleID)
		if err != nil {
			return nil, apperr.ValidationError("Role does not exist")
		}
		if !role.IsActive {
			return nil, apperr.ValidationError("Role is deactivated")
		}
		user.RoleName = role.Name
	}

	// ── 3. Apply Changes ──────────────────────────────────────────────────

	user.Email = pointer.Fallback(input.Email, user.Email)
	user.FirstName = pointer.Fallback(input.FirstName, user.FirstName)
	user.LastName = pointer.Fallback(input.LastName, user.LastName)
	user.RoleID = pointer.Fallback(input.RoleID, user.RoleID)
	user.AvatarURL = pointer.Fallback(input.AvatarURL, user.AvatarURL)
	user.IsActive = pointer.Fallback(input.IsActive, user.IsActive)

	if err := service.users.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// ApproveUser marks a pending account as approved by the actor.
func (service *Service) ApproveUser(ctx context.Context, actor *sec.Actor, userID int64) (*User, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !actor.CanManageRole(user.RoleID) {
		return nil, apperr.Forbidden("Cannot manage a user with a higher role")
	}
	if user.IsApproved {
		return nil, apperr.ValidationError("User is already approved")
	}

	if err := service.users.Approve(ctx, userID, actor.UserID); err != nil {
		return nil, err
	}

	return service.users.FindByID(ctx, userID)
}

// DeleteUser removes a user account.
//
// # Business Rules
//   - Actors cannot delete their own account.
//   - The hierarchy guard applies: only equal-or-lower roles can be removed.
func (service *Service) DeleteUser(ctx context.Context, actor *sec.Actor, userID int64) error {
	if actor.UserID == userID {
		return apperr.ValidationError("Cannot delete your own account")
	}

	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !actor.CanManageRole(user.RoleID) {
		return apperr.Forbidden("Cannot manage a user with a higher role")
	}

	return service.users.Delete(ctx, userID)
}

// UpdateProfileInput holds the self-service profile fields.
type UpdateProfileInput struct {
	FirstName string
	LastName  string
	AvatarURL string
}

// UpdateProfile lets a user edit their own display fields. No hierarchy
// guard applies: the target is always the actor.
func (service *Service) UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*User, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.AvatarURL = input.AvatarURL

	if err := service.users.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// ── Roles ────────────────────────────────────────────────────────────────────

// ListRoles returns every role with its active-user count.
func (service *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return service.roles.List(ctx)
}

// GetRole returns a single role by ID.
func (service *Service) GetRole(ctx context.Context, id int) (*Role, error) {
	return service.roles.FindByID(ctx, id)
}

// RoleInput holds the definition fields of a role.
type RoleInput struct {
	Name        string
	Description string
	Permissions sec.PermissionMap
	IsActive    bool
}

// CreateRole persists a new role definition.
func (service *Service) CreateRole(ctx context.Context, input RoleInput) (*Role, error) {
	role := &Role{
		Name:        input.Name,
		Description: input.Description,
		Permissions: input.Permissions,
		IsActive:    input.IsActive,
	}
	if role.Permissions == nil {
		role.Permissions = sec.PermissionMap{}
	}

	if err := service.roles.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// UpdateRole replaces a role's definition.
func (service *Service) UpdateRole(ctx context.Context, id int, input RoleInput) (*Role, error) {
	role, err := service.roles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	role.Name = input.Name
	role.Description = input.Description
	role.Permissions = input.Permissions
	role.IsActive = input.IsActive
	if role.Permissions == nil {
		role.Permissions = sec.PermissionMap{}
	}

	if err := service.roles.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// DeleteRole soft-deletes a custom role.
//
// # Business Rules
//   - System roles (ID <= 3) can never be deleted.
//   - A role still assigned to active users cannot be deleted.
func (service *Service) DeleteRole(ctx context.Context, id int) error {
	if id <= SystemRoleMaxID {
		return apperr.Forbidden("System roles cannot be deleted")
	}

	if _, err := service.roles.FindByID(ctx, id); err != nil {
		return err
	}

	count, err := service.roles.CountActiveUsers(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.ValidationError("Cannot delete role: role is assigned to active users")
	}

	return service.roles.Deactivate(ctx, id)
}
