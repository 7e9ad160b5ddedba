// Copyright (c) 2026 NextDash. All rights reserved.

package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextdash/nextdash/internal/identity"
	"github.com/nextdash/nextdash/internal/platform/apperr"
	"github.com/nextdash/nextdash/internal/platform/sec"
	"github.com/nextdash/nextdash/pkg/pagination"
	"github.com/nextdash/nextdash/pkg/pointer"
)

// ── Fakes ────────────────────────────────────────────────────────────────────

type fakeUsers struct {
	nextID int64
	users  map[int64]*identity.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[int64]*identity.User{}}
}

func (f *fakeUsers) List(_ context.Context, filter identity.UserFilter, page pagination.Params) ([]identity.User, int64, error) {
	matched := []identity.User{}
	for _, user := range f.users {
		if filter.RoleID != nil && user.RoleID != *filter.RoleID {
			continue
		}
		if filter.Active != nil && user.IsActive != *filter.Active {
			continue
		}
		matched = append(matched, *user)
	}
	total := int64(len(matched))

	offset := page.Offset()
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (*identity.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeUsers) Create(_ context.Context, user *identity.User) error {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return apperr.Conflict("User already exists")
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUsers) Update(_ context.Context, user *identity.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return apperr.NotFound("User")
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUsers) Approve(_ context.Context, userID, approverID int64) error {
	user, ok := f.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	now := time.Now()
	user.IsApproved = true
	user.ApprovedBy = &approverID
	user.ApprovedAt = &now
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id int64) error {
	delete(f.users, id)
	return nil
}

type fakeRoles struct {
	roles map[int]*identity.Role
	users *fakeUsers
}

func (f *fakeRoles) List(_ context.Context) ([]identity.Role, error) {
	out := []identity.Role{}
	for _, role := range f.roles {
		out = append(out, *role)
	}
	return out, nil
}

func (f *fakeRoles) FindByID(_ context.Context, id int) (*identity.Role, error) {
	role, ok := f.roles[id]
	if !ok {
		return nil, apperr.NotFound("Role")
	}
	copied := *role
	return &copied, nil
}

func (f *fakeRoles) Create(_ context.Context, role *identity.Role) error {
	id := len(f.roles) + 1
	role.ID = id
	copied := *role
	f.roles[id] = &copied
	return nil
}

func (f *fakeRoles) Update(_ context.Context, role *identity.Role) error {
	if _, ok := f.roles[role.ID]; !ok {
		return apperr.NotFound("Role")
	}
	copied := *role
	f.roles[role.ID] = &copied
	return nil
}

func (f *fakeRoles) Deactivate(_ context.Context, id int) error {
	if role, ok := f.roles[id]; ok {
		role.IsActive = false
	}
	return nil
}

func (f *fakeRoles) CountActiveUsers(_ context.Context, id int) (int64, error) {
	var count int64
	for _, user := range f.users.users {
		if user.RoleID == id && user.IsActive {
			count++
		}
	}
	return count, nil
}

type fakeVerifier struct {
	issued []int64
}

func (f *fakeVerifier) IssueEmailVerification(_ context.Context, userID int64) error {
	f.issued = append(f.issued, userID)
	return nil
}

type fakeMailer struct {
	recipients []string
}

func (f *fakeMailer) Send(_ context.Context, to, _, _, _ string) error {
	f.recipients = append(f.recipients, to)
	return nil
}

// ── Fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	service  *identity.Service
	users    *fakeUsers
	roles    *fakeRoles
	verifier *fakeVerifier
	mailer   *fakeMailer
}

// newFixture seeds roles admin(1)/manager(2)/user(3) and one user per role.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := newFakeUsers()
	roles := &fakeRoles{users: users, roles: map[int]*identity.Role{
		1: {ID: 1, Name: "admin", Permissions: sec.PermissionMap{"admin": {"access"}}, IsActive: true},
		2: {ID: 2, Name: "manager", Permissions: sec.PermissionMap{"users": {"read", "create", "update", "delete"}}, IsActive: true},
		3: {ID: 3, Name: "user", Permissions: sec.PermissionMap{}, IsActive: true},
	}}

	for i, roleID := range []int{1, 2, 3} {
		require.NoError(t, users.Create(context.Background(), &identity.User{
			Email:      []string{"root@example.com", "mona@example.com", "uma@example.com"}[i],
			FirstName:  []string{"Root", "Mona", "Uma"}[i],
			LastName:   "Tester",
			RoleID:     roleID,
			IsActive:   true,
			IsApproved: true,
		}))
	}

	verifier := &fakeVerifier{}
	mailer := &fakeMailer{}
	service := identity.NewService(users, roles,
		sec.NewPasswordHasher(sec.DefaultBcryptCost), mailer, verifier)

	return &fixture{service: service, users: users, roles: roles, verifier: verifier, mailer: mailer}
}

func managerActor() *sec.Actor {
	return &sec.Actor{
		UserID: 2,
		Email:  "mona@example.com",
		RoleID: 2,
		Permissions: sec.PermissionMap{
			"users": {"read", "create", "update", "delete"},
		},
	}
}

// ── Hierarchy Guard ──────────────────────────────────────────────────────────

/*
TestUpdateUser_HierarchyGuard verifies the role-escalation guard: a manager
(role 2) may demote a target to role 3 but must be rejected when promoting
anyone to role 1, failing closed rather than downgrading the request.
*/
func TestUpdateUser_HierarchyGuard(t *testing.T) {
	fx := newFixture(t)
	actor := managerActor()

	// Promoting the role-3 user to admin (role 1) is forbidden
	_, err := fx.service.UpdateUser(context.Background(), actor, 3, identity.UpdateUserInput{
		RoleID: pointer.To(1),
	})
	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 403, appError.HTTPStatus)

	// The target's role must be untouched, not silently downgraded
	unchanged, err := fx.users.FindByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, unchanged.RoleID)

	// Assigning an equal-or-lower role is allowed
	updated, err := fx.service.UpdateUser(context.Background(), actor, 3, identity.UpdateUserInput{
		RoleID: pointer.To(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.RoleID)
}

/*
TestUpdateUser_CannotTouchHigherRole verifies that a manager cannot modify
an admin at all, regardless of which fields the update carries.
*/
func TestUpdateUser_CannotTouchHigherRole(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.service.UpdateUser(context.Background(), managerActor(), 1, identity.UpdateUserInput{
		FirstName: pointer.To("Hijacked"),
	})
	require.Error(t, err)
	assert.Equal(t, 403, apperr.As(err).HTTPStatus)
}

/*
TestCreateUser_RoleAboveActor verifies the same guard on provisioning: a
manager cannot create an admin account.
*/
func TestCreateUser_RoleAboveActor(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.service.CreateUser(context.Background(), managerActor(), identity.CreateUserInput{
		Email:     "new-admin@example.com",
		Password:  "super secret pw",
		FirstName: "New",
		LastName:  "Admin",
		RoleID:    1,
	})
	require.Error(t, err)
	assert.Equal(t, 403, apperr.As(err).HTTPStatus)
}

// ── User Lifecycle ───────────────────────────────────────────────────────────

/*
TestCreateUser_Onboarding verifies that provisioning hashes the password,
stores the account approved and active, and triggers both the welcome mail
and the verification token.
*/
func TestCreateUser_Onboarding(t *testing.T) {
	fx := newFixture(t)

	user, err := fx.service.CreateUser(context.Background(), managerActor(), identity.CreateUserInput{
		Email:     "nina@example.com",
		Password:  "initial password",
		FirstName: "Nina",
		LastName:  "Novak",
		RoleID:    3,
	})
	require.NoError(t, err)

	// 1. Stored state
	assert.True(t, user.IsActive)
	assert.True(t, user.IsApproved)
	assert.False(t, user.EmailVerified)
	assert.NotEqual(t, "initial password", user.PasswordHash)
	assert.NotEmpty(t, user.PasswordHash)

	// 2. Onboarding side effects
	assert.Equal(t, []string{"nina@example.com"}, fx.mailer.recipients)
	assert.Equal(t, []int64{user.ID}, fx.verifier.issued)
}

/*
TestCreateUser_DuplicateEmail verifies the conflict on an existing address.
*/
func TestCreateUser_DuplicateEmail(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.service.CreateUser(context.Background(), managerActor(), identity.CreateUserInput{
		Email:     "uma@example.com",
		Password:  "whatever pw",
		FirstName: "Uma",
		LastName:  "Clone",
		RoleID:    3,
	})
	require.Error(t, err)
	assert.Equal(t, 409, apperr.As(err).HTTPStatus)
}

/*
TestDeleteUser_SelfRejected verifies that actors cannot delete their own
account, while deleting a lower-role account works.
*/
func TestDeleteUser_SelfRejected(t *testing.T) {
	fx := newFixture(t)
	actor := managerActor()

	err := fx.service.DeleteUser(context.Background(), actor, actor.UserID)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.As(err).HTTPStatus)

	require.NoError(t, fx.service.DeleteUser(context.Background(), actor, 3))
	_, err = fx.users.FindByID(context.Background(), 3)
	require.Error(t, err)
}

/*
TestApproveUser verifies approval stamps the approver and rejects a repeat.
*/
func TestApproveUser(t *testing.T) {
	fx := newFixture(t)
	actor := managerActor()

	pending := &identity.User{
		Email: "pending@example.com", FirstName: "Pen", LastName: "Ding",
		RoleID: 3, IsActive: true, IsApproved: false,
	}
	require.NoError(t, fx.users.Create(context.Background(), pending))

	approved, err := fx.service.ApproveUser(context.Background(), actor, pending.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, actor.UserID, *approved.ApprovedBy)

	_, err = fx.service.ApproveUser(context.Background(), actor, pending.ID)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.As(err).HTTPStatus)
}

// ── Roles ────────────────────────────────────────────────────────────────────

/*
TestDeleteRole_Guards verifies both deletion guards: system roles are
untouchable and in-use roles are rejected; an unused custom role
deactivates cleanly.
*/
func TestDeleteRole_Guards(t *testing.T) {
	fx := newFixture(t)

	// 1. System role
	err := fx.service.DeleteRole(context.Background(), 2)
	require.Error(t, err)
	assert.Equal(t, 403, apperr.As(err).HTTPStatus)

	// 2. Custom role still held by an active user
	custom, err := fx.service.CreateRole(context.Background(), identity.RoleInput{
		Name: "support", Permissions: sec.PermissionMap{"users": {"read"}}, IsActive: true,
	})
	require.NoError(t, err)

	holder := &identity.User{
		Email: "sup@example.com", FirstName: "Sup", LastName: "Port",
		RoleID: custom.ID, IsActive: true, IsApproved: true,
	}
	require.NoError(t, fx.users.Create(context.Background(), holder))

	err = fx.service.DeleteRole(context.Background(), custom.ID)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.As(err).HTTPStatus)

	// 3. Deactivate the holder, then deletion succeeds
	holder.IsActive = false
	require.NoError(t, fx.users.Update(context.Background(), holder))

	require.NoError(t, fx.service.DeleteRole(context.Background(), custom.ID))
	role, err := fx.roles.FindByID(context.Background(), custom.ID)
	require.NoError(t, err)
	assert.False(t, role.IsActive)
}
