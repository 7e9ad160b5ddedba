// Copyright (c) 2026 NextDash. All rights reserved.

package sec

// # Permission Model

// PermissionMap maps a resource name (e.g. "users") to the set of actions
// allowed on it (e.g. ["read", "create"]). It is the decoded form of the
// JSONB permissions column on the roles table.
type PermissionMap map[string][]string

// Allows reports whether the map grants the given action on the given resource.
//
// # Deny By Default
//
// A missing resource, a missing action, or a nil map all answer false.
func (m PermissionMap) Allows(resource, action string) bool {
	actions, ok := m[resource]
	if !ok {
		return false
	}
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

// PermissionCheck pairs a resource with an action for bulk permission checks.
type PermissionCheck struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// # Role Hierarchy

// Roles form a total order by ascending numeric ID: a LOWER ID means MORE
// privilege, with ID 1 reserved for the administrator role. Every hierarchy
// comparison in the codebase goes through the Actor methods below; call
// sites never re-derive the integer comparison themselves.
const (
	// AdminRoleID is the reserved highest-privilege role.
	AdminRoleID = 1

	// ManagerRoleID is the second tier of the hierarchy.
	ManagerRoleID = 2
)

// Reserved permission identifiers.
const (
	ResourceAdmin = "admin"
	ActionAccess  = "access"
)

// # Actor

// Actor is the authorization snapshot of an authenticated identity: exactly
// the fields the permission model needs to answer "may this principal do X".
//
// It is built from the identity row plus its role at authentication time and
// travels in the request context. It is never persisted.
type Actor struct {
	UserID      int64         `json:"user_id"`
	Email       string        `json:"email"`
	RoleID      int           `json:"role_id"`
	Permissions PermissionMap `json:"permissions"`
}

// HasPermission reports whether the actor may perform action on resource.
func (a *Actor) HasPermission(resource, action string) bool {
	return a.Permissions.Allows(resource, action)
}

// HasAllPermissions reports whether the actor holds every listed permission.
func (a *Actor) HasAllPermissions(checks ...PermissionCheck) bool {
	for _, check := range checks {
		if !a.HasPermission(check.Resource, check.Action) {
			return false
		}
	}
	return true
}

// HasAnyPermission reports whether the actor holds at least one listed permission.
func (a *Actor) HasAnyPermission(checks ...PermissionCheck) bool {
	for _, check := range checks {
		if a.HasPermission(check.Resource, check.Action) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor has administrator standing.
//
// Two independent paths grant it: holding the reserved admin role ID, or
// holding the explicit "admin:access" permission. Both are honored.
func (a *Actor) IsAdmin() bool {
	return a.RoleID == AdminRoleID || a.HasPermission(ResourceAdmin, ActionAccess)
}

// IsAtLeastRole reports whether the actor's role meets or exceeds the given
// hierarchy threshold.
//
// Lower numeric ID is higher privilege, so the comparison is
// a.RoleID <= roleID. The direction is load-bearing: inverting it is a
// privilege-escalation bug.
func (a *Actor) IsAtLeastRole(roleID int) bool {
	return a.RoleID <= roleID
}

// IsManagerOrAbove reports whether the actor is a manager, an admin, or holds
// the explicit admin permission.
func (a *Actor) IsManagerOrAbove() bool {
	return a.IsAtLeastRole(ManagerRoleID) || a.IsAdmin()
}

// CanManageRole reports whether the actor may create, update, or delete a
// principal holding targetRoleID.
//
// An actor may only manage targets of equal-or-lower privilege (numerically
// greater-or-equal role ID). Callers must fail closed with a Forbidden error
// when this answers false, never silently downgrade the requested role.
func (a *Actor) CanManageRole(targetRoleID int) bool {
	return targetRoleID >= a.RoleID
}
