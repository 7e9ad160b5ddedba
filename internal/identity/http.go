// Copyright (c) 2026 NextDash. All rights reserved.

// HTTP delivery layer for the identity domain.
package identity

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nextdash/nextdash/internal/platform/apperr"
	"github.com/nextdash/nextdash/internal/platform/middleware"
	requestutil "github.com/nextdash/nextdash/internal/platform/request"
	"github.com/nextdash/nextdash/internal/platform/respond"
	"github.com/nextdash/nextdash/internal/platform/sec"
	"github.com/nextdash/nextdash/internal/platform/validate"
	"github.com/nextdash/nextdash/pkg/pagination"
	"github.com/nextdash/nextdash/pkg/pointer"
)

// Handler implements user and role administration endpoints.
type Handler struct {
	identityService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{identityService: service}
}

// UserRoutes returns the /users router. Every route requires an
// authenticated actor plus the matching users:* permission.
//
// # Endpoints
//   - GET    /             : Filtered, paginated user listing.
//   - POST   /             : Provision a new account.
//   - GET    /{id}         : Fetch one user.
//   - PUT    /{id}         : Partial update.
//   - POST   /{id}/approve : Approve a pending account.
//   - DELETE /{id}         : Remove an account.
func (handler *Handler) UserRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.With(middleware.RequirePermission("users", "read")).Get("/", handler.listUsers)
	router.With(middleware.RequirePermission("users", "create")).Post("/", handler.createUser)
	router.With(middleware.RequirePermission("users", "read")).Get("/{id}", handler.getUser)
	router.With(middleware.RequirePermission("users", "update")).Put("/{id}", handler.updateUser)
	router.With(middleware.RequirePermission("users", "update")).Post("/{id}/approve", handler.approveUser)
	router.With(middleware.RequirePermission("users", "delete")).Delete("/{id}", handler.deleteUser)

	return router
}

// RoleRoutes returns the /roles router.
func (handler *Handler) RoleRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.With(middleware.RequirePermission("roles", "read")).Get("/", handler.listRoles)
	router.With(middleware.RequirePermission("roles", "create")).Post("/", handler.createRole)
	router.With(middleware.RequirePermission("roles", "read")).Get("/{id}", handler.getRole)
	router.With(middleware.RequirePermission("roles", "update")).Put("/{id}", handler.updateRole)
	router.With(middleware.RequirePermission("roles", "delete")).Delete("/{id}", handler.deleteRole)

	return router
}

// ProfileRoutes returns the self-service /profile router.
func (handler *Handler) ProfileRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.getProfile)
	router.Put("/", handler.updateProfile)

	return router
}

// ── Users ────────────────────────────────────────────────────────────────────

// listUsers handles GET /api/v1/users requests.
//
// Supported query parameters: role, active, search, page, limit.
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()

	filter := UserFilter{Search: query.Get("search")}
	if raw := query.Get("role"); raw != "" {
		roleID, err := strconv.Atoi(raw)
		if err != nil {
			respond.Error(writer, request, apperr.ValidationError("Invalid role parameter"))
			return
		}
		filter.RoleID = pointer.To(roleID)
	}
	if raw := query.Get("active"); raw != "" {
		filter.Active = pointer.To(raw == "true")
	}

	users, meta, err := handler.identityService.ListUsers(request.Context(), filter, pagination.FromRequest(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, users, *meta)
}

// createUserRequest represents the JSON payload for account provisioning.
type createUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	RoleID    int    `json:"role_id"`
}

// createUser handles POST /api/v1/users requests.
func (handler *Handler) createUser(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createUserRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := (&validate.Validator{}).
		Required("email", input.Email).
		MinLen("password", input.Password, 8).
		MaxLen("password", input.Password, 128).
		Required("first_name", input.FirstName).
		MinLen("first_name", input.FirstName, 2).
		Required("last_name", input.LastName).
		MinLen("last_name", input.LastName, 2).
		Positive("role_id", int64(input.RoleID))
	if input.Email != "" {
		validator.Email("email", input.Email)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.identityService.CreateUser(request.Context(), actor, CreateUserInput{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		RoleID:    input.RoleID,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

// getUser handles GET /api/v1/users/{id} requests.
func (handler *Handler) getUser(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.NumericID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.identityService.GetUser(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// updateUserRequest represents a partial user update. Absent fields are
// left unchanged.
type updateUserRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	RoleID    *int    `json:"role_id"`
	AvatarURL *string `json:"avatar_url"`
	IsActive  *bool   `json:"is_active"`
}

// updateUser handles PUT /api/v1/users/{id} requests.
func (handler *Handler) updateUser(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	userID, err := requestutil.NumericID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateUserRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if input.Email != nil {
		validator.Email("email", *input.Email)
	}
	if input.FirstName != nil {
		validator.MinLen("first_name", *input.FirstName, 2)
	}
	if input.LastName != nil {
		validator.MinLen("last_name", *input.LastName, 2)
	}
	if input.RoleID != nil {
		validator.Positive("role_id", int64(*input.RoleID))
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.identityService.UpdateUser(request.Context(), actor, userID, UpdateUserInput{
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		RoleID:    input.RoleID,
		AvatarURL: input.AvatarURL,
		IsActive:  input.IsActive,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// approveUser handles POST /api/v1/users/{id}/approve requests.
func (handler *Handler) approveUser(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	userID, err := requestutil.NumericID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.identityService.ApproveUser(request.Context(), actor, userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// deleteUser handles DELETE /api/v1/users/{id} requests.
func (handler *Handler) deleteUser(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	userID, err := requestutil.NumericID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.identityService.DeleteUser(request.Context(), actor, userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// ── Profile ──────────────────────────────────────────────────────────────────

// getProfile handles GET /api/v1/profile requests.
func (handler *Handler) getProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.identityService.GetUser(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// updateProfileRequest represents the self-service profile payload.
type updateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url"`
}

// updateProfile handles PUT /api/v1/profile requests.
func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateProfileRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := (&validate.Validator{}).
		Required("first_name", input.FirstName).
		MinLen("first_name", input.FirstName, 2).
		Required("last_name", input.LastName).
		MinLen("last_name", input.LastName, 2)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.identityService.UpdateProfile(request.Context(), userID, UpdateProfileInput{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		AvatarURL: input.AvatarURL,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// ── Roles ────────────────────────────────────────────────────────────────────

// listRoles handles GET /api/v1/roles requests.
func (handler *Handler) listRoles(writer http.ResponseWriter, request *http.Request) {
	roles, err := handler.identityService.ListRoles(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, roles)
}

// roleRequest represents the JSON payload for role definitions.
type roleRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Permissions sec.PermissionMap `json:"permissions"`
	IsActive    *bool             `json:"is_active"`
}

func (input *roleRequest) validate() error {
	return (&validate.Validator{}).
		Required("name", input.Name).
		MinLen("name", input.Name, 2).
		MaxLen("name", input.Name, 50).
		MaxLen("description", input.Description, 255).
		Err()
}

// createRole handles POST /api/v1/roles requests.
func (handler *Handler) createRole(writer http.ResponseWriter, request *http.Request) {
	var input roleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := input.validate(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.identityService.CreateRole(request.Context(), RoleInput{
		Name:        input.Name,
		Description: input.Description,
		Permissions: input.Permissions,
		IsActive:    pointer.Fallback(input.IsActive, true),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, role)
}

// getRole handles GET /api/v1/roles/{id} requests.
func (handler *Handler) getRole(writer http.ResponseWriter, request *http.Request) {
	roleID, err := requestutil.NumericID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.identityService.GetRole(request.Context(), int(roleID))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, role)
}

// updateRole handles PUT /api/v1/roles/{id} requests.
func (handler *Handler) updateRole(writer http.ResponseWriter, request *http.Request) {
	roleID, err := requestutil.NumericID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input roleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := input.validate(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.identityService.UpdateRole(request.Context(), int(roleID), RoleInput{
		Name:        input.Name,
		Description: input.Description,
		Permissions: input.Permissions,
		IsActive:    pointer.Fallback(input.IsActive, true),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, role)
}

// deleteRole handles DELETE /api/v1/roles/{id} requests.
func (handler *Handler) deleteRole(writer http.ResponseWriter, request *http.Request) {
	roleID, err := requestutil.NumericID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.identityService.DeleteRole(request.Context(), int(roleID)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
