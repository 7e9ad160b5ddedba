// Copyright (c) 2026 NextDash. All rights reserved.

// HTTP delivery layer for the auth domain.
//
// # Architecture
//
// Handlers act as the "gatekeepers" to the system. They are responsible for:
//   - JSON request parsing and strict input validation.
//   - Mapping HTTP contexts to service layer method calls.
//   - Standardizing JSON response formats via the [respond] package.
//
// They contain NO business logic or database queries.
package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nextdash/nextdash/internal/platform/middleware"
	requestutil "github.com/nextdash/nextdash/internal/platform/request"
	"github.com/nextdash/nextdash/internal/platform/respond"
	"github.com/nextdash/nextdash/internal/platform/validate"
)

// resetRequestedMessage is returned for every forgot-password call,
// registered address or not.
const resetRequestedMessage = "If an account with that email exists, we have sent a password reset link."

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// Everything related to session entry and exit points: login, refresh,
// logout, identity echo, and the password-reset/email-verification
// callbacks that land from emailed links.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /login           : Authenticates and returns a token pair.
//   - POST /refresh         : Rotates a refresh token into a fresh pair.
//   - POST /logout          : Revokes the presented session.
//   - GET  /me              : Returns the authenticated account.
//   - POST /forgot-password : Requests a password reset link.
//   - GET  /reset-password  : Checks a reset token before showing the form.
//   - POST /reset-password  : Consumes a reset token and sets a password.
//   - GET  /verify-email    : Consumes an email verification token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Get("/reset-password", handler.checkResetToken)
	router.Post("/reset-password", handler.resetPassword)
	router.Get("/verify-email", handler.verifyEmail)

	router.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth)
		protected.Post("/logout", handler.logout)
		protected.Get("/me", handler.me)
	})

	return router
}

// loginRequest represents the JSON payload expected for authentication.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login handles POST /api/v1/auth/login requests.
//
// # Returns
//   - Writes HTTP 200 OK with the token pair and sanitized account.
//   - Writes HTTP 401 Unauthorized for bad credentials, one generic
//     message regardless of which check failed.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	validator := (&validate.Validator{}).
		Required("email", input.Email).
		Required("password", input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	result, err := handler.authService.Login(request.Context(), LoginInput{
		Email:     input.Email,
		Password:  input.Password,
		UserAgent: request.UserAgent(),
		IPAddress: middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 4. Presentation Output ────────────────────────────────────────────

	respond.OK(writer, result)
}

// refreshRequest carries the refresh token being rotated.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refresh handles POST /api/v1/auth/refresh requests.
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := (&validate.Validator{}).Required("refresh_token", input.RefreshToken).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Refresh(request.Context(),
		input.RefreshToken, request.UserAgent(), middleware.RealIP(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

// logout handles POST /api/v1/auth/logout requests.
// Revokes exactly the session that authenticated this request.
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	token := middleware.ExtractToken(request)

	if err := handler.authService.Logout(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// me handles GET /api/v1/auth/me requests.
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.authService.Me(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}

// forgotPasswordRequest carries the address asking for a reset link.
type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// forgotPassword handles POST /api/v1/auth/forgot-password requests.
//
// Always answers 200 with the same message so the endpoint cannot be used
// to probe which addresses are registered.
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := (&validate.Validator{}).Required("email", input.Email)
	if input.Email != "" {
		validator.Email("email", input.Email)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.RequestPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": resetRequestedMessage})
}

// checkResetToken handles GET /api/v1/auth/reset-password?token=... requests.
func (handler *Handler) checkResetToken(writer http.ResponseWriter, request *http.Request) {
	token := request.URL.Query().Get("token")

	if err := (&validate.Validator{}).Required("token", token).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.VerifyPasswordResetToken(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]bool{"valid": true})
}

// resetPasswordRequest consumes an emailed reset token.
type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// resetPassword handles POST /api/v1/auth/reset-password requests.
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := (&validate.Validator{}).
		Required("token", input.Token).
		MinLen("password", input.Password, 8).
		MaxLen("password", input.Password, 128)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ConfirmPasswordReset(request.Context(), input.Token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Password has been reset successfully."})
}

// verifyEmail handles GET /api/v1/auth/verify-email?token=... requests.
// The link in the verification email lands here directly.
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	token := request.URL.Query().Get("token")

	if err := (&validate.Validator{}).Required("token", token).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ConfirmEmailVerification(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Email verified successfully."})
}
