// Copyright (c) 2026 NextDash. All rights reserved.

package settings

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nextdash/nextdash/internal/platform/middleware"
	requestutil "github.com/nextdash/nextdash/internal/platform/request"
	"github.com/nextdash/nextdash/internal/platform/respond"
)

// Handler exposes the settings HTTP surface.
type Handler struct {
	settingsService *Service
}

// NewHandler creates the settings handler.
func NewHandler(settingsService *Service) *Handler {
	return &Handler{settingsService: settingsService}
}

// AdminRoutes mounts the platform-settings endpoints, gated on the admin
// access permission.
func (handler *Handler) AdminRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)
	router.Use(middleware.RequirePermission("admin", "access"))

	router.Get("/", handler.listAdmin)
	router.Put("/", handler.bulkUpsert)

	return router
}

// UserRoutes mounts the per-user settings endpoints.
func (handler *Handler) UserRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.userDocument)
	router.Put("/", handler.saveUserDocument)
	router.Delete("/", handler.resetUserDocument)

	return router
}

// PublicRoutes mounts the unauthenticated public-settings endpoint.
func (handler *Handler) PublicRoutes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", handler.public)
	return router
}

func (handler *Handler) listAdmin(writer http.ResponseWriter, request *http.Request) {
	entries, err := handler.settingsService.ListAdmin(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, entries)
}

type bulkUpsertRequest struct {
	Settings map[string]json.RawMessage `json:"settings"`
}

func (handler *Handler) bulkUpsert(writer http.ResponseWriter, request *http.Request) {
	var input bulkUpsertRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.settingsService.BulkUpsert(request.Context(), input.Settings); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{"message": "Settings updated successfully"})
}

func (handler *Handler) public(writer http.ResponseWriter, request *http.Request) {
	snapshot, err := handler.settingsService.Public(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, snapshot)
}

func (handler *Handler) userDocument(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	document, err := handler.settingsService.UserDocument(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, document)
}

type saveUserSettingsRequest struct {
	Settings json.RawMessage `json:"settings"`
}

func (handler *Handler) saveUserDocument(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input saveUserSettingsRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.settingsService.SaveUserDocument(request.Context(), userID, input.Settings); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{"message": "Settings updated successfully"})
}

func (handler *Handler) resetUserDocument(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.settingsService.ResetUserDocument(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{"message": "Settings reset to defaults"})
}
