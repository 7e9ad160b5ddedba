// Copyright (c) 2026 NextDash. All rights reserved.

package notification

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nextdash/nextdash/internal/platform/apperr"
	"github.com/nextdash/nextdash/internal/platform/middleware"
	requestutil "github.com/nextdash/nextdash/internal/platform/request"
	"github.com/nextdash/nextdash/internal/platform/respond"
	"github.com/nextdash/nextdash/internal/platform/validate"
	"github.com/nextdash/nextdash/pkg/pagination"
	"github.com/nextdash/nextdash/pkg/pointer"
)

// Handler exposes the notification HTTP surface.
type Handler struct {
	notificationService *Service
}

// NewHandler creates the notification handler.
func NewHandler(notificationService *Service) *Handler {
	return &Handler{notificationService: notificationService}
}

// Routes mounts the notification endpoints. Every route requires an
// authenticated actor; creating notifications for other users additionally
// requires the notifications create permission.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.list)
	router.Post("/mark-all-read", handler.markAllRead)
	router.Put("/{id}", handler.setRead)
	router.Delete("/{id}", handler.remove)

	router.With(middleware.RequirePermission("notifications", "create")).
		Post("/", handler.create)

	return router
}

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	filter := Filter{}
	query := request.URL.Query()
	if query.Get("unread") == "true" {
		filter.Unread = pointer.To(true)
	}
	if raw := query.Get("type"); raw != "" {
		kind := Kind(raw)
		if !kind.Valid() {
			respond.Error(writer, request, apperr.ValidationError("Invalid type parameter"))
			return
		}
		filter.Kind = &kind
	}

	feed, err := handler.notificationService.ListForUser(request.Context(), actor, filter, pagination.FromRequest(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, feed)
}

type createNotificationRequest struct {
	UserID     int64      `json:"user_id"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Type       Kind       `json:"type"`
	ActionURL  string     `json:"action_url"`
	ActionText string     `json:"action_text"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	var input createNotificationRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := (&validate.Validator{}).
		Positive("user_id", input.UserID).
		Required("title", input.Title).
		MaxLen("title", input.Title, 255).
		Required("message", input.Message).
		Err()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := handler.notificationService.Create(request.Context(), CreateInput{
		UserID:     input.UserID,
		Title:      input.Title,
		Message:    input.Message,
		Kind:       input.Type,
		ActionURL:  input.ActionURL,
		ActionText: input.ActionText,
		ExpiresAt:  input.ExpiresAt,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, created)
}

type setReadRequest struct {
	IsRead *bool `json:"is_read"`
}

func (handler *Handler) setRead(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := requestutil.NumericID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input setReadRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.notificationService.SetRead(request.Context(), actor, id, pointer.Fallback(input.IsRead, true))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, updated)
}

func (handler *Handler) markAllRead(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	count, err := handler.notificationService.MarkAllRead(request.Context(), actor)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]int64{"updated": count})
}

func (handler *Handler) remove(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := requestutil.NumericID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.notificationService.Delete(request.Context(), actor, id); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}
