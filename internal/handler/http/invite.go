package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/REVIVAL-MIMI/psychology/internal/service"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
	"github.com/REVIVAL-MIMI/psychology/pkg/httputil"
)

// InviteHandler handles HTTP requests for client invites.
type InviteHandler struct {
	service *service.InviteService
	logger  *slog.Logger
}

// NewInviteHandler creates a new invite HTTP handler.
func NewInviteHandler(svc *service.InviteService, logger *slog.Logger) *InviteHandler {
	return &InviteHandler{service: svc, logger: logger}
}

// Create handles POST /api/v1/invites
func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	invite, err := h.service.Create(r.Context(), principal.User.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: invite})
}

// List handles GET /api/v1/invites
func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	invites, err := h.service.List(r.Context(), principal.User.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: invites})
}

// Revoke handles DELETE /api/v1/invites/{inviteID}
func (h *InviteHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	inviteID := chi.URLParam(r, "inviteID")
	if err := h.service.Revoke(r.Context(), inviteID, principal.User.ID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Validate handles GET /api/v1/invites/validate/{token}. The endpoint is
// public so the registration page can check an invite before sign-up.
func (h *InviteHandler) Validate(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	validation, err := h.service.Validate(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: validation})
}
