package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/REVIVAL-MIMI/psychology/internal/service"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
	"github.com/REVIVAL-MIMI/psychology/pkg/httputil"
	"github.com/REVIVAL-MIMI/psychology/pkg/pagination"
	"github.com/REVIVAL-MIMI/psychology/pkg/validator"
)

// JournalHandler handles HTTP requests for the client diary.
type JournalHandler struct {
	service *service.JournalService
	logger  *slog.Logger
}

// NewJournalHandler creates a new journal HTTP handler.
func NewJournalHandler(svc *service.JournalService, logger *slog.Logger) *JournalHandler {
	return &JournalHandler{service: svc, logger: logger}
}

// CreateEntryRequest is the JSON request body for a new journal entry.
type CreateEntryRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
	Mood string `json:"mood" validate:"required"`
}

// UpdateEntryRequest is the JSON request body for editing a journal entry.
type UpdateEntryRequest struct {
	Text *string `json:"text,omitempty" validate:"omitempty,max=5000"`
	Mood *string `json:"mood,omitempty"`
}

// Create handles POST /api/v1/journal
func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req CreateEntryRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	entry, err := h.service.Create(r.Context(), principal.User.ID, service.CreateEntryInput{
		Text: req.Text,
		Mood: req.Mood,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: entry})
}

// List handles GET /api/v1/journal?page=&per_page=
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	result, err := h.service.List(r.Context(), principal.User.ID, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Get handles GET /api/v1/journal/{entryID}
func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	entry, err := h.service.Get(r.Context(), principal.User.ID, chi.URLParam(r, "entryID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: entry})
}

// Update handles PUT /api/v1/journal/{entryID}
func (h *JournalHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req UpdateEntryRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	entry, err := h.service.Update(r.Context(), principal.User.ID, chi.URLParam(r, "entryID"), service.UpdateEntryInput{
		Text: req.Text,
		Mood: req.Mood,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: entry})
}

// Delete handles DELETE /api/v1/journal/{entryID}
func (h *JournalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), principal.User.ID, chi.URLParam(r, "entryID")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
