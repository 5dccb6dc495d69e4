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

// ChatHandler handles the REST side of messaging. The WebSocket hub mirrors
// these operations for live delivery; the REST endpoints remain the source of
// truth.
type ChatHandler struct {
	service *service.ChatService
	logger  *slog.Logger
}

// NewChatHandler creates a new chat HTTP handler.
func NewChatHandler(svc *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{service: svc, logger: logger}
}

// SendMessageRequest is the JSON request body for sending a message.
type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Text        string `json:"text" validate:"required,max=2000"`
}

// Send handles POST /api/v1/chat/messages
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req SendMessageRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	msg, err := h.service.Send(r.Context(), principal.User.ID, req.RecipientID, req.Text)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: msg})
}

// History handles GET /api/v1/chat/conversations/{peerID}?page=&per_page=
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	peerID := chi.URLParam(r, "peerID")
	result, err := h.service.History(r.Context(), principal.User.ID, peerID, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// UnreadCount handles GET /api/v1/chat/unread
func (h *ChatHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	count, err := h.service.UnreadCount(r.Context(), principal.User.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]int{"unread": count},
	})
}

// UnreadCountFrom handles GET /api/v1/chat/conversations/{peerID}/unread
func (h *ChatHandler) UnreadCountFrom(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	peerID := chi.URLParam(r, "peerID")
	count, err := h.service.UnreadCountFrom(r.Context(), principal.User.ID, peerID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]int{"unread": count},
	})
}

// MarkRead handles POST /api/v1/chat/conversations/{peerID}/read
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	peerID := chi.URLParam(r, "peerID")
	updated, err := h.service.MarkRead(r.Context(), principal.User.ID, peerID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]int64{"marked_read": updated},
	})
}
