package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/REVIVAL-MIMI/psychology/internal/service"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
	"github.com/REVIVAL-MIMI/psychology/pkg/httputil"
)

// DebugHandler serves the development-only OTP inspection and ping endpoints.
// The router mounts it only when the environment is development.
type DebugHandler struct {
	admin  *service.AdminService
	logger *slog.Logger
}

// NewDebugHandler creates a new debug HTTP handler.
func NewDebugHandler(admin *service.AdminService, logger *slog.Logger) *DebugHandler {
	return &DebugHandler{admin: admin, logger: logger}
}

// Ping handles GET /api/v1/test/ping
func (h *DebugHandler) Ping(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{
			"message": "pong",
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// LastOTP handles GET /api/v1/debug/otp/last?phone=
func (h *DebugHandler) LastOTP(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("phone query parameter is required"), h.logger)
		return
	}

	code, err := h.admin.LastOTP(r.Context(), phone)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"phone": phone, "code": code},
	})
}

// RecentOTPs handles GET /api/v1/debug/otp/recent?limit=
func (h *DebugHandler) RecentOTPs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	codes, err := h.admin.RecentOTPs(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: codes})
}

// ActiveOTPs handles GET /api/v1/debug/otp/active
func (h *DebugHandler) ActiveOTPs(w http.ResponseWriter, r *http.Request) {
	codes, err := h.admin.ActiveOTPs(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: codes})
}
