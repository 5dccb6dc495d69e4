package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/REVIVAL-MIMI/psychology/internal/service"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
	"github.com/REVIVAL-MIMI/psychology/pkg/httputil"
	"github.com/REVIVAL-MIMI/psychology/pkg/middleware"
	"github.com/REVIVAL-MIMI/psychology/pkg/pagination"
	"github.com/REVIVAL-MIMI/psychology/pkg/validator"
)

// AdminHandler handles HTTP requests for the operator console.
type AdminHandler struct {
	service       *service.AdminService
	refreshExpiry time.Duration
	logger        *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(svc *service.AdminService, refreshExpiry time.Duration, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{service: svc, refreshExpiry: refreshExpiry, logger: logger}
}

// AdminLoginRequest is the JSON request body for console login.
type AdminLoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RejectVerificationRequest is the JSON request body for rejecting a psychologist.
type RejectVerificationRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=1000"`
}

// Login handles POST /api/v1/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req AdminLoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	tokens, err := h.service.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setRefreshCookie(w, adminRefreshCookieName, adminRefreshCookiePath, tokens.RefreshToken, h.refreshExpiry)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tokens})
}

// Refresh handles POST /api/v1/admin/refresh
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	presented := refreshTokenFromRequest(w, r, adminRefreshCookieName)
	if presented == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("refresh token is required"), h.logger)
		return
	}

	tokens, err := h.service.Refresh(r.Context(), presented)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setRefreshCookie(w, adminRefreshCookieName, adminRefreshCookiePath, tokens.RefreshToken, h.refreshExpiry)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tokens})
}

// Logout handles POST /api/v1/admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("missing bearer token"), h.logger)
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	clearRefreshCookie(w, adminRefreshCookieName, adminRefreshCookiePath)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "logged out"},
	})
}

// ListPendingVerifications handles GET /api/v1/admin/verifications
func (h *AdminHandler) ListPendingVerifications(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.ListPendingVerifications(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pending})
}

// ApproveVerification handles POST /api/v1/admin/verifications/{userID}/approve
func (h *AdminHandler) ApproveVerification(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.service.ApproveVerification(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "psychologist verified"},
	})
}

// RejectVerification handles POST /api/v1/admin/verifications/{userID}/reject
func (h *AdminHandler) RejectVerification(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req RejectVerificationRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.RejectVerification(r.Context(), userID, req.Reason); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "verification rejected"},
	})
}

// ListUsers handles GET /api/v1/admin/users?role=&page=&per_page=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	role := r.URL.Query().Get("role")

	result, err := h.service.ListUsers(r.Context(), role, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// DeleteUser handles DELETE /api/v1/admin/users/{userID}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.service.DeleteUser(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/v1/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}

// LastOTP handles GET /api/v1/admin/otp/last?phone=
func (h *AdminHandler) LastOTP(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("phone query parameter is required"), h.logger)
		return
	}

	code, err := h.service.LastOTP(r.Context(), phone)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"phone": phone, "code": code},
	})
}

// RecentOTPs handles GET /api/v1/admin/otp/recent?limit=
func (h *AdminHandler) RecentOTPs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	codes, err := h.service.RecentOTPs(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: codes})
}

// ActiveOTPs handles GET /api/v1/admin/otp/active
func (h *AdminHandler) ActiveOTPs(w http.ResponseWriter, r *http.Request) {
	codes, err := h.service.ActiveOTPs(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: codes})
}
