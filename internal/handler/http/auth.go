package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/REVIVAL-MIMI/psychology/internal/auth"
	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/internal/repository"
	"github.com/REVIVAL-MIMI/psychology/internal/service"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
	"github.com/REVIVAL-MIMI/psychology/pkg/httputil"
	"github.com/REVIVAL-MIMI/psychology/pkg/middleware"
	"github.com/REVIVAL-MIMI/psychology/pkg/validator"
)

const (
	refreshCookieName      = "refreshToken"
	refreshCookiePath      = "/api/v1/auth/refresh"
	adminRefreshCookieName = "adminRefreshToken"
	adminRefreshCookiePath = "/api/v1/admin/refresh"

	maxBodySize = 1 << 20
)

const birthDateLayout = "2006-01-02"

// AuthHandler handles HTTP requests for the auth endpoints.
type AuthHandler struct {
	service    *service.AuthService
	jwtManager *auth.JWTManager
	registry   repository.TokenRegistry
	users      repository.UserRepository
	logger     *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(
	svc *service.AuthService,
	jwtManager *auth.JWTManager,
	registry repository.TokenRegistry,
	users repository.UserRepository,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		service:    svc,
		jwtManager: jwtManager,
		registry:   registry,
		users:      users,
		logger:     logger,
	}
}

// --- Request DTOs ---

// SendOTPRequest is the JSON request body for requesting a verification code.
type SendOTPRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

// LoginRequest is the JSON request body for OTP login.
type LoginRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// RegisterPsychologistRequest is the JSON request body for psychologist registration.
type RegisterPsychologistRequest struct {
	Phone    string `json:"phone" validate:"required,e164"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
	FullName string `json:"full_name" validate:"required,min=1,max=200"`
}

// RegisterClientRequest is the JSON request body for invite-based client registration.
type RegisterClientRequest struct {
	Phone       string `json:"phone" validate:"required,e164"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	InviteToken string `json:"invite_token" validate:"required"`
	FullName    string `json:"full_name" validate:"required,min=1,max=200"`
	BirthDate   string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// RefreshRequest is the JSON request body for token refresh. The cookie takes
// precedence when both are present.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePhoneRequest is the JSON request body for requesting a phone change.
type ChangePhoneRequest struct {
	NewPhone string `json:"new_phone" validate:"required,e164"`
}

// ConfirmPhoneChangeRequest is the JSON request body for confirming a phone change.
type ConfirmPhoneChangeRequest struct {
	NewPhone string `json:"new_phone" validate:"required,e164"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
}

// AuthResponse wraps user data with tokens.
type AuthResponse struct {
	User   *domain.User      `json:"user"`
	Tokens *domain.TokenPair `json:"tokens"`
}

// --- Handlers ---

// SendOTP handles POST /api/v1/auth/send-otp
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req SendOTPRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.SendOTP(r.Context(), req.Phone); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "verification code sent"},
	})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, tokens, err := h.service.Login(r.Context(), req.Phone, req.Code)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setRefreshCookie(w, refreshCookieName, refreshCookiePath, tokens.RefreshToken, h.jwtManager.RefreshExpiry())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: AuthResponse{User: user, Tokens: tokens},
	})
}

// RegisterPsychologist handles POST /api/v1/auth/register/psychologist
func (h *AuthHandler) RegisterPsychologist(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req RegisterPsychologistRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, tokens, err := h.service.RegisterPsychologist(r.Context(), service.RegisterPsychologistInput{
		Phone:    req.Phone,
		Code:     req.Code,
		FullName: req.FullName,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setRefreshCookie(w, refreshCookieName, refreshCookiePath, tokens.RefreshToken, h.jwtManager.RefreshExpiry())
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{
		Data: AuthResponse{User: user, Tokens: tokens},
	})
}

// RegisterClient handles POST /api/v1/auth/register/client
func (h *AuthHandler) RegisterClient(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req RegisterClientRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.RegisterClientInput{
		Phone:       req.Phone,
		Code:        req.Code,
		InviteToken: req.InviteToken,
		FullName:    req.FullName,
	}
	if req.BirthDate != "" {
		birthDate, err := time.Parse(birthDateLayout, req.BirthDate)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("birth_date must be YYYY-MM-DD"), h.logger)
			return
		}
		input.BirthDate = &birthDate
	}

	user, tokens, err := h.service.RegisterClient(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setRefreshCookie(w, refreshCookieName, refreshCookiePath, tokens.RefreshToken, h.jwtManager.RefreshExpiry())
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{
		Data: AuthResponse{User: user, Tokens: tokens},
	})
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	presented := refreshTokenFromRequest(w, r, refreshCookieName)
	if presented == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("refresh token is required"), h.logger)
		return
	}

	tokens, err := h.service.Refresh(r.Context(), presented)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setRefreshCookie(w, refreshCookieName, refreshCookiePath, tokens.RefreshToken, h.jwtManager.RefreshExpiry())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tokens})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, token, err := h.authenticate(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.service.Logout(r.Context(), token, claims.Subject); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	clearRefreshCookie(w, refreshCookieName, refreshCookiePath)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "logged out"},
	})
}

// RequestPhoneChange handles POST /api/v1/auth/change-phone
func (h *AuthHandler) RequestPhoneChange(w http.ResponseWriter, r *http.Request) {
	claims, _, err := h.authenticate(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req ChangePhoneRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.RequestPhoneChange(r.Context(), claims.UserID, req.NewPhone); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "verification code sent to the new number"},
	})
}

// ConfirmPhoneChange handles POST /api/v1/auth/change-phone/confirm
func (h *AuthHandler) ConfirmPhoneChange(w http.ResponseWriter, r *http.Request) {
	claims, _, err := h.authenticate(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req ConfirmPhoneChangeRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			httputil.WriteError(w, r, apperrors.InvalidToken("account no longer exists"), h.logger)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	tokens, err := h.service.ConfirmPhoneChange(r.Context(), user, req.NewPhone, req.Code)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setRefreshCookie(w, refreshCookieName, refreshCookiePath, tokens.RefreshToken, h.jwtManager.RefreshExpiry())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tokens})
}

// authenticate validates the bearer token on auth endpoints that are mounted
// under the public prefix but still act on an account.
func (h *AuthHandler) authenticate(r *http.Request) (*auth.Claims, string, error) {
	token := middleware.BearerToken(r)
	if token == "" {
		return nil, "", apperrors.Unauthorized("missing bearer token")
	}

	revoked, err := h.registry.IsBlacklisted(r.Context(), token)
	if err != nil {
		return nil, "", apperrors.Internal(err)
	}
	if revoked {
		return nil, "", apperrors.Blacklisted("token has been revoked")
	}

	claims, err := h.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return nil, "", err
	}
	return claims, token, nil
}

// --- Cookie helpers ---

func setRefreshCookie(w http.ResponseWriter, name, path, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     path,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// refreshTokenFromRequest prefers the HttpOnly cookie, falling back to the
// JSON body for non-browser clients.
func refreshTokenFromRequest(w http.ResponseWriter, r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req RefreshRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		return ""
	}
	return req.RefreshToken
}
