package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/internal/service"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
	"github.com/REVIVAL-MIMI/psychology/pkg/httputil"
	"github.com/REVIVAL-MIMI/psychology/pkg/validator"
)

// ProfileHandler handles HTTP requests for both profile shapes.
type ProfileHandler struct {
	service *service.ProfileService
	logger  *slog.Logger
}

// NewProfileHandler creates a new profile HTTP handler.
func NewProfileHandler(svc *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{service: svc, logger: logger}
}

// UpdatePsychologistProfileRequest is the JSON request body for psychologist
// profile updates. Absent fields are left untouched.
type UpdatePsychologistProfileRequest struct {
	FullName        *string   `json:"full_name,omitempty" validate:"omitempty,min=1,max=200"`
	About           *string   `json:"about,omitempty" validate:"omitempty,max=5000"`
	Specializations *[]string `json:"specializations,omitempty" validate:"omitempty,max=20,dive,min=1,max=100"`
	Education       *string   `json:"education,omitempty" validate:"omitempty,max=2000"`
	ExperienceYears *int      `json:"experience_years,omitempty" validate:"omitempty,min=0,max=80"`
	SessionPrice    *int64    `json:"session_price,omitempty" validate:"omitempty,min=0"`
}

// UpdateClientProfileRequest is the JSON request body for client profile updates.
type UpdateClientProfileRequest struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=200"`
	BirthDate *string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Get handles GET /api/v1/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	switch {
	case principal.IsPsychologist():
		profile, err := h.service.GetPsychologist(r.Context(), principal.User.ID)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: profile})
	case principal.IsClient():
		profile, err := h.service.GetClient(r.Context(), principal.User.ID)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: profile})
	default:
		httputil.WriteError(w, r, apperrors.Forbidden("admins have no profile"), h.logger)
	}
}

// Update handles PUT /api/v1/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	switch {
	case principal.IsPsychologist():
		h.updatePsychologist(w, r, principal)
	case principal.IsClient():
		h.updateClient(w, r, principal)
	default:
		httputil.WriteError(w, r, apperrors.Forbidden("admins have no profile"), h.logger)
	}
}

func (h *ProfileHandler) updatePsychologist(w http.ResponseWriter, r *http.Request, principal *domain.Principal) {
	var req UpdatePsychologistProfileRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	profile, err := h.service.UpdatePsychologist(r.Context(), principal.User.ID, service.UpdatePsychologistInput{
		FullName:        req.FullName,
		About:           req.About,
		Specializations: req.Specializations,
		Education:       req.Education,
		ExperienceYears: req.ExperienceYears,
		SessionPrice:    req.SessionPrice,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: profile})
}

func (h *ProfileHandler) updateClient(w http.ResponseWriter, r *http.Request, principal *domain.Principal) {
	var req UpdateClientProfileRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.UpdateClientInput{FullName: req.FullName}
	if req.BirthDate != nil {
		birthDate, err := time.Parse(birthDateLayout, *req.BirthDate)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("birth_date must be YYYY-MM-DD"), h.logger)
			return
		}
		input.BirthDate = &birthDate
	}

	profile, err := h.service.UpdateClient(r.Context(), principal.User.ID, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: profile})
}

// UploadVerificationDocument handles POST /api/v1/profile/verification-document
// as multipart/form-data with a "document" file field.
func (h *ProfileHandler) UploadVerificationDocument(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxDocumentSize+maxBodySize)
	if err := r.ParseMultipartForm(service.MaxDocumentSize); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("document exceeds the 5 MB limit"), h.logger)
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("document file field is required"), h.logger)
		return
	}
	defer file.Close()

	url, err := h.service.UploadVerificationDocument(
		r.Context(),
		principal.User.ID,
		header.Filename,
		header.Header.Get("Content-Type"),
		header.Size,
		file,
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{
		Data: map[string]string{"document_url": url},
	})
}

// VerificationStatus handles GET /api/v1/profile/verification-status
func (h *ProfileHandler) VerificationStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	status, err := h.service.GetVerificationStatus(r.Context(), principal.User.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: status})
}
