package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/REVIVAL-MIMI/psychology/internal/service"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
	"github.com/REVIVAL-MIMI/psychology/pkg/httputil"
	"github.com/REVIVAL-MIMI/psychology/pkg/validator"
)

// RecommendationHandler handles HTTP requests for homework recommendations.
type RecommendationHandler struct {
	service *service.RecommendationService
	logger  *slog.Logger
}

// NewRecommendationHandler creates a new recommendation HTTP handler.
func NewRecommendationHandler(svc *service.RecommendationService, logger *slog.Logger) *RecommendationHandler {
	return &RecommendationHandler{service: svc, logger: logger}
}

// CreateRecommendationRequest is the JSON request body for a new recommendation.
type CreateRecommendationRequest struct {
	ClientID string  `json:"client_id" validate:"required"`
	Text     string  `json:"text" validate:"required,max=2000"`
	DueDate  *string `json:"due_date,omitempty"`
}

// UpdateRecommendationRequest is the JSON request body for editing a recommendation.
type UpdateRecommendationRequest struct {
	Text    *string `json:"text,omitempty" validate:"omitempty,max=2000"`
	DueDate *string `json:"due_date,omitempty"`
}

// Create handles POST /api/v1/recommendations
func (h *RecommendationHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req CreateRecommendationRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	rec, err := h.service.Create(r.Context(), principal.User.ID, service.CreateRecommendationInput{
		ClientID: req.ClientID,
		Text:     req.Text,
		DueDate:  dueDate,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: rec})
}

// List handles GET /api/v1/recommendations. Psychologists see what they
// issued, clients what they were assigned.
func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	var recs any
	var err error
	if principal.IsPsychologist() {
		recs, err = h.service.ListForPsychologist(r.Context(), principal.User.ID)
	} else {
		recs, err = h.service.ListForClient(r.Context(), principal.User.ID)
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: recs})
}

// Update handles PUT /api/v1/recommendations/{recommendationID}
func (h *RecommendationHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req UpdateRecommendationRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	rec, err := h.service.Update(r.Context(), principal.User.ID, chi.URLParam(r, "recommendationID"), service.UpdateRecommendationInput{
		Text:    req.Text,
		DueDate: dueDate,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: rec})
}

// Delete handles DELETE /api/v1/recommendations/{recommendationID}
func (h *RecommendationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), principal.User.ID, chi.URLParam(r, "recommendationID")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Complete handles POST /api/v1/recommendations/{recommendationID}/complete
func (h *RecommendationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	rec, err := h.service.Complete(r.Context(), principal.User.ID, chi.URLParam(r, "recommendationID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: rec})
}

func parseDueDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		// A bare date is accepted too.
		parsed, err = time.Parse(birthDateLayout, *raw)
		if err != nil {
			return nil, apperrors.InvalidInput("due_date must be RFC 3339 or YYYY-MM-DD")
		}
	}
	return &parsed, nil
}
