package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/REVIVAL-MIMI/psychology/internal/service"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
	"github.com/REVIVAL-MIMI/psychology/pkg/httputil"
)

// ClientsHandler exposes the psychologist's client roster and the per-role
// dashboards.
type ClientsHandler struct {
	roster    *service.ClientRosterService
	dashboard *service.DashboardService
	logger    *slog.Logger
}

// NewClientsHandler creates a new clients HTTP handler.
func NewClientsHandler(roster *service.ClientRosterService, dashboard *service.DashboardService, logger *slog.Logger) *ClientsHandler {
	return &ClientsHandler{roster: roster, dashboard: dashboard, logger: logger}
}

// List handles GET /api/v1/clients
func (h *ClientsHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	summaries, err := h.roster.List(r.Context(), principal.User.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: summaries})
}

// Get handles GET /api/v1/clients/{clientID}
func (h *ClientsHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	detail, err := h.roster.Get(r.Context(), principal.User.ID, chi.URLParam(r, "clientID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: detail})
}

// Dashboard handles GET /api/v1/dashboard and serves the landing view for the
// caller's role.
func (h *ClientsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	var data any
	var err error
	switch {
	case principal.IsPsychologist():
		data, err = h.dashboard.ForPsychologist(r.Context(), principal.User.ID)
	case principal.IsClient():
		data, err = h.dashboard.ForClient(r.Context(), principal.User.ID)
	default:
		httputil.WriteError(w, r, apperrors.Forbidden("admins have no dashboard"), h.logger)
		return
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: data})
}
