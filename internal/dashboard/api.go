package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/scope"
	"github.com/eglise-connect/platform/internal/shared/errors"
	"github.com/eglise-connect/platform/internal/shared/metrics"
)

// Handler provides HTTP handlers for the dashboard aggregates
type Handler struct {
	service  *Service
	resolver *scope.Resolver
}

// NewHandler creates a new dashboard handler
func NewHandler(service *Service, resolver *scope.Resolver) *Handler {
	return &Handler{service: service, resolver: resolver}
}

// Routes returns the dashboard routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/overview", h.GetOverview)
	r.Get("/cohorts", h.GetCohorts)

	return r
}

// GetOverview returns the headline numbers for the caller's scope.
// Gated by the stats capability.
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	city, err := h.requireCapability(r, access.CapViewStats)
	if err != nil {
		writeError(w, err)
		return
	}

	overview, svcErr := h.service.Overview(r.Context(), city)
	if svcErr != nil {
		writeError(w, svcErr)
		return
	}

	writeJSON(w, http.StatusOK, overview)
}

// GetCohorts returns the per-month member counts. Gated by the charts
// capability, which some operational roles have revoked by default.
func (h *Handler) GetCohorts(w http.ResponseWriter, r *http.Request) {
	city, err := h.requireCapability(r, access.CapSeeCharts)
	if err != nil {
		writeError(w, err)
		return
	}

	chart, svcErr := h.service.Cohorts(r.Context(), city)
	if svcErr != nil {
		writeError(w, svcErr)
		return
	}

	writeJSON(w, http.StatusOK, chart)
}

// requireCapability resolves the caller's scope and checks the
// capability, recording the decision either way.
func (h *Handler) requireCapability(r *http.Request, cap access.Capability) (string, error) {
	identity, err := h.resolver.Identity(r)
	if err != nil {
		return "", err
	}

	allowed := access.EffectivePermission(identity, cap)
	metrics.RecordCapabilityDecision(string(cap), allowed)
	if !allowed {
		return "", errors.Forbidden("this view is not permitted for your account")
	}

	city, scopeErr := h.resolver.ResolvedCity(r)
	if scopeErr != nil {
		return "", scopeErr
	}

	return city, nil
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
