package scope

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/shared/errors"
	"github.com/eglise-connect/platform/internal/shared/events"
	"github.com/eglise-connect/platform/internal/shared/metrics"
	"github.com/eglise-connect/platform/internal/shared/types"
)

// Handler provides HTTP endpoints for scope state and navigation
type Handler struct {
	resolver *Resolver
	bus      *events.Bus
	catalog  []access.NavItem
}

// NewHandler creates a new scope handler
func NewHandler(resolver *Resolver, bus *events.Bus) *Handler {
	return &Handler{
		resolver: resolver,
		bus:      bus,
		catalog:  access.DefaultCatalog(),
	}
}

// Routes returns the scope API routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetScope)
	r.Put("/city", h.SetCity)
	r.Put("/department", h.SetDepartment)
	r.Post("/impersonate", h.BeginImpersonation)
	r.Delete("/impersonate", h.EndImpersonation)
	r.Get("/navigation", h.Navigation)

	return r
}

type scopeResponse struct {
	Identity      *access.Identity    `json:"identity"`
	Scope         access.ScopeContext `json:"scope"`
	Impersonating bool                `json:"impersonating"`
	OriginalUser  string              `json:"original_user,omitempty"`
}

// GetScope returns the effective identity and current scope selection
func (h *Handler) GetScope(w http.ResponseWriter, r *http.Request) {
	session, err := h.resolver.Session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.scopeResponse(session))
}

// SetCity changes the selected city. The change is silently ignored for
// roles without cross-tenant scope; the response always reflects the
// current state.
func (h *Handler) SetCity(w http.ResponseWriter, r *http.Request) {
	session, err := h.resolver.Session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		City string `json:"city"`
	}
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	cities, listErr := h.resolver.CityNames(r.Context())
	if listErr != nil {
		writeError(w, listErr)
		return
	}

	session.SetCity(req.City, cities)
	writeJSON(w, http.StatusOK, h.scopeResponse(session))
}

// SetDepartment changes the selected department. Silently ignored for
// roles bound to a fixed department.
func (h *Handler) SetDepartment(w http.ResponseWriter, r *http.Request) {
	session, err := h.resolver.Session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Department string `json:"department"`
	}
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	dept, parseErr := access.ParseDepartment(req.Department)
	if parseErr != nil {
		writeError(w, errors.BadRequest(parseErr.Error()))
		return
	}

	session.SetDepartment(dept)
	writeJSON(w, http.StatusOK, h.scopeResponse(session))
}

// BeginImpersonation switches the session to a lower-ranked identity.
// A rank violation is rejected with 403; this is the one scope mutation
// that surfaces an error instead of no-opping.
func (h *Handler) BeginImpersonation(w http.ResponseWriter, r *http.Request) {
	session, err := h.resolver.Session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	targetID, parseErr := types.ParseID(req.UserID)
	if parseErr != nil {
		writeError(w, errors.BadRequest("invalid user_id"))
		return
	}

	target, loadErr := h.resolver.identities.LoadIdentity(r.Context(), targetID)
	if loadErr != nil {
		writeError(w, errors.Wrap(loadErr, "failed to load impersonation target"))
		return
	}
	if target == nil {
		writeError(w, errors.NotFound("user", req.UserID))
		return
	}

	original := session.Identity()
	if impErr := session.BeginImpersonation(target); impErr != nil {
		metrics.RecordImpersonation(false)
		writeError(w, impErr)
		return
	}

	metrics.RecordImpersonation(true)
	h.publish(r.Context(), original, "scope.impersonation_started", map[string]any{
		"target_user_id": target.ID,
		"target_role":    target.Role,
	})

	writeJSON(w, http.StatusOK, h.scopeResponse(session))
}

// EndImpersonation restores the original identity. No-op when the session
// is not impersonating.
func (h *Handler) EndImpersonation(w http.ResponseWriter, r *http.Request) {
	session, err := h.resolver.Session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if session.IsImpersonating() {
		impersonated := session.Identity()
		original := session.Original()
		session.EndImpersonation()
		h.publish(r.Context(), original, "scope.impersonation_ended", map[string]any{
			"target_user_id": impersonated.ID,
			"target_role":    impersonated.Role,
		})
	}

	writeJSON(w, http.StatusOK, h.scopeResponse(session))
}

// Navigation resolves the navigation items visible to the effective
// identity under the current scope.
func (h *Handler) Navigation(w http.ResponseWriter, r *http.Request) {
	session, err := h.resolver.Session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	identity := session.Identity()
	sc := session.Scope()

	cities, listErr := h.resolver.CityNames(r.Context())
	if listErr != nil {
		writeError(w, listErr)
		return
	}

	items := access.VisibleItems(identity, sc, h.catalog)
	metrics.RecordNavigationResolution(string(identity.Role))

	writeJSON(w, http.StatusOK, map[string]any{
		"items":               items,
		"resolved_city":       access.ResolveCity(identity, sc, cities),
		"resolved_department": access.ResolveDepartment(identity, sc),
	})
}

func (h *Handler) scopeResponse(s *Session) scopeResponse {
	resp := scopeResponse{
		Identity:      s.Identity(),
		Scope:         s.Scope(),
		Impersonating: s.IsImpersonating(),
	}
	if original := s.Original(); original != nil {
		resp.OriginalUser = original.Username
	}
	return resp
}

func (h *Handler) publish(ctx context.Context, actor *access.Identity, eventType string, data map[string]any) {
	if h.bus == nil || actor == nil {
		return
	}
	event := events.NewEvent(eventType, "scope", data).
		WithActor(actor.ID, "user", actor.City)
	if err := h.bus.Publish(ctx, event); err != nil {
		// Scope changes must not fail because the event store is down.
		return
	}
}

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
