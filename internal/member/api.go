package member

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/scope"
	"github.com/eglise-connect/platform/internal/shared/errors"
	"github.com/eglise-connect/platform/internal/shared/events"
	"github.com/eglise-connect/platform/internal/shared/metrics"
	"github.com/eglise-connect/platform/internal/shared/types"
)

// Handler provides HTTP handlers for the member registry
type Handler struct {
	repo     *Repository
	resolver *scope.Resolver
	bus      *events.Bus
}

// NewHandler creates a new member handler
func NewHandler(repo *Repository, resolver *scope.Resolver, bus *events.Bus) *Handler {
	return &Handler{repo: repo, resolver: resolver, bus: bus}
}

// Routes returns the member routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListMembers)
	r.Post("/", h.CreateMember)

	r.Route("/{memberID}", func(r chi.Router) {
		r.Get("/", h.GetMember)
		r.Put("/", h.UpdateMember)
		r.Delete("/", h.DeleteMember)
	})

	return r
}

// ListMembers lists members within the caller's resolved city scope.
// The city filter comes from the scope resolution, never from the query
// string.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	city, err := h.resolver.ResolvedCity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	filter := ListMembersFilter{
		City:   city,
		Search: r.URL.Query().Get("search"),
	}

	if k := r.URL.Query().Get("kind"); k != "" {
		kind := Kind(k)
		filter.Kind = &kind
	}
	if m := r.URL.Query().Get("arrival_month"); m != "" {
		filter.ArrivalMonth = &m
	}
	if f := r.URL.Query().Get("follow_up"); f != "" {
		followUp := FollowUp(f)
		filter.FollowUp = &followUp
	}

	members, total, listErr := h.repo.List(r.Context(), filter)
	if listErr != nil {
		writeError(w, listErr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  members,
		"total": total,
		"city":  city,
	})
}

// GetMember gets a member by ID
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	m, err := h.loadScoped(r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// CreateMember registers a member or visitor
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolver.Identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req CreateMemberRequest
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Kind == "" {
		req.Kind = KindMember
	}

	if permErr := h.requireWriteAccess(identity, req.Kind); permErr != nil {
		writeError(w, permErr)
		return
	}

	if req.FirstName == "" || req.LastName == "" {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"first_name": "first_name is required",
			"last_name":  "last_name is required",
		}))
		return
	}

	// Single-tenant roles write into their own city regardless of input.
	city := req.City
	if !access.HasCrossTenantScope(identity) || city == "" {
		city = identity.City
	}
	if city == "" || city == access.CityAll {
		writeError(w, errors.BadRequest("a concrete city is required"))
		return
	}

	m := &Member{
		ID:           types.NewID(),
		Kind:         req.Kind,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		City:         city,
		Contact:      req.Contact,
		Address:      req.Address,
		ArrivalMonth: req.ArrivalMonth,
		FollowUp:     FollowUpNone,
		Notes:        req.Notes,
	}
	if m.Kind == KindVisitor {
		m.FollowUp = FollowUpToCall
	}
	if m.Address.Country == "" {
		m.Address.Country = "FR"
	}

	if createErr := h.repo.Create(r.Context(), m); createErr != nil {
		writeError(w, createErr)
		return
	}

	h.publish(r, identity, "member.created", map[string]any{
		"member_id": m.ID,
		"kind":      m.Kind,
		"city":      m.City,
	})

	writeJSON(w, http.StatusCreated, m)
}

// UpdateMember updates a member
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	m, err := h.loadScoped(r)
	if err != nil {
		writeError(w, err)
		return
	}

	identity, err := h.resolver.Identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if permErr := h.requireWriteAccess(identity, m.Kind); permErr != nil {
		writeError(w, permErr)
		return
	}

	var req UpdateMemberRequest
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Kind != nil {
		m.Kind = *req.Kind
	}
	if req.FirstName != nil {
		m.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		m.LastName = *req.LastName
	}
	if req.City != nil && access.HasCrossTenantScope(identity) {
		m.City = *req.City
	}
	if req.Contact != nil {
		m.Contact = *req.Contact
	}
	if req.Address != nil {
		m.Address = *req.Address
	}
	if req.ArrivalMonth != nil {
		m.ArrivalMonth = req.ArrivalMonth
	}
	if req.FollowUp != nil {
		m.FollowUp = *req.FollowUp
	}
	if req.Notes != nil {
		m.Notes = *req.Notes
	}

	if updateErr := h.repo.Update(r.Context(), m); updateErr != nil {
		writeError(w, updateErr)
		return
	}

	h.publish(r, identity, "member.updated", map[string]any{
		"member_id": m.ID,
		"kind":      m.Kind,
		"follow_up": m.FollowUp,
	})

	writeJSON(w, http.StatusOK, m)
}

// DeleteMember deletes a member
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	m, err := h.loadScoped(r)
	if err != nil {
		writeError(w, err)
		return
	}

	identity, err := h.resolver.Identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if permErr := h.requireWriteAccess(identity, m.Kind); permErr != nil {
		writeError(w, permErr)
		return
	}

	if delErr := h.repo.Delete(r.Context(), m.ID); delErr != nil {
		writeError(w, delErr)
		return
	}

	h.publish(r, identity, "member.deleted", map[string]any{
		"member_id": m.ID,
		"kind":      m.Kind,
	})

	w.WriteHeader(http.StatusNoContent)
}

// loadScoped loads a member and verifies it falls within the caller's
// resolved city scope.
func (h *Handler) loadScoped(r *http.Request) (*Member, error) {
	id, err := types.ParseID(chi.URLParam(r, "memberID"))
	if err != nil {
		return nil, errors.BadRequest("invalid member ID")
	}

	m, getErr := h.repo.Get(r.Context(), id)
	if getErr != nil {
		return nil, getErr
	}

	city, scopeErr := h.resolver.ResolvedCity(r)
	if scopeErr != nil {
		return nil, scopeErr
	}

	// Out-of-scope rows look like missing rows, not forbidden ones.
	if city != access.CityAll && m.City != city {
		return nil, errors.OutOfScope("member", id.String())
	}

	return m, nil
}

// requireWriteAccess gates writes: visitor rows need the visitor
// management capability, member rows need an administrative role.
func (h *Handler) requireWriteAccess(identity *access.Identity, kind Kind) error {
	if kind == KindVisitor {
		allowed := access.EffectivePermission(identity, access.CapManageVisitors)
		metrics.RecordCapabilityDecision(string(access.CapManageVisitors), allowed)
		if !allowed {
			return errors.Forbidden("visitor management is not permitted for this account")
		}
		return nil
	}

	switch identity.Role {
	case access.RoleSuperAdmin, access.RolePasteur, access.RoleResponsableEglise, access.RoleAdministrateur, access.RoleSecretariat:
		return nil
	}
	return errors.Forbidden("member management requires an administrative role")
}

func (h *Handler) publish(r *http.Request, identity *access.Identity, eventType string, data map[string]any) {
	if h.bus == nil || identity == nil {
		return
	}
	event := events.NewEvent(eventType, "member", data).
		WithActor(identity.ID, "user", identity.City)
	h.bus.Publish(r.Context(), event)
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
