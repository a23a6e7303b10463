package group

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/scope"
	"github.com/eglise-connect/platform/internal/shared/errors"
	"github.com/eglise-connect/platform/internal/shared/events"
	"github.com/eglise-connect/platform/internal/shared/metrics"
	"github.com/eglise-connect/platform/internal/shared/types"
)

// Handler provides HTTP handlers for FI groups
type Handler struct {
	repo     *Repository
	resolver *scope.Resolver
	bus      *events.Bus
}

// NewHandler creates a new group handler
func NewHandler(repo *Repository, resolver *scope.Resolver, bus *events.Bus) *Handler {
	return &Handler{repo: repo, resolver: resolver, bus: bus}
}

// Routes returns the group routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListGroups)
	r.Post("/", h.CreateGroup)

	r.Route("/{groupID}", func(r chi.Router) {
		r.Get("/", h.GetGroup)
		r.Put("/", h.UpdateGroup)
		r.Delete("/", h.DeleteGroup)

		r.Post("/members", h.AddMember)
		r.Delete("/members/{memberID}", h.RemoveMember)

		r.Get("/attendance", h.GetAttendance)
		r.Post("/attendance", h.MarkAttendance)
		r.Get("/attendance/rates", h.AttendanceRates)
	})

	return r
}

// ListGroups lists groups within the caller's resolved city scope
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	city, err := h.resolver.ResolvedCity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	filter := ListGroupsFilter{City: city}

	identity, err := h.resolver.Identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if !narrowListing(identity, &filter) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data":  []Group{},
			"total": 0,
			"city":  city,
		})
		return
	}

	groups, total, listErr := h.repo.List(r.Context(), filter)
	if listErr != nil {
		writeError(w, listErr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  groups,
		"total": total,
		"city":  city,
	})
}

// GetGroup gets a group by ID
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.loadScoped(r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, g)
}

// CreateGroup creates a new FI group
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolver.Identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if permErr := requireFILeadership(identity); permErr != nil {
		writeError(w, permErr)
		return
	}

	var req CreateGroupRequest
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Name == "" {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"name": "name is required",
		}))
		return
	}

	city := req.City
	if !access.HasCrossTenantScope(identity) || city == "" {
		city = identity.City
	}
	if city == "" || city == access.CityAll {
		writeError(w, errors.BadRequest("a concrete city is required"))
		return
	}

	g := &Group{
		ID:        types.NewID(),
		Name:      req.Name,
		City:      city,
		PiloteID:  req.PiloteID,
		SecteurID: req.SecteurID,
	}

	if createErr := h.repo.Create(r.Context(), g); createErr != nil {
		writeError(w, createErr)
		return
	}

	h.publish(r, identity, "group.created", map[string]any{
		"group_id": g.ID,
		"name":     g.Name,
		"city":     g.City,
	})

	writeJSON(w, http.StatusCreated, g)
}

// UpdateGroup updates a group
func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.loadScoped(r)
	if err != nil {
		writeError(w, err)
		return
	}

	identity, err := h.resolver.Identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if permErr := requireFILeadership(identity); permErr != nil {
		writeError(w, permErr)
		return
	}

	var req UpdateGroupRequest
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Name != nil {
		g.Name = *req.Name
	}
	if req.PiloteID != nil {
		g.PiloteID = req.PiloteID
	}
	if req.SecteurID != nil {
		g.SecteurID = req.SecteurID
	}

	if updateErr := h.repo.Update(r.Context(), g); updateErr != nil {
		writeError(w, updateErr)
		return
	}

	writeJSON(w, http.StatusOK, g)
}

// DeleteGroup deletes a group
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.loadScoped(r)
	if err != nil {
		writeError(w, err)
		return
	}

	identity, err := h.resolver.Identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if permErr := requireFILeadership(identity); permErr != nil {
		writeError(w, permErr)
		return
	}

	if delErr := h.repo.Delete(r.Context(), g.ID); delErr != nil {
		writeError(w, delErr)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddMember adds a member to a group
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	g, err := h.loadScoped(r)
	if err != nil {
		writeError(w, err)
		return
	}

	identity, err := h.resolver.Identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if permErr := h.requireGroupWrite(identity, g); permErr != nil {
		writeError(w, permErr)
		return
	}

	var req struct {
		MemberID string `json:"member_id"`
	}
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	memberID, parseErr := types.ParseID(req.MemberID)
	if parseErr != nil {
		writeError(w, errors.BadRequest("invalid member_id"))
		return
	}

	if addErr := h.repo.AddMember(r.Context(), g.ID, memberID); addErr != nil {
		writeError(w, addErr)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember removes a member from a group
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	g, err := h.loadScoped(r)
	if err != nil {
		writeError(w, err)
		return
	}

	identity, err := h.resolver.Identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if permErr := h.requireGroupWrite(identity, g); permErr != nil {
		writeError(w, permErr)
		return
	}

	memberID, parseErr := types.ParseID(chi.URLParam(r, "memberID"))
	if parseErr != nil {
		writeError(w, errors.BadRequest("invalid member ID"))
		return
	}

	if rmErr := h.repo.RemoveMember(r.Context(), g.ID, memberID); rmErr != nil {
		writeError(w, rmErr)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetAttendance returns attendance for a meeting date
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	g, err := h.loadScoped(r)
	if err != nil {
		writeError(w, err)
		return
	}

	date := r.URL.Query().Get("date")
	if _, parseErr := time.Parse("2006-01-02", date); parseErr != nil {
		writeError(w, errors.BadRequest("date must be YYYY-MM-DD"))
		return
	}

	records, getErr := h.repo.Attendance(r.Context(), g.ID, date)
	if getErr != nil {
		writeError(w, getErr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": records})
}

// MarkAttendance records presence for one meeting date. Re-marking a
// member on the same date overwrites the previous value.
func (h *Handler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	g, err := h.loadScoped(r)
	if err != nil {
		writeError(w, err)
		return
	}

	identity, err := h.resolver.Identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	allowed := access.EffectivePermission(identity, access.CapMarkAttendance)
	metrics.RecordCapabilityDecision(string(access.CapMarkAttendance), allowed)
	if !allowed {
		writeError(w, errors.Forbidden("attendance marking is not permitted for this account"))
		return
	}

	if permErr := h.requireGroupWrite(identity, g); permErr != nil {
		writeError(w, permErr)
		return
	}

	var req MarkAttendanceRequest
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if _, parseErr := time.Parse("2006-01-02", req.MeetingDate); parseErr != nil {
		writeError(w, errors.BadRequest("meeting_date must be YYYY-MM-DD"))
		return
	}
	if len(req.Entries) == 0 {
		writeError(w, errors.BadRequest("entries are required"))
		return
	}

	if markErr := h.repo.MarkAttendance(r.Context(), g.ID, req.MeetingDate, req.Entries, identity.ID); markErr != nil {
		writeError(w, markErr)
		return
	}

	metrics.RecordAttendanceMarked(g.City)
	h.publish(r, identity, "group.attendance_marked", map[string]any{
		"group_id":     g.ID,
		"meeting_date": req.MeetingDate,
		"entries":      len(req.Entries),
	})

	w.WriteHeader(http.StatusNoContent)
}

// AttendanceRates returns the per-meeting presence ratio for a group
func (h *Handler) AttendanceRates(w http.ResponseWriter, r *http.Request) {
	g, err := h.loadScoped(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rates, getErr := h.repo.AttendanceRate(r.Context(), g.ID)
	if getErr != nil {
		writeError(w, getErr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": rates})
}

// loadScoped loads a group and verifies it falls within the caller's
// resolved city scope.
func (h *Handler) loadScoped(r *http.Request) (*Group, error) {
	id, err := types.ParseID(chi.URLParam(r, "groupID"))
	if err != nil {
		return nil, errors.BadRequest("invalid group ID")
	}

	g, getErr := h.repo.Get(r.Context(), id)
	if getErr != nil {
		return nil, getErr
	}

	city, scopeErr := h.resolver.ResolvedCity(r)
	if scopeErr != nil {
		return nil, scopeErr
	}

	if city != access.CityAll && g.City != city {
		return nil, errors.OutOfScope("group", id.String())
	}

	return g, nil
}

// narrowListing restricts the filter for operational FI roles using the
// same criteria as the write gate: a pilote sees exactly its assigned
// group, a sector lead only its sector. Returns false when the role has
// no assignment and must see nothing.
func narrowListing(identity *access.Identity, filter *ListGroupsFilter) bool {
	switch identity.Role {
	case access.RolePiloteFI:
		if identity.AssignedFIID == nil {
			return false
		}
		filter.ID = identity.AssignedFIID
	case access.RoleResponsableSecteur:
		if identity.AssignedSecteurID == nil {
			return false
		}
		filter.SecteurID = identity.AssignedSecteurID
	}
	return true
}

// requireFILeadership gates group CRUD to the FI supervisory chain
func requireFILeadership(identity *access.Identity) error {
	switch identity.Role {
	case access.RoleSuperAdmin, access.RolePasteur, access.RoleResponsableEglise,
		access.RoleAdministrateur, access.RoleSuperviseurFI:
		return nil
	}
	return errors.Forbidden("group management requires FI leadership")
}

// requireGroupWrite gates membership and attendance writes. A pilote may
// only touch the group it is assigned to; sector leads only groups in
// their sector.
func (h *Handler) requireGroupWrite(identity *access.Identity, g *Group) error {
	switch identity.Role {
	case access.RoleSuperAdmin, access.RolePasteur, access.RoleResponsableEglise,
		access.RoleAdministrateur, access.RoleSuperviseurFI:
		return nil
	case access.RolePiloteFI:
		if identity.AssignedFIID != nil && *identity.AssignedFIID == g.ID {
			return nil
		}
	case access.RoleResponsableSecteur:
		if identity.AssignedSecteurID != nil && g.SecteurID != nil && *identity.AssignedSecteurID == *g.SecteurID {
			return nil
		}
	}
	return errors.Forbidden("this group is outside your assignment")
}

func (h *Handler) publish(r *http.Request, identity *access.Identity, eventType string, data map[string]any) {
	if h.bus == nil || identity == nil {
		return
	}
	event := events.NewEvent(eventType, "group", data).
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
