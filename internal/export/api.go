package export

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/adapters/legacy"
	"github.com/eglise-connect/platform/internal/member"
	"github.com/eglise-connect/platform/internal/scope"
	"github.com/eglise-connect/platform/internal/shared/errors"
	"github.com/eglise-connect/platform/internal/shared/events"
	"github.com/eglise-connect/platform/internal/shared/metrics"
	"github.com/eglise-connect/platform/internal/shared/types"
)

// Handler provides HTTP handlers for exports and imports
type Handler struct {
	members  *member.Repository
	resolver *scope.Resolver
	legacy   *legacy.Client
	bus      *events.Bus
}

// NewHandler creates a new export handler. The legacy client may be nil
// when the import adapter is disabled.
func NewHandler(members *member.Repository, resolver *scope.Resolver, legacyClient *legacy.Client, bus *events.Bus) *Handler {
	return &Handler{members: members, resolver: resolver, legacy: legacyClient, bus: bus}
}

// Routes returns the export routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/members.csv", h.ExportMembers)
	r.Post("/members.csv", h.ImportMembers)
	r.Post("/legacy/members", h.ImportLegacyMembers)

	return r
}

// ExportMembers streams the members in the caller's scope as CSV.
// Gated by the export capability.
func (h *Handler) ExportMembers(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolver.Identity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	allowed := access.EffectivePermission(identity, access.CapExportData)
	metrics.RecordCapabilityDecision(string(access.CapExportData), allowed)
	if !allowed {
		writeError(w, errors.Forbidden("data export is not permitted for this account"))
		return
	}

	city, scopeErr := h.resolver.ResolvedCity(r)
	if scopeErr != nil {
		writeError(w, scopeErr)
		return
	}

	// Page through the registry; exports are bounded but can exceed one
	// listing page.
	var all []member.Member
	offset := 0
	for {
		page, total, listErr := h.members.List(r.Context(), member.ListMembersFilter{
			City: city, Limit: 200, Offset: offset,
		})
		if listErr != nil {
			writeError(w, listErr)
			return
		}
		all = append(all, page...)
		offset += len(page)
		if offset >= total || len(page) == 0 {
			break
		}
	}

	filename := fmt.Sprintf("membres-%s-%s.csv", city, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if writeErr := WriteMembers(w, all); writeErr != nil {
		// Headers are already out; nothing sensible left to send.
		return
	}

	h.publish(r, identity, "export.generated", map[string]any{
		"city":  city,
		"rows":  len(all),
		"which": "members",
	})
}

// ImportMembers creates members from a CSV upload
func (h *Handler) ImportMembers(w http.ResponseWriter, r *http.Request) {
	identity, err := h.requireImportAccess(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rows, skipped, parseErr := ReadMembers(r.Body)
	if parseErr != nil {
		writeError(w, errors.BadRequest(parseErr.Error()))
		return
	}

	created, importErr := h.createMembers(r, identity, rows)
	if importErr != nil {
		writeError(w, importErr)
		return
	}

	metrics.RecordMembersImported("csv", created)
	h.publish(r, identity, "export.members_imported", map[string]any{
		"source":  "csv",
		"created": created,
		"skipped": skipped,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"created": created,
		"skipped": skipped,
	})
}

// ImportLegacyMembers pulls member rows from the previous membership
// software and creates them in the registry.
func (h *Handler) ImportLegacyMembers(w http.ResponseWriter, r *http.Request) {
	identity, err := h.requireImportAccess(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.legacy == nil {
		writeError(w, errors.BadRequest("legacy import is not enabled"))
		return
	}

	var req struct {
		City string `json:"city"`
	}
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	records, fetchErr := h.legacy.FetchMembers(r.Context(), req.City)
	if fetchErr != nil {
		writeError(w, errors.Wrap(fetchErr, "failed to fetch legacy members"))
		return
	}

	rows := make([]ParsedRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, ParsedRow{
			FirstName:    rec.FirstName,
			LastName:     rec.LastName,
			City:         rec.City,
			Email:        rec.Email,
			Phone:        rec.Phone,
			ArrivalMonth: rec.ArrivalMonth,
			Kind:         member.KindMember,
		})
	}

	created, importErr := h.createMembers(r, identity, rows)
	if importErr != nil {
		writeError(w, importErr)
		return
	}

	metrics.RecordMembersImported("legacy", created)
	h.publish(r, identity, "export.members_imported", map[string]any{
		"source":  "legacy",
		"created": created,
		"city":    req.City,
	})

	writeJSON(w, http.StatusOK, map[string]any{"created": created})
}

func (h *Handler) createMembers(r *http.Request, identity *access.Identity, rows []ParsedRow) (int, error) {
	created := 0
	for _, row := range rows {
		city := row.City
		if !access.HasCrossTenantScope(identity) || city == "" {
			city = identity.City
		}
		if city == "" || city == access.CityAll {
			continue
		}

		m := &member.Member{
			ID:        types.NewID(),
			Kind:      row.Kind,
			FirstName: row.FirstName,
			LastName:  row.LastName,
			City:      city,
			Contact:   types.ContactInfo{Email: row.Email, Phone: row.Phone},
			Address:   types.Address{Country: "FR"},
			FollowUp:  member.FollowUpNone,
		}
		if row.ArrivalMonth != "" {
			month := row.ArrivalMonth
			m.ArrivalMonth = &month
		}
		if m.Kind == member.KindVisitor {
			m.FollowUp = member.FollowUpToCall
		}

		if err := h.members.Create(r.Context(), m); err != nil {
			return created, err
		}
		created++
	}

	return created, nil
}

// requireImportAccess gates imports to administrative roles holding the
// export capability.
func (h *Handler) requireImportAccess(r *http.Request) (*access.Identity, error) {
	identity, err := h.resolver.Identity(r)
	if err != nil {
		return nil, err
	}

	switch identity.Role {
	case access.RoleSuperAdmin, access.RolePasteur, access.RoleResponsableEglise, access.RoleAdministrateur:
	default:
		return nil, errors.Forbidden("imports require an administrative role")
	}

	allowed := access.EffectivePermission(identity, access.CapExportData)
	metrics.RecordCapabilityDecision(string(access.CapExportData), allowed)
	if !allowed {
		return nil, errors.Forbidden("data export is not permitted for this account")
	}

	return identity, nil
}

func (h *Handler) publish(r *http.Request, identity *access.Identity, eventType string, data map[string]any) {
	if h.bus == nil || identity == nil {
		return
	}
	event := events.NewEvent(eventType, "export", data).
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
