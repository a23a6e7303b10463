package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/scope"
	"github.com/eglise-connect/platform/internal/shared/auth"
	"github.com/eglise-connect/platform/internal/shared/types"
)

type stubLoader struct {
	identity *access.Identity
}

func (s *stubLoader) LoadIdentity(ctx context.Context, id types.ID) (*access.Identity, error) {
	return s.identity, nil
}

func requestFor(identity *access.Identity) (*Handler, *http.Request) {
	store := scope.NewStore(0)
	store.Attach(identity)
	resolver := scope.NewResolver(store, &stubLoader{identity: identity}, nil)
	h := NewHandler(nil, resolver)

	req := httptest.NewRequest(http.MethodGet, "/cohorts", nil)
	ctx := context.WithValue(req.Context(), auth.UserContextKey, &auth.User{
		ID:       identity.ID,
		Username: identity.Username,
		Role:     string(identity.Role),
		City:     identity.City,
	})
	return h, req.WithContext(ctx)
}

func TestGetCohortsDeniedByRoleDefault(t *testing.T) {
	// Referents have charts revoked by default.
	identity := &access.Identity{ID: types.NewID(), Username: "marc", Role: access.RoleReferent, City: "Lyon"}
	h, req := requestFor(identity)

	rec := httptest.NewRecorder()
	h.GetCohorts(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rec.Code)
	}
}

func TestGetCohortsOverrideGrants(t *testing.T) {
	identity := &access.Identity{
		ID:       types.NewID(),
		Username: "marc",
		Role:     access.RoleReferent,
		City:     "Lyon",
		DashboardPermissions: map[access.Capability]bool{
			access.CapSeeCharts: true,
		},
	}
	h, req := requestFor(identity)

	// With a nil service, a granted capability panics before responding;
	// check the gate directly instead.
	if _, err := h.requireCapability(req, access.CapSeeCharts); err != nil {
		t.Errorf("Override should open the gate, got %v", err)
	}
}

func TestRequireCapabilityUnauthenticated(t *testing.T) {
	store := scope.NewStore(0)
	resolver := scope.NewResolver(store, &stubLoader{}, nil)
	h := NewHandler(nil, resolver)

	req := httptest.NewRequest(http.MethodGet, "/overview", nil)
	if _, err := h.requireCapability(req, access.CapViewStats); err == nil {
		t.Error("Missing auth context should be rejected")
	}
}
