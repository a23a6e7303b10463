package scope

import (
	"testing"
	"time"

	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/shared/types"
)

func testIdentity(role access.Role, city string) *access.Identity {
	return &access.Identity{
		ID:       types.NewID(),
		Username: "test-" + string(role),
		Role:     role,
		City:     city,
	}
}

func TestSetCityCrossTenant(t *testing.T) {
	cities := []string{"Paris", "Lyon"}
	s := NewSession(testIdentity(access.RoleSuperAdmin, ""), 0)

	s.SetCity("Lyon", cities)
	if got := s.Scope().SelectedCity; got != "Lyon" {
		t.Errorf("Expected 'Lyon', got '%s'", got)
	}

	s.SetCity("Atlantis", cities)
	if got := s.Scope().SelectedCity; got != access.CityAll {
		t.Errorf("Unknown city should collapse to '%s', got '%s'", access.CityAll, got)
	}
}

func TestSetCityIgnoredForSingleTenantRole(t *testing.T) {
	cities := []string{"Paris", "Lyon"}
	s := NewSession(testIdentity(access.RoleReferent, "Paris"), 0)

	s.SetCity("Lyon", cities)

	if got := s.Scope().SelectedCity; got != access.CityAll {
		t.Errorf("Selection should stay at default for referent, got '%s'", got)
	}
}

func TestSetDepartmentGuard(t *testing.T) {
	s := NewSession(testIdentity(access.RoleResponsableEglise, "Paris"), 0)
	s.SetDepartment(access.DepartmentFamillesImpact)
	if got := s.Scope().SelectedDepartment; got != access.DepartmentFamillesImpact {
		t.Errorf("Expected '%s', got '%s'", access.DepartmentFamillesImpact, got)
	}

	s = NewSession(testIdentity(access.RolePiloteFI, "Paris"), 0)
	s.SetDepartment(access.DepartmentPromotions)
	if got := s.Scope().SelectedDepartment; got != access.DepartmentNone {
		t.Errorf("Department-bound role should not toggle, got '%s'", got)
	}
}

func TestBeginImpersonationRankCheck(t *testing.T) {
	admin := testIdentity(access.RoleSuperAdmin, "")
	referent := testIdentity(access.RoleReferent, "Lyon")

	s := NewSession(admin, 0)
	if err := s.BeginImpersonation(referent); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := s.Identity().Role; got != access.RoleReferent {
		t.Errorf("Expected effective role 'referent', got '%s'", got)
	}
	if !s.IsImpersonating() {
		t.Error("Session should report an active impersonation frame")
	}

	// The other direction is rejected.
	s = NewSession(referent.Clone(), 0)
	if err := s.BeginImpersonation(admin); err == nil {
		t.Error("Lower-ranked role should not impersonate a higher-ranked one")
	}
	if got := s.Identity().Role; got != access.RoleReferent {
		t.Errorf("Rejected impersonation should leave identity unchanged, got '%s'", got)
	}
}

func TestBeginImpersonationEqualRankRejected(t *testing.T) {
	s := NewSession(testIdentity(access.RolePasteur, ""), 0)
	if err := s.BeginImpersonation(testIdentity(access.RoleResponsableEglise, "Paris")); err == nil {
		t.Error("Equal rank should be rejected")
	}
}

func TestImpersonationResetsScope(t *testing.T) {
	cities := []string{"Paris", "Lyon"}
	s := NewSession(testIdentity(access.RoleSuperAdmin, ""), 0)
	s.SetCity("Lyon", cities)

	if err := s.BeginImpersonation(testIdentity(access.RoleReferent, "Lyon")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := s.Scope().SelectedCity; got != access.CityAll {
		t.Errorf("Impersonation should reset the city selection, got '%s'", got)
	}
}

func TestEndImpersonationRestoresOriginal(t *testing.T) {
	admin := testIdentity(access.RoleSuperAdmin, "")
	s := NewSession(admin, 0)

	if err := s.BeginImpersonation(testIdentity(access.RoleAccueil, "Dijon")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	s.EndImpersonation()

	if s.IsImpersonating() {
		t.Error("Frame should be closed")
	}
	if got := s.Identity().ID; got != admin.ID {
		t.Error("Original identity should be restored")
	}

	// Ending twice is a no-op.
	s.EndImpersonation()
	if got := s.Identity().ID; got != admin.ID {
		t.Error("Repeated end should leave the original in place")
	}
}

func TestImpersonationExpiry(t *testing.T) {
	admin := testIdentity(access.RoleSuperAdmin, "")
	s := NewSession(admin, 30*time.Minute)

	start := time.Now()
	s.now = func() time.Time { return start }

	if err := s.BeginImpersonation(testIdentity(access.RoleReferent, "Lyon")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	s.now = func() time.Time { return start.Add(29 * time.Minute) }
	if !s.IsImpersonating() {
		t.Error("Frame should still be active before the deadline")
	}

	s.now = func() time.Time { return start.Add(31 * time.Minute) }
	if s.IsImpersonating() {
		t.Error("Frame should have expired")
	}
	if got := s.Identity().ID; got != admin.ID {
		t.Error("Expiry should restore the original identity")
	}
}

func TestStoreAttachReusesSession(t *testing.T) {
	store := NewStore(30 * time.Minute)
	identity := testIdentity(access.RoleSuperAdmin, "")

	first := store.Attach(identity)
	first.SetCity("Paris", []string{"Paris"})

	second := store.Attach(identity.Clone())
	if first != second {
		t.Fatal("Attach should return the existing session for the same user")
	}
	if got := second.Scope().SelectedCity; got != "Paris" {
		t.Errorf("Scope selection should survive re-attach, got '%s'", got)
	}
}

func TestStoreDrop(t *testing.T) {
	store := NewStore(0)
	identity := testIdentity(access.RoleReferent, "Lyon")

	store.Attach(identity)
	store.Drop(identity.ID)

	if store.Get(identity.ID) != nil {
		t.Error("Dropped session should be gone")
	}
}
