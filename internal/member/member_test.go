package member

import (
	"testing"

	"github.com/eglise-connect/platform/internal/access"
)

func TestRequireWriteAccessVisitor(t *testing.T) {
	h := &Handler{}

	tests := []struct {
		name    string
		id      *access.Identity
		allowed bool
	}{
		{"accueil manages visitors", &access.Identity{Role: access.RoleAccueil}, true},
		{"referent manages visitors", &access.Identity{Role: access.RoleReferent}, true},
		{"pilote_fi does not", &access.Identity{Role: access.RolePiloteFI}, false},
		{"override revokes", &access.Identity{
			Role:                 access.RoleAccueil,
			DashboardPermissions: map[access.Capability]bool{access.CapManageVisitors: false},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.requireWriteAccess(tt.id, KindVisitor)
			if tt.allowed && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if !tt.allowed && err == nil {
				t.Error("Expected a forbidden error")
			}
		})
	}
}

func TestRequireWriteAccessMember(t *testing.T) {
	h := &Handler{}

	if err := h.requireWriteAccess(&access.Identity{Role: access.RoleSecretariat}, KindMember); err != nil {
		t.Errorf("Secretariat should manage members, got %v", err)
	}
	if err := h.requireWriteAccess(&access.Identity{Role: access.RoleAccueil}, KindMember); err == nil {
		t.Error("Accueil should not manage regular members")
	}
}
