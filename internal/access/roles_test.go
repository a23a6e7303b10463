package access

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		input    string
		expected Role
		wantErr  bool
	}{
		{"super_admin", RoleSuperAdmin, false},
		{"pasteur", RolePasteur, false},
		{"referent", RoleReferent, false},
		{"berger", RoleReferent, false},
		{"pilote_fi", RolePiloteFI, false},
		{"secretariat", RoleSecretariat, false},
		{"", "", true},
		{"SUPER_ADMIN", "", true},
		{"janitor", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestParseDepartment(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"", false},
		{"promotions", false},
		{"familles-impact", false},
		{"evangelisation", false},
		{"finance", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseDepartment(tt.input)
			if tt.wantErr && err == nil {
				t.Errorf("Expected error for %q", tt.input)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestRankOrdering(t *testing.T) {
	if Rank(RoleSuperAdmin) <= Rank(RolePasteur) {
		t.Error("super_admin should outrank pasteur")
	}
	if Rank(RolePasteur) <= Rank(RoleSuperviseurFI) {
		t.Error("pasteur should outrank supervisory roles")
	}
	if Rank(RoleSuperviseurPromos) <= Rank(RoleReferent) {
		t.Error("supervisory roles should outrank operational roles")
	}
	if Rank(RolePasteur) != Rank(RoleResponsableEglise) {
		t.Error("pasteur and responsable_eglise share a rank")
	}
	if Rank(Role("unknown")) != 0 {
		t.Error("unknown roles should rank lowest")
	}
}

func TestCanImpersonate(t *testing.T) {
	tests := []struct {
		name     string
		original Role
		target   Role
		expected bool
	}{
		{"super_admin to referent", RoleSuperAdmin, RoleReferent, true},
		{"super_admin to pasteur", RoleSuperAdmin, RolePasteur, true},
		{"referent to super_admin", RoleReferent, RoleSuperAdmin, false},
		{"equal rank rejected", RolePasteur, RoleResponsableEglise, false},
		{"same role rejected", RoleSuperviseurFI, RoleSuperviseurFI, false},
		{"supervisory to operational", RoleSuperviseurFI, RolePiloteFI, true},
		{"operational to operational", RoleAccueil, RoleReferent, false},
		{"unknown target rejected", RoleSuperAdmin, Role("ghost"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanImpersonate(tt.original, tt.target); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestCrossTenantRoles(t *testing.T) {
	if !CrossTenant(RoleSuperAdmin) || !CrossTenant(RolePasteur) {
		t.Error("super_admin and pasteur are cross-tenant")
	}
	if CrossTenant(RoleResponsableEglise) {
		t.Error("responsable_eglise is not cross-tenant")
	}
	if !DepartmentToggle(RoleResponsableEglise) {
		t.Error("responsable_eglise may toggle department")
	}
	if DepartmentToggle(RoleReferent) {
		t.Error("referent may not toggle department")
	}
}
