package access

import "testing"

func TestEffectivePermissionNilIdentity(t *testing.T) {
	if EffectivePermission(nil, CapSeeCharts) {
		t.Error("Nil identity should have no capabilities")
	}
}

func TestEffectivePermissionUnknownKeyDenied(t *testing.T) {
	for role := range RoleCapabilities {
		id := &Identity{Username: "u", Role: role}
		if EffectivePermission(id, Capability("nonexistent_key")) {
			t.Errorf("Unknown capability should be denied for role %s", role)
		}
	}
}

func TestEffectivePermissionRoleDefaults(t *testing.T) {
	tests := []struct {
		role     Role
		key      Capability
		expected bool
	}{
		{RoleSuperAdmin, CapExportData, true},
		{RoleSuperAdmin, CapManageUsers, true},
		{RoleReferent, CapSeeCharts, false},
		{RoleReferent, CapMarkAttendance, true},
		{RoleAccueil, CapManageVisitors, true},
		{RoleSecretariat, CapExportData, false},
		{RolePiloteFI, CapMarkAttendance, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.key), func(t *testing.T) {
			id := &Identity{Username: "u", Role: tt.role}
			if got := EffectivePermission(id, tt.key); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEffectivePermissionOverrideWins(t *testing.T) {
	// Role default for referent is can_see_charts: false.
	id := &Identity{
		Username:             "marc",
		Role:                 RoleReferent,
		DashboardPermissions: map[Capability]bool{CapSeeCharts: true},
	}

	if !EffectivePermission(id, CapSeeCharts) {
		t.Error("Explicit override should win over the role default")
	}

	// And the restricting direction.
	id = &Identity{
		Username:             "anne",
		Role:                 RoleSuperAdmin,
		DashboardPermissions: map[Capability]bool{CapExportData: false},
	}
	if EffectivePermission(id, CapExportData) {
		t.Error("Explicit false override should deny a default-granted capability")
	}
}

func TestEffectivePermissionOverrideOutsideRoleSetIgnored(t *testing.T) {
	// can_manage_users is not in the referent capability set; an override
	// for it must never be evaluated.
	id := &Identity{
		Username:             "marc",
		Role:                 RoleReferent,
		DashboardPermissions: map[Capability]bool{CapManageUsers: true},
	}

	if EffectivePermission(id, CapManageUsers) {
		t.Error("Override for a key outside the role's set should be ignored")
	}
}

func TestEffectivePermissionAbsentKeyFallsBack(t *testing.T) {
	// Override map present but silent on can_mark_attendance.
	id := &Identity{
		Username:             "lea",
		Role:                 RoleReferent,
		DashboardPermissions: map[Capability]bool{CapSeeCharts: true},
	}

	if !EffectivePermission(id, CapMarkAttendance) {
		t.Error("Absent override key should fall back to the role default")
	}
}
