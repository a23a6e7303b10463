package identity

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/shared/types"
)

func TestUserIdentity(t *testing.T) {
	month := "2026-03"
	user := &User{
		ID:       types.NewID(),
		Username: "marc",
		Role:     access.RoleReferent,
		City:     "Lyon",
		AssignedMonth: &month,
		DashboardPermissions: map[access.Capability]bool{
			access.CapSeeCharts: true,
		},
	}

	id := user.Identity()

	if id.ID != user.ID {
		t.Error("ID should carry over")
	}
	if id.Role != access.RoleReferent {
		t.Errorf("Expected 'referent', got '%s'", id.Role)
	}
	if id.AssignedMonth == nil || *id.AssignedMonth != "2026-03" {
		t.Error("Assigned month should carry over")
	}

	// The override map feeds straight into the capability resolution.
	if !access.EffectivePermission(id, access.CapSeeCharts) {
		t.Error("Override from the user row should grant the capability")
	}
}

func TestUserIdentityNil(t *testing.T) {
	var user *User
	if user.Identity() != nil {
		t.Error("Nil user should convert to nil identity")
	}
}

func TestPasswordHashNotSerialized(t *testing.T) {
	user := &User{
		ID:           types.NewID(),
		Username:     "anne",
		PasswordHash: "$2a$10$secret",
		Role:         access.RoleSuperAdmin,
	}

	data, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, ok := decoded["password_hash"]; ok {
		t.Error("Password hash must never appear in JSON output")
	}
}

func TestParseListUsersFilter(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/users?search=marc&role=referent&city=Lyon&blocked=true&limit=25&offset=50", nil)

	filter := parseListUsersFilter(r)

	if filter.Search != "marc" {
		t.Errorf("Expected 'marc', got '%s'", filter.Search)
	}
	if filter.Role == nil || *filter.Role != "referent" {
		t.Error("Role filter should be set")
	}
	if filter.City == nil || *filter.City != "Lyon" {
		t.Error("City filter should be set")
	}
	if filter.Blocked == nil || !*filter.Blocked {
		t.Error("Blocked filter should be set")
	}
	if filter.Limit != 25 {
		t.Errorf("Expected limit 25, got %d", filter.Limit)
	}
	if filter.Offset != 50 {
		t.Errorf("Expected offset 50, got %d", filter.Offset)
	}

	// Absent and malformed values leave the filter open.
	r = httptest.NewRequest("GET", "/users?blocked=maybe&limit=abc", nil)
	filter = parseListUsersFilter(r)

	if filter.Role != nil || filter.City != nil || filter.Blocked != nil {
		t.Error("Absent or malformed filters should stay unset")
	}
	if filter.Limit != 0 || filter.Offset != 0 {
		t.Error("Malformed pagination should fall back to defaults")
	}
}

func TestReplacePermissionsRequestDecoding(t *testing.T) {
	// An explicit empty map and an absent field are different: the first
	// clears every override, the second decodes to nil.
	var req ReplacePermissionsRequest
	if err := json.Unmarshal([]byte(`{"permissions":{}}`), &req); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if req.Permissions == nil || len(req.Permissions) != 0 {
		t.Error("Empty object should decode to an empty, non-nil map")
	}

	req = ReplacePermissionsRequest{}
	if err := json.Unmarshal([]byte(`{}`), &req); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if req.Permissions != nil {
		t.Error("Absent field should decode to nil")
	}
}
