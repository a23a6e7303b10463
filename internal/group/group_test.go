package group

import (
	"testing"

	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/shared/types"
)

func TestRequireFILeadership(t *testing.T) {
	tests := []struct {
		role    access.Role
		allowed bool
	}{
		{access.RoleSuperviseurFI, true},
		{access.RoleResponsableEglise, true},
		{access.RoleSuperAdmin, true},
		{access.RolePiloteFI, false},
		{access.RoleReferent, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			err := requireFILeadership(&access.Identity{Role: tt.role})
			if tt.allowed && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if !tt.allowed && err == nil {
				t.Error("Expected a forbidden error")
			}
		})
	}
}

func TestNarrowListing(t *testing.T) {
	groupID := types.NewID()
	secteurID := types.NewID()

	// A pilote lists exactly its assigned group, the same group the
	// write gate allows.
	filter := ListGroupsFilter{City: "Lyon"}
	pilote := &access.Identity{Role: access.RolePiloteFI, AssignedFIID: &groupID}
	if !narrowListing(pilote, &filter) {
		t.Fatal("Assigned pilote should see its group")
	}
	if filter.ID == nil || *filter.ID != groupID {
		t.Errorf("Expected filter on group %s, got %v", groupID, filter.ID)
	}

	// An unassigned pilote sees nothing, not the whole city.
	filter = ListGroupsFilter{City: "Lyon"}
	if narrowListing(&access.Identity{Role: access.RolePiloteFI}, &filter) {
		t.Error("Unassigned pilote should see no groups")
	}

	// A sector lead is narrowed to its sector.
	filter = ListGroupsFilter{City: "Lyon"}
	lead := &access.Identity{Role: access.RoleResponsableSecteur, AssignedSecteurID: &secteurID}
	if !narrowListing(lead, &filter) {
		t.Fatal("Assigned sector lead should see its sector")
	}
	if filter.SecteurID == nil || *filter.SecteurID != secteurID {
		t.Errorf("Expected filter on sector %s, got %v", secteurID, filter.SecteurID)
	}

	// An unassigned sector lead sees nothing.
	filter = ListGroupsFilter{City: "Lyon"}
	if narrowListing(&access.Identity{Role: access.RoleResponsableSecteur}, &filter) {
		t.Error("Unassigned sector lead should see no groups")
	}

	// Supervisory roles keep the unnarrowed city listing.
	filter = ListGroupsFilter{City: "Lyon"}
	if !narrowListing(&access.Identity{Role: access.RoleSuperviseurFI}, &filter) {
		t.Fatal("Supervisor should see the city listing")
	}
	if filter.ID != nil || filter.SecteurID != nil {
		t.Error("Supervisor listing should not be narrowed")
	}
}

func TestRequireGroupWriteAssignments(t *testing.T) {
	h := &Handler{}

	groupID := types.NewID()
	secteurID := types.NewID()
	g := &Group{ID: groupID, SecteurID: &secteurID}

	// A pilote may only write to its assigned group.
	pilote := &access.Identity{Role: access.RolePiloteFI, AssignedFIID: &groupID}
	if err := h.requireGroupWrite(pilote, g); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	otherID := types.NewID()
	pilote.AssignedFIID = &otherID
	if err := h.requireGroupWrite(pilote, g); err == nil {
		t.Error("Pilote should not write to a foreign group")
	}

	// A sector lead may only write within its sector.
	lead := &access.Identity{Role: access.RoleResponsableSecteur, AssignedSecteurID: &secteurID}
	if err := h.requireGroupWrite(lead, g); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	lead.AssignedSecteurID = &otherID
	if err := h.requireGroupWrite(lead, g); err == nil {
		t.Error("Sector lead should not write outside its sector")
	}

	// Supervisors are unrestricted.
	if err := h.requireGroupWrite(&access.Identity{Role: access.RoleSuperviseurFI}, g); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
