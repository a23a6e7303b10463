package access

import (
	"reflect"
	"testing"
)

func testCatalog() []NavItem {
	return []NavItem{
		{Path: "/dashboard", Roles: []Role{RoleReferent, RolePromotions}, Department: DepartmentPromotions},
		{Path: "/dashboard-superviseur-promos", Roles: []Role{RoleSuperviseurPromos}, Department: DepartmentPromotions},
		{Path: "/dashboard-fi", Roles: []Role{RolePiloteFI}, Department: DepartmentFamillesImpact},
		{Path: "/cities", Roles: []Role{RoleSuperAdmin, RolePasteur}},
		{Path: "/membres", Roles: []Role{RoleSuperAdmin, RolePasteur, RoleResponsableEglise}},
	}
}

func TestVisibleItemsNilIdentity(t *testing.T) {
	items := VisibleItems(nil, ScopeContext{}, testCatalog())
	if len(items) != 0 {
		t.Errorf("Expected empty slice for nil identity, got %d items", len(items))
	}
}

func TestVisibleItemsDeterminism(t *testing.T) {
	id := &Identity{Username: "marie", Role: RoleSuperviseurPromos, City: "Dijon"}
	sc := ScopeContext{}
	catalog := testCatalog()

	first := VisibleItems(id, sc, catalog)
	second := VisibleItems(id, sc, catalog)

	if !reflect.DeepEqual(first, second) {
		t.Error("Repeated resolution with unchanged inputs should be identical")
	}
}

func TestVisibleItemsRoleContainment(t *testing.T) {
	roles := []Role{
		RoleSuperAdmin, RolePasteur, RoleResponsableEglise,
		RoleSuperviseurPromos, RoleSuperviseurFI, RoleReferent,
		RolePromotions, RoleAccueil, RolePiloteFI,
		RoleResponsableSecteur, RoleResponsableEvangelisation,
	}

	catalog := DefaultCatalog()
	for _, role := range roles {
		t.Run(string(role), func(t *testing.T) {
			id := &Identity{Username: "u", Role: role, City: "Lyon"}
			for _, item := range VisibleItems(id, ScopeContext{}, catalog) {
				if !item.HasRole(role) {
					t.Errorf("Item %s returned for role %s not in its role set", item.Path, role)
				}
			}
		})
	}
}

func TestVisibleItemsDepartmentContainment(t *testing.T) {
	catalog := DefaultCatalog()
	tests := []struct {
		name string
		id   *Identity
		sc   ScopeContext
	}{
		{"fixed department role", &Identity{Role: RolePiloteFI, City: "Paris"}, ScopeContext{}},
		{"toggling role", &Identity{Role: RoleSuperAdmin}, ScopeContext{SelectedDepartment: DepartmentEvangelisation}},
		{"toggling role no selection", &Identity{Role: RolePasteur}, ScopeContext{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved := ResolveDepartment(tt.id, tt.sc)
			for _, item := range VisibleItems(tt.id, tt.sc, catalog) {
				if item.Department != DepartmentNone && item.Department != resolved {
					t.Errorf("Item %s has department %q, resolved is %q", item.Path, item.Department, resolved)
				}
			}
		})
	}
}

func TestVisibleItemsSuperviseurPromos(t *testing.T) {
	id := &Identity{Username: "claire", Role: RoleSuperviseurPromos, City: "Dijon"}

	items := VisibleItems(id, ScopeContext{}, testCatalog())

	if len(items) != 1 {
		t.Fatalf("Expected exactly 1 item, got %d", len(items))
	}
	if items[0].Path != "/dashboard-superviseur-promos" {
		t.Errorf("Expected '/dashboard-superviseur-promos', got '%s'", items[0].Path)
	}
}

func TestVisibleItemsAgnosticIgnoresSelectedDepartment(t *testing.T) {
	id := &Identity{Username: "admin", Role: RoleSuperAdmin}
	sc := ScopeContext{SelectedDepartment: DepartmentFamillesImpact}

	found := false
	for _, item := range VisibleItems(id, sc, testCatalog()) {
		if item.Path == "/cities" {
			found = true
		}
	}
	if !found {
		t.Error("Department-agnostic item should be visible regardless of selected department")
	}
}

func TestVisibleItemsPreservesCatalogOrder(t *testing.T) {
	id := &Identity{Username: "pasteur", Role: RolePasteur}
	sc := ScopeContext{SelectedDepartment: DepartmentPromotions}

	items := VisibleItems(id, sc, testCatalog())

	expected := []string{"/cities", "/membres"}
	if len(items) != len(expected) {
		t.Fatalf("Expected %d items, got %d", len(expected), len(items))
	}
	for i, path := range expected {
		if items[i].Path != path {
			t.Errorf("Position %d: expected '%s', got '%s'", i, path, items[i].Path)
		}
	}
}

func TestResolveDepartment(t *testing.T) {
	tests := []struct {
		name     string
		id       *Identity
		sc       ScopeContext
		expected Department
	}{
		{"nil identity", nil, ScopeContext{SelectedDepartment: DepartmentPromotions}, DepartmentNone},
		{"referent is fixed", &Identity{Role: RoleReferent}, ScopeContext{SelectedDepartment: DepartmentEvangelisation}, DepartmentPromotions},
		{"pilote_fi is fixed", &Identity{Role: RolePiloteFI}, ScopeContext{}, DepartmentFamillesImpact},
		{"super_admin follows selection", &Identity{Role: RoleSuperAdmin}, ScopeContext{SelectedDepartment: DepartmentEvangelisation}, DepartmentEvangelisation},
		{"responsable_eglise follows selection", &Identity{Role: RoleResponsableEglise}, ScopeContext{SelectedDepartment: DepartmentFamillesImpact}, DepartmentFamillesImpact},
		{"secretariat has no department", &Identity{Role: RoleSecretariat}, ScopeContext{}, DepartmentNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveDepartment(tt.id, tt.sc)
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestNormalizeCity(t *testing.T) {
	cities := []string{"Paris", "Lyon", "Dijon"}

	tests := []struct {
		selected string
		expected string
	}{
		{"Paris", "Paris"},
		{"Dijon", "Dijon"},
		{"all", CityAll},
		{"", CityAll},
		{"Marseille", CityAll},
		{"paris", CityAll},
	}

	for _, tt := range tests {
		t.Run(tt.selected, func(t *testing.T) {
			got := NormalizeCity(tt.selected, cities)
			if got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestResolveCity(t *testing.T) {
	cities := []string{"Paris", "Lyon"}

	tests := []struct {
		name     string
		id       *Identity
		sc       ScopeContext
		expected string
	}{
		{"referent sees own city", &Identity{Role: RoleReferent, City: "Lyon"}, ScopeContext{SelectedCity: "Paris"}, "Lyon"},
		{"super_admin follows selection", &Identity{Role: RoleSuperAdmin, City: "Paris"}, ScopeContext{SelectedCity: "Lyon"}, "Lyon"},
		{"super_admin unknown city collapses", &Identity{Role: RoleSuperAdmin}, ScopeContext{SelectedCity: "Atlantis"}, CityAll},
		{"nil identity", nil, ScopeContext{SelectedCity: "Paris"}, CityAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveCity(tt.id, tt.sc, cities)
			if got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}
