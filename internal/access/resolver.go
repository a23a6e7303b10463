package access

// CityAll is the sentinel for "no city filter" in the scope context.
const CityAll = "all"

// ScopeContext is the transient, session-local view state. It is never
// persisted server-side; mutation is guarded by the scope session, not
// here.
type ScopeContext struct {
	// SelectedCity is CityAll or one catalog city name. Only meaningful
	// for cross-tenant roles.
	SelectedCity string `json:"selected_city"`

	// SelectedDepartment is the department toggle. Only meaningful for
	// department-toggling roles.
	SelectedDepartment Department `json:"selected_department"`
}

// NormalizeCity collapses a city selection that is not in the catalog to
// CityAll. The empty selection also normalizes to CityAll.
func NormalizeCity(selected string, cities []string) string {
	if selected == "" || selected == CityAll {
		return CityAll
	}
	for _, c := range cities {
		if c == selected {
			return selected
		}
	}
	return CityAll
}

// ResolveDepartment returns the department the identity is currently
// scoped to. Department-toggling roles follow the scope selection; every
// other role is bound to its fixed department affiliation.
func ResolveDepartment(id *Identity, sc ScopeContext) Department {
	if id == nil {
		return DepartmentNone
	}
	if HasDepartmentToggle(id) {
		return sc.SelectedDepartment
	}
	return FixedDepartment(id.Role)
}

// ResolveCity returns the city the identity's data reads are scoped to.
// Cross-tenant roles follow the normalized scope selection; every other
// role sees only its own city.
func ResolveCity(id *Identity, sc ScopeContext, cities []string) string {
	if id == nil {
		return CityAll
	}
	if HasCrossTenantScope(id) {
		return NormalizeCity(sc.SelectedCity, cities)
	}
	return id.City
}

// VisibleItems filters the catalog to the items visible to the identity
// in the given scope. The result preserves catalog order. A nil identity
// yields an empty slice; callers must treat that as unauthenticated and
// redirect, never substitute a default role.
//
// Pure and deterministic: same inputs, same ordered output.
func VisibleItems(id *Identity, sc ScopeContext, catalog []NavItem) []NavItem {
	if id == nil {
		return []NavItem{}
	}

	resolved := ResolveDepartment(id, sc)

	items := make([]NavItem, 0, len(catalog))
	for _, item := range catalog {
		if !item.HasRole(id.Role) {
			continue
		}
		if item.Department != DepartmentNone && item.Department != resolved {
			continue
		}
		items = append(items, item)
	}
	return items
}
