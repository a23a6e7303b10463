// Package access implements the role, department and city scoped
// authorization model: who may see which navigation items and which
// dashboard capabilities, given the current scope selection.
package access

import "fmt"

// Role represents a user role. Exactly one role per identity.
type Role string

// Leadership roles - church-wide scope
const (
	RoleSuperAdmin        Role = "super_admin"
	RolePasteur           Role = "pasteur"
	RoleResponsableEglise Role = "responsable_eglise"
	RoleAdministrateur    Role = "administrateur"
)

// Supervisory roles - department scope
const (
	RoleSuperviseurPromos         Role = "superviseur_promos"
	RoleSuperviseurFI             Role = "superviseur_fi"
	RoleResponsableSecteur        Role = "responsable_secteur"
	RoleResponsableEvangelisation Role = "responsable_evangelisation"
)

// Operational roles - assigned to a cohort, group or desk
const (
	RoleReferent    Role = "referent"
	RolePromotions  Role = "promotions"
	RoleAccueil     Role = "accueil"
	RolePiloteFI    Role = "pilote_fi"
	RoleSecretariat Role = "secretariat"
)

// roleAliasBerger is the historical name for referent, still present in
// older user records.
const roleAliasBerger = "berger"

// Department represents an organizational track gating navigation items.
type Department string

const (
	DepartmentNone           Department = ""
	DepartmentPromotions     Department = "promotions"
	DepartmentFamillesImpact Department = "familles-impact"
	DepartmentEvangelisation Department = "evangelisation"
)

// roleRank orders roles for the impersonation check. Higher outranks lower.
var roleRank = map[Role]int{
	RoleSuperAdmin:                4,
	RolePasteur:                   3,
	RoleResponsableEglise:         3,
	RoleAdministrateur:            3,
	RoleSuperviseurPromos:         2,
	RoleSuperviseurFI:             2,
	RoleResponsableSecteur:        2,
	RoleResponsableEvangelisation: 2,
	RoleReferent:                  1,
	RolePromotions:                1,
	RoleAccueil:                   1,
	RolePiloteFI:                  1,
	RoleSecretariat:               1,
}

// fixedDepartment maps non-toggling roles to their department affiliation.
// Roles absent from the map carry only department-agnostic items.
var fixedDepartment = map[Role]Department{
	RoleSuperviseurPromos:         DepartmentPromotions,
	RoleReferent:                  DepartmentPromotions,
	RolePromotions:                DepartmentPromotions,
	RoleAccueil:                   DepartmentPromotions,
	RoleSuperviseurFI:             DepartmentFamillesImpact,
	RolePiloteFI:                  DepartmentFamillesImpact,
	RoleResponsableSecteur:        DepartmentFamillesImpact,
	RoleResponsableEvangelisation: DepartmentEvangelisation,
}

// ParseRole validates a role string and normalizes the berger alias.
func ParseRole(s string) (Role, error) {
	if s == roleAliasBerger {
		return RoleReferent, nil
	}
	role := Role(s)
	if _, ok := roleRank[role]; !ok {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return role, nil
}

// ParseDepartment validates a department string. Empty means agnostic.
func ParseDepartment(s string) (Department, error) {
	switch Department(s) {
	case DepartmentNone, DepartmentPromotions, DepartmentFamillesImpact, DepartmentEvangelisation:
		return Department(s), nil
	}
	return "", fmt.Errorf("unknown department: %q", s)
}

// Rank returns a role's rank in the impersonation ordering. Unknown roles
// rank lowest.
func Rank(role Role) int {
	return roleRank[role]
}

// CrossTenant reports whether a role may override the selected city.
// Only super_admin and pasteur see beyond their own city.
func CrossTenant(role Role) bool {
	return role == RoleSuperAdmin || role == RolePasteur
}

// DepartmentToggle reports whether a role may switch the selected
// department. responsable_eglise can switch department within its own
// city without being cross-tenant.
func DepartmentToggle(role Role) bool {
	return CrossTenant(role) || role == RoleResponsableEglise
}

// FixedDepartment returns the department a non-toggling role is bound to,
// or DepartmentNone if the role has only department-agnostic items.
func FixedDepartment(role Role) Department {
	return fixedDepartment[role]
}

// CanImpersonate reports whether an identity with the original role may
// impersonate one with the target role. Only strictly lower ranks are
// allowed; equal rank is rejected.
func CanImpersonate(original, target Role) bool {
	return Rank(target) < Rank(original) && Rank(target) > 0
}
