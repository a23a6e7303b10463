package access

// NavItem is one entry of the navigation catalog. Order within the
// catalog is significant: it is the on-screen tab order.
type NavItem struct {
	Path       string     `json:"path"`
	Label      string     `json:"label"`
	Roles      []Role     `json:"roles"`
	Department Department `json:"department,omitempty"`
}

// HasRole reports whether the item lists the given role.
func (n NavItem) HasRole(role Role) bool {
	for _, r := range n.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// DefaultCatalog returns the static navigation catalog.
func DefaultCatalog() []NavItem {
	return []NavItem{
		{
			Path:       "/dashboard",
			Label:      "Tableau de bord",
			Roles:      []Role{RoleReferent, RolePromotions, RoleAccueil},
			Department: DepartmentPromotions,
		},
		{
			Path:       "/dashboard-superviseur-promos",
			Label:      "Supervision promotions",
			Roles:      []Role{RoleSuperviseurPromos},
			Department: DepartmentPromotions,
		},
		{
			Path:       "/dashboard-fi",
			Label:      "Ma Famille d'Impact",
			Roles:      []Role{RolePiloteFI},
			Department: DepartmentFamillesImpact,
		},
		{
			Path:       "/dashboard-superviseur-fi",
			Label:      "Supervision FI",
			Roles:      []Role{RoleSuperviseurFI},
			Department: DepartmentFamillesImpact,
		},
		{
			Path:       "/dashboard-secteur",
			Label:      "Mon secteur",
			Roles:      []Role{RoleResponsableSecteur},
			Department: DepartmentFamillesImpact,
		},
		{
			Path:       "/dashboard-evangelisation",
			Label:      "Evangelisation",
			Roles:      []Role{RoleResponsableEvangelisation},
			Department: DepartmentEvangelisation,
		},
		{
			Path:       "/visiteurs",
			Label:      "Visiteurs",
			Roles:      []Role{RoleAccueil, RolePromotions, RoleReferent, RoleSuperviseurPromos},
			Department: DepartmentPromotions,
		},
		{
			Path:  "/membres",
			Label: "Membres",
			Roles: []Role{RoleSuperAdmin, RolePasteur, RoleResponsableEglise, RoleAdministrateur, RoleSecretariat},
		},
		{
			Path:       "/familles-impact",
			Label:      "Familles d'Impact",
			Roles:      []Role{RoleSuperviseurFI, RoleResponsableSecteur, RoleSuperAdmin, RolePasteur},
			Department: DepartmentFamillesImpact,
		},
		{
			Path:  "/cities",
			Label: "Villes",
			Roles: []Role{RoleSuperAdmin, RolePasteur},
		},
		{
			Path:  "/utilisateurs",
			Label: "Utilisateurs",
			Roles: []Role{RoleSuperAdmin, RolePasteur, RoleResponsableEglise, RoleAdministrateur},
		},
		{
			Path:  "/notifications",
			Label: "Notifications",
			Roles: []Role{RoleSuperAdmin, RolePasteur, RoleResponsableEglise, RoleSuperviseurPromos, RoleSuperviseurFI, RoleResponsableEvangelisation},
		},
		{
			Path:  "/export",
			Label: "Export",
			Roles: []Role{RoleSuperAdmin, RolePasteur, RoleResponsableEglise, RoleAdministrateur},
		},
		{
			Path:  "/stats",
			Label: "Statistiques",
			Roles: []Role{RoleSuperAdmin, RolePasteur, RoleResponsableEglise},
		},
	}
}
