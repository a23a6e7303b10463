package access

// Capability names one fine-grained dashboard permission.
type Capability string

const (
	CapSeeCharts         Capability = "can_see_charts"
	CapExportData        Capability = "can_export_data"
	CapViewStats         Capability = "can_view_stats"
	CapManageVisitors    Capability = "can_manage_visitors"
	CapSendNotifications Capability = "can_send_notifications"
	CapMarkAttendance    Capability = "can_mark_attendance"
	CapManageUsers       Capability = "can_manage_users"
)

// RoleCapabilities maps each role to its default capability set. A key
// absent from a role's map is not a capability of that role: it is denied
// regardless of any per-user override.
var RoleCapabilities = map[Role]map[Capability]bool{
	RoleSuperAdmin: {
		CapSeeCharts: true, CapExportData: true, CapViewStats: true,
		CapManageVisitors: true, CapSendNotifications: true,
		CapMarkAttendance: true, CapManageUsers: true,
	},
	RolePasteur: {
		CapSeeCharts: true, CapExportData: true, CapViewStats: true,
		CapManageVisitors: true, CapSendNotifications: true,
		CapMarkAttendance: true, CapManageUsers: true,
	},
	RoleResponsableEglise: {
		CapSeeCharts: true, CapExportData: true, CapViewStats: true,
		CapManageVisitors: true, CapSendNotifications: true,
		CapManageUsers: true,
	},
	RoleAdministrateur: {
		CapSeeCharts: true, CapExportData: true, CapViewStats: true,
		CapManageUsers: true,
	},
	RoleSuperviseurPromos: {
		CapSeeCharts: true, CapViewStats: true,
		CapManageVisitors: true, CapSendNotifications: true,
	},
	RoleSuperviseurFI: {
		CapSeeCharts: true, CapViewStats: true,
		CapSendNotifications: true, CapMarkAttendance: true,
	},
	RoleResponsableSecteur: {
		CapSeeCharts: true, CapViewStats: true, CapMarkAttendance: true,
	},
	RoleResponsableEvangelisation: {
		CapSeeCharts: true, CapViewStats: true, CapSendNotifications: true,
	},
	RoleReferent: {
		CapSeeCharts: false, CapManageVisitors: true, CapMarkAttendance: true,
	},
	RolePromotions: {
		CapSeeCharts: false, CapManageVisitors: true,
	},
	RoleAccueil: {
		CapManageVisitors: true,
	},
	RolePiloteFI: {
		CapSeeCharts: false, CapMarkAttendance: true,
	},
	RoleSecretariat: {
		CapManageVisitors: true, CapExportData: false,
	},
}

// EffectivePermission resolves a dashboard capability for an identity.
// Unknown capabilities are always denied, never silently granted. An
// explicit per-user override wins over the role default.
func EffectivePermission(id *Identity, key Capability) bool {
	if id == nil {
		return false
	}

	defaults, ok := RoleCapabilities[id.Role]
	if !ok {
		return false
	}

	def, ok := defaults[key]
	if !ok {
		// Key is not in the role's capability set: deny, even if an
		// override exists for it.
		return false
	}

	if v, ok := id.DashboardPermissions[key]; ok {
		return v
	}
	return def
}
