package access

import (
	"github.com/eglise-connect/platform/internal/shared/types"
)

// Identity is the normalized authenticated principal. It is built from a
// user record at login and carries everything the resolver and the
// capability store need. A nil *Identity always means unauthenticated,
// never a default role.
type Identity struct {
	ID       types.ID `json:"id"`
	Username string   `json:"username"`
	Role     Role     `json:"role"`

	// City is the tenant the identity is scoped to by default. Required
	// for every role except the cross-tenant ones.
	City string `json:"city"`

	// Optional scoping attributes narrowing a role to a sub-resource.
	// At most one is meaningful per role.
	AssignedMonth     *string   `json:"assigned_month,omitempty"`
	AssignedFIID      *types.ID `json:"assigned_fi_id,omitempty"`
	AssignedSecteurID *types.ID `json:"assigned_secteur_id,omitempty"`

	// DashboardPermissions overrides the role's capability defaults per
	// key. Absent keys fall back to the defaults.
	DashboardPermissions map[Capability]bool `json:"dashboard_permissions,omitempty"`

	IsBlocked bool `json:"is_blocked"`
}

// HasCrossTenantScope reports whether the identity may override the
// selected city and department. Nil identities have no scope at all.
func HasCrossTenantScope(id *Identity) bool {
	if id == nil {
		return false
	}
	return CrossTenant(id.Role)
}

// HasDepartmentToggle reports whether the identity may switch the
// selected department.
func HasDepartmentToggle(id *Identity) bool {
	if id == nil {
		return false
	}
	return DepartmentToggle(id.Role)
}

// Clone returns a deep copy of the identity. Used when an impersonation
// frame stores the original so later permission writes cannot mutate it.
func (id *Identity) Clone() *Identity {
	if id == nil {
		return nil
	}
	out := *id
	if id.AssignedMonth != nil {
		m := *id.AssignedMonth
		out.AssignedMonth = &m
	}
	if id.AssignedFIID != nil {
		v := *id.AssignedFIID
		out.AssignedFIID = &v
	}
	if id.AssignedSecteurID != nil {
		v := *id.AssignedSecteurID
		out.AssignedSecteurID = &v
	}
	if id.DashboardPermissions != nil {
		out.DashboardPermissions = make(map[Capability]bool, len(id.DashboardPermissions))
		for k, v := range id.DashboardPermissions {
			out.DashboardPermissions[k] = v
		}
	}
	return &out
}
