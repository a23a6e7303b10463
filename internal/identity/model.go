// Package identity manages user accounts: authentication, CRUD and the
// per-user dashboard permission overrides.
package identity

import (
	"time"

	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/shared/types"
)

// User is a platform account. Exactly one role and one city per user;
// the optional assignment columns narrow operational roles to their
// cohort, group or sector.
type User struct {
	ID           types.ID    `json:"id"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"-"`
	Role         access.Role `json:"role"`
	City         string      `json:"city"`

	AssignedMonth     *string   `json:"assigned_month,omitempty"`
	AssignedFIID      *types.ID `json:"assigned_fi_id,omitempty"`
	AssignedSecteurID *types.ID `json:"assigned_secteur_id,omitempty"`

	// DashboardPermissions is the per-user override map stored as JSONB.
	// nil means no overrides.
	DashboardPermissions map[access.Capability]bool `json:"dashboard_permissions,omitempty"`

	IsBlocked bool      `json:"is_blocked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Identity converts the account row to the resolver's identity shape.
func (u *User) Identity() *access.Identity {
	if u == nil {
		return nil
	}
	return &access.Identity{
		ID:                   u.ID,
		Username:             u.Username,
		Role:                 u.Role,
		City:                 u.City,
		AssignedMonth:        u.AssignedMonth,
		AssignedFIID:         u.AssignedFIID,
		AssignedSecteurID:    u.AssignedSecteurID,
		DashboardPermissions: u.DashboardPermissions,
		IsBlocked:            u.IsBlocked,
	}
}

// CreateUserRequest is the payload for creating a user
type CreateUserRequest struct {
	Username          string    `json:"username"`
	Password          string    `json:"password"`
	Role              string    `json:"role"`
	City              string    `json:"city"`
	AssignedMonth     *string   `json:"assigned_month,omitempty"`
	AssignedFIID      *types.ID `json:"assigned_fi_id,omitempty"`
	AssignedSecteurID *types.ID `json:"assigned_secteur_id,omitempty"`
}

// UpdateUserRequest is the payload for updating a user
type UpdateUserRequest struct {
	Password          *string   `json:"password,omitempty"`
	Role              *string   `json:"role,omitempty"`
	City              *string   `json:"city,omitempty"`
	AssignedMonth     *string   `json:"assigned_month,omitempty"`
	AssignedFIID      *types.ID `json:"assigned_fi_id,omitempty"`
	AssignedSecteurID *types.ID `json:"assigned_secteur_id,omitempty"`
	IsBlocked         *bool     `json:"is_blocked,omitempty"`
}

// ReplacePermissionsRequest carries the full replacement permission map.
// The map replaces the stored overrides wholesale; keys absent from the
// request are removed, not kept.
type ReplacePermissionsRequest struct {
	Permissions map[access.Capability]bool `json:"permissions"`
}

// LoginRequest is the credentials payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token and the identity snapshot
type LoginResponse struct {
	Token    string           `json:"token"`
	Identity *access.Identity `json:"identity"`
}

// ListUsersFilter filters the user listing
type ListUsersFilter struct {
	Role    *string
	City    *string
	Blocked *bool
	Search  string
	Limit   int
	Offset  int
}
