// Package member manages the member and visitor registry. Visitors are
// members with kind "visitor" and a follow-up state; conversion to a
// regular member keeps the row and its history.
package member

import (
	"time"

	"github.com/eglise-connect/platform/internal/shared/types"
)

// Kind distinguishes regular members from first-time visitors
type Kind string

const (
	KindMember  Kind = "member"
	KindVisitor Kind = "visitor"
)

// FollowUp is the visitor follow-up state
type FollowUp string

const (
	FollowUpNone      FollowUp = "none"
	FollowUpToCall    FollowUp = "to_call"
	FollowUpContacted FollowUp = "contacted"
	FollowUpIntegrated FollowUp = "integrated"
)

// Member is one person in the registry
type Member struct {
	ID        types.ID `json:"id"`
	Kind      Kind     `json:"kind"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`

	// City is the tenant the member belongs to. All scoped reads filter
	// on it.
	City string `json:"city"`

	Contact types.ContactInfo `json:"contact"`
	Address types.Address     `json:"address"`

	// ArrivalMonth groups members into cohorts, format "2026-03".
	ArrivalMonth *string `json:"arrival_month,omitempty"`

	FollowUp FollowUp `json:"follow_up"`
	Notes    string   `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateMemberRequest is the payload for registering a member or visitor
type CreateMemberRequest struct {
	Kind         Kind              `json:"kind"`
	FirstName    string            `json:"first_name"`
	LastName     string            `json:"last_name"`
	City         string            `json:"city"`
	Contact      types.ContactInfo `json:"contact"`
	Address      types.Address     `json:"address"`
	ArrivalMonth *string           `json:"arrival_month,omitempty"`
	Notes        string            `json:"notes,omitempty"`
}

// UpdateMemberRequest is the payload for updating a member
type UpdateMemberRequest struct {
	Kind         *Kind              `json:"kind,omitempty"`
	FirstName    *string            `json:"first_name,omitempty"`
	LastName     *string            `json:"last_name,omitempty"`
	City         *string            `json:"city,omitempty"`
	Contact      *types.ContactInfo `json:"contact,omitempty"`
	Address      *types.Address     `json:"address,omitempty"`
	ArrivalMonth *string            `json:"arrival_month,omitempty"`
	FollowUp     *FollowUp          `json:"follow_up,omitempty"`
	Notes        *string            `json:"notes,omitempty"`
}

// ListMembersFilter filters the member listing. City is applied by the
// handler from the resolved scope, never from client input.
type ListMembersFilter struct {
	City         string
	Kind         *Kind
	ArrivalMonth *string
	FollowUp     *FollowUp
	Search       string
	Limit        int
	Offset       int
}
