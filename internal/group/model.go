// Package group manages the Familles d'Impact small groups, their
// membership and meeting attendance.
package group

import (
	"time"

	"github.com/eglise-connect/platform/internal/shared/types"
)

// Group is one Famille d'Impact
type Group struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name"`
	City string   `json:"city"`

	// PiloteID is the user account leading the group.
	PiloteID *types.ID `json:"pilote_id,omitempty"`

	// SecteurID groups several FI under one responsable_secteur.
	SecteurID *types.ID `json:"secteur_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	MemberCount int `json:"member_count,omitempty"`
}

// AttendanceRecord is one member's presence at one meeting. Marking the
// same member and date twice overwrites the previous row.
type AttendanceRecord struct {
	GroupID     types.ID  `json:"group_id"`
	MemberID    types.ID  `json:"member_id"`
	MeetingDate string    `json:"meeting_date"`
	Present     bool      `json:"present"`
	MarkedBy    *types.ID `json:"marked_by,omitempty"`
	MarkedAt    time.Time `json:"marked_at"`
}

// CreateGroupRequest is the payload for creating a group
type CreateGroupRequest struct {
	Name      string    `json:"name"`
	City      string    `json:"city"`
	PiloteID  *types.ID `json:"pilote_id,omitempty"`
	SecteurID *types.ID `json:"secteur_id,omitempty"`
}

// UpdateGroupRequest is the payload for updating a group
type UpdateGroupRequest struct {
	Name      *string   `json:"name,omitempty"`
	PiloteID  *types.ID `json:"pilote_id,omitempty"`
	SecteurID *types.ID `json:"secteur_id,omitempty"`
}

// MarkAttendanceRequest records presence for one meeting date
type MarkAttendanceRequest struct {
	MeetingDate string            `json:"meeting_date"`
	Entries     []AttendanceEntry `json:"entries"`
}

// AttendanceEntry is one member's presence in a marking request
type AttendanceEntry struct {
	MemberID types.ID `json:"member_id"`
	Present  bool     `json:"present"`
}

// ListGroupsFilter filters the group listing
type ListGroupsFilter struct {
	City      string
	ID        *types.ID
	SecteurID *types.ID
	Limit     int
	Offset    int
}
