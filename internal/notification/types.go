// Package notification delivers platform notifications: visitor
// follow-up reminders, attendance nudges and administrative notices.
package notification

import (
	"time"

	"github.com/eglise-connect/platform/internal/shared/types"
)

// Channel is the delivery channel
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelInApp Channel = "in_app"
)

// Priority orders notifications. Critical bypasses quiet hours when the
// recipient allows it.
type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Status is the delivery state
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusRead    Status = "read"
)

// Notification is one message to one recipient
type Notification struct {
	ID       types.ID `json:"id"`
	Channel  Channel  `json:"channel"`
	Priority Priority `json:"priority"`
	Status   Status   `json:"status"`

	RecipientID types.ID `json:"recipient_id"`
	City        string   `json:"city,omitempty"`

	// Contact details resolved from the recipient's member or user record.
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`

	Subject string         `json:"subject"`
	Body    string         `json:"body"`
	Data    map[string]any `json:"data,omitempty"`

	RetryCount int    `json:"retry_count"`
	LastError  string `json:"last_error,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// Preferences are one user's delivery settings
type Preferences struct {
	UserID types.ID `json:"user_id"`

	EnablePush  bool `json:"enable_push"`
	EnableEmail bool `json:"enable_email"`
	EnableSMS   bool `json:"enable_sms"`
	EnableInApp bool `json:"enable_in_app"`

	// Quiet hours suppress delivery, "HH:MM" local time. The window may
	// cross midnight.
	QuietHoursEnabled bool   `json:"quiet_hours_enabled"`
	QuietHoursStart   string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd     string `json:"quiet_hours_end,omitempty"`

	AlwaysAllowCritical bool `json:"always_allow_critical"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultPreferences returns the settings applied before a user ever
// saves their own.
func DefaultPreferences(userID types.ID) *Preferences {
	return &Preferences{
		UserID:              userID,
		EnablePush:          true,
		EnableEmail:         true,
		EnableSMS:           false,
		EnableInApp:         true,
		AlwaysAllowCritical: true,
		UpdatedAt:           time.Now(),
	}
}

// SendRequest is the payload for sending a notification
type SendRequest struct {
	RecipientID types.ID       `json:"recipient_id"`
	Channel     Channel        `json:"channel"`
	Priority    Priority       `json:"priority"`
	Subject     string         `json:"subject"`
	Body        string         `json:"body"`
	Data        map[string]any `json:"data,omitempty"`
}
