package models

import "time"

// Roles recognised on pre-verified identities.
const (
	RoleStudent = "student"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

// Identity is the caller identity established by the upstream auth layer.
// It is never re-validated here, only authorized for role-gated actions.
type Identity struct {
	CallerID string
	Role     string
}

// IsPrivileged reports whether the identity may perform administrative
// actions such as broadcasts.
func (i Identity) IsPrivileged() bool {
	return i.Role == RoleAdmin || i.Role == RoleStaff
}

// CreateNotificationRequest is the inbound shape for notification creation.
type CreateNotificationRequest struct {
	RecipientID  string         `json:"recipientId"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Category     string         `json:"category"`
	Priority     string         `json:"priority,omitempty"`
	ScheduledFor *time.Time     `json:"scheduledFor,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// BroadcastRequest targets many recipients with one notification body.
type BroadcastRequest struct {
	RecipientIDs []string       `json:"recipientIds"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Category     string         `json:"category"`
	Priority     string         `json:"priority,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
