package models

import "time"

// Notification categories.
const (
	CategoryInformational = "informational"
	CategoryWarning       = "warning"
	CategorySuccess       = "success"
	CategoryError         = "error"
	CategoryDeadline      = "deadline"
)

// Notification priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Notification is the durable record of a message to a recipient. Content is
// immutable after creation; only the read flag and delivered-at may change.
type Notification struct {
	ID           string         `bson:"id" json:"id"`
	RecipientID  string         `bson:"recipientId" json:"recipientId"`
	Title        string         `bson:"title" json:"title"`
	Body         string         `bson:"body" json:"body"`
	Category     string         `bson:"category" json:"category"`
	Priority     string         `bson:"priority" json:"priority"`
	Read         bool           `bson:"read" json:"read"`
	CreatedAt    time.Time      `bson:"createdAt" json:"createdAt"`
	ScheduledFor *time.Time     `bson:"scheduledFor,omitempty" json:"scheduledFor,omitempty"`
	DeliveredAt  *time.Time     `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	Metadata     map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// ValidCategory reports whether c is one of the known notification categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryInformational, CategoryWarning, CategorySuccess, CategoryError, CategoryDeadline:
		return true
	}
	return false
}

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
