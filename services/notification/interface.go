package notification

import (
	"context"

	"notifyhub/models"
)

// BroadcastResult summarizes one broadcast.
type BroadcastResult struct {
	Created   int `json:"created"`
	Delivered int `json:"delivered"`
	Skipped   int `json:"skipped"`
}

// Service defines the notification core operations.
type Service interface {
	// Create validates, rate-limits, durably records and then fans out one
	// notification. Delivery failures never fail the creation.
	Create(ctx context.Context, identity models.Identity, req models.CreateNotificationRequest) (*models.Notification, error)
	// Broadcast creates and pushes one notice per recipient; requires a
	// privileged role.
	Broadcast(ctx context.Context, identity models.Identity, req models.BroadcastRequest) (*BroadcastResult, error)
	// List retrieves a recipient's notifications, newest first.
	List(ctx context.Context, recipientID string, onlyUnread bool) ([]models.Notification, error)
	// MarkRead flips the read flag on one notification.
	MarkRead(ctx context.Context, id, recipientID string) error
	// MarkAllRead flips the read flag on all unread notifications.
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	// GetPreferences resolves a recipient's preferences, defaulting when no
	// row exists.
	GetPreferences(ctx context.Context, recipientID string) (*models.RecipientPreferences, error)
	// UpdatePreferences stores a recipient's preferences.
	UpdatePreferences(ctx context.Context, p *models.RecipientPreferences) error
	// ScheduleForDeadline creates one unsent reminder per offset before the
	// subject's deadline, dropping offsets that would not fire strictly
	// before it or that are already past.
	ScheduleForDeadline(ctx context.Context, recipientID string, subject models.ReminderSubject) ([]models.ScheduledReminder, error)
	// Deliver fans one durably recorded notification out to the enabled
	// channels, recording a delivery-log row per attempt.
	Deliver(ctx context.Context, n *models.Notification) int
}
