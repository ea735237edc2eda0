package notificationRepo

import (
	"notifyhub/models"
)

// NotificationRepository defines methods for notification data access.
type NotificationRepository interface {
	// Create inserts a new notification record.
	Create(n *models.Notification) error
	// GetByID retrieves a notification by its unique ID.
	GetByID(id string) (*models.Notification, error)
	// ListByRecipient retrieves notifications for a recipient, newest first.
	ListByRecipient(recipientID string, onlyUnread bool, limit int64) ([]models.Notification, error)
	// MarkRead sets the read flag on one notification owned by the recipient.
	MarkRead(id, recipientID string) error
	// MarkAllRead sets the read flag on every unread notification of the recipient.
	MarkAllRead(recipientID string) (int64, error)
	// SetDeliveredAt records the first successful delivery time.
	SetDeliveredAt(id string) error
	// CountUnread returns the number of unread notifications for a recipient.
	CountUnread(recipientID string) (int64, error)
}
