package deliveryRepo

import (
	"notifyhub/models"
)

// DeliveryLogRepository defines methods for delivery attempt records.
type DeliveryLogRepository interface {
	// Record appends one delivery attempt outcome.
	Record(l *models.DeliveryLog) error
	// ListByNotification retrieves attempts for one notification, oldest first.
	ListByNotification(notificationID string) ([]models.DeliveryLog, error)
}
