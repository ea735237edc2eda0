package reminderRepo

import (
	"time"

	"notifyhub/models"
)

// ReminderRepository defines methods for scheduled reminder data access.
type ReminderRepository interface {
	// Create inserts a new scheduled reminder.
	Create(r *models.ScheduledReminder) error
	// DueBefore retrieves unsent reminders with fire time at or before now,
	// ordered by fire time, capped at limit.
	DueBefore(now time.Time, limit int) ([]models.ScheduledReminder, error)
	// MarkSent sets the sent flag; a reminder is never re-fired once sent.
	MarkSent(id string) error
	// DeleteForSubject removes pending reminders for one subject, used when
	// the underlying deadline is cancelled or rescheduled.
	DeleteForSubject(kind, subjectID string) (int64, error)
}
