package scheduler

import (
	"context"
	"fmt"
	"time"

	deliveryRepo "notifyhub/database/repository/delivery"
	notificationRepo "notifyhub/database/repository/notification"
	preferenceRepo "notifyhub/database/repository/preference"
	reminderRepo "notifyhub/database/repository/reminder"
	"notifyhub/models"
	"notifyhub/services/email"
	"notifyhub/services/push"
	"notifyhub/services/realtime"
	"notifyhub/services/resilience"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Report summarizes one sweep over due reminders.
type Report struct {
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// Sweeper finds due reminders, resolves preferences, renders content and
// hands delivery off to the coordinator and the resilience-wrapped channels.
// A reminder is marked sent only after its durable notification exists, so a
// crash mid-delivery leaves the obligation re-discoverable. Delivery is
// at-least-once.
type Sweeper struct {
	Reminders     reminderRepo.ReminderRepository
	Notifications notificationRepo.NotificationRepository
	Preferences   preferenceRepo.PreferenceRepository
	Deliveries    deliveryRepo.DeliveryLogRepository

	Hub        *realtime.Hub
	Email      email.Sender
	Pusher     push.Pusher
	Resilience *resilience.Registry

	BatchSize int
	Logger    *zap.Logger

	now func() time.Time
}

// NewSweeper wires a sweeper; batchSize bounds each query.
func NewSweeper(
	reminders reminderRepo.ReminderRepository,
	notifications notificationRepo.NotificationRepository,
	preferences preferenceRepo.PreferenceRepository,
	deliveries deliveryRepo.DeliveryLogRepository,
	hub *realtime.Hub,
	sender email.Sender,
	pusher push.Pusher,
	registry *resilience.Registry,
	batchSize int,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		Reminders:     reminders,
		Notifications: notifications,
		Preferences:   preferences,
		Deliveries:    deliveries,
		Hub:           hub,
		Email:         sender,
		Pusher:        pusher,
		Resilience:    registry,
		BatchSize:     batchSize,
		Logger:        logger,
		now:           time.Now,
	}
}

// Sweep processes every due, unsent reminder in fire-time order, in bounded
// batches. A failing reminder is recorded and the batch continues.
func (s *Sweeper) Sweep(ctx context.Context) Report {
	var report Report

	for {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, err.Error())
			return report
		}

		batch, err := s.Reminders.DueBefore(s.now(), s.BatchSize)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("query due reminders: %v", err))
			return report
		}
		if len(batch) == 0 {
			return report
		}

		progressed := false
		for i := range batch {
			rem := &batch[i]
			if err := s.processReminder(ctx, rem); err != nil {
				report.Failed++
				report.Errors = append(report.Errors, fmt.Sprintf("reminder %s: %v", rem.ID, err))
				continue
			}
			report.Processed++
			progressed = true
		}

		// If nothing in the batch could be resolved, stop rather than
		// re-reading the same failing rows forever.
		if !progressed || len(batch) < s.BatchSize {
			return report
		}
	}
}

// processReminder handles one due reminder end to end.
func (s *Sweeper) processReminder(ctx context.Context, rem *models.ScheduledReminder) error {
	prefs, err := s.Preferences.Get(rem.RecipientID)
	if err != nil {
		return fmt.Errorf("resolve preferences: %w", err)
	}
	if prefs == nil {
		prefs = models.DefaultPreferences(rem.RecipientID)
	}

	// Deadline reminders disabled: resolve the obligation without creating a
	// notification or touching any channel.
	if !prefs.CategoryEnabled(models.CategoryDeadline) {
		if err := s.Reminders.MarkSent(rem.ID); err != nil {
			return fmt.Errorf("mark sent: %w", err)
		}
		return nil
	}

	title, body := renderReminder(rem)
	n := &models.Notification{
		ID:          uuid.NewString(),
		RecipientID: rem.RecipientID,
		Title:       title,
		Body:        body,
		Category:    models.CategoryDeadline,
		Priority:    models.PriorityHigh,
		CreatedAt:   s.now(),
		Metadata: map[string]any{
			"subjectKind": rem.Subject.Kind,
			"subjectId":   rem.Subject.ID,
			"deadline":    rem.Subject.Deadline,
			"hoursBefore": rem.HoursBefore,
		},
	}

	// The durable record must exist before the reminder is resolved; if this
	// write fails the reminder stays unsent and the next sweep retries it.
	if err := s.Notifications.Create(n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	if prefs.LiveEnabled {
		if count := s.Hub.Push(rem.RecipientID, n); count > 0 {
			s.record(n.ID, models.ChannelLive, models.DeliveryDelivered, "")
			_ = s.Notifications.SetDeliveredAt(n.ID)
		} else {
			s.record(n.ID, models.ChannelLive, models.DeliverySkipped, "")
		}
	}

	if prefs.EmailEnabled && prefs.Email != "" {
		err := s.Resilience.Execute(ctx, resilience.DepEmail, func(ctx context.Context) error {
			return s.Email.Send(ctx, prefs.Email, title, renderReminderEmail(title, body))
		})
		if err != nil {
			// Partial delivery failure still resolves the reminder.
			s.Logger.Warn("reminder email failed",
				zap.String("reminderId", rem.ID),
				zap.Error(err))
			s.record(n.ID, models.ChannelEmail, models.DeliveryFailed, err.Error())
		} else {
			s.record(n.ID, models.ChannelEmail, models.DeliveryDelivered, "")
		}
	}

	if prefs.PushEnabled && prefs.DeviceToken != "" && s.Pusher != nil {
		err := s.Resilience.Execute(ctx, resilience.DepPush, func(ctx context.Context) error {
			return s.Pusher.Send(ctx, prefs.DeviceToken, title, body, map[string]string{
				"notificationId": n.ID,
				"category":       models.CategoryDeadline,
			})
		})
		if err != nil {
			s.Logger.Warn("reminder push failed",
				zap.String("reminderId", rem.ID),
				zap.Error(err))
			s.record(n.ID, models.ChannelPush, models.DeliveryFailed, err.Error())
		} else {
			s.record(n.ID, models.ChannelPush, models.DeliveryDelivered, "")
		}
	}

	if err := s.Reminders.MarkSent(rem.ID); err != nil {
		// The notification exists; the next sweep re-delivers at most once
		// more. At-least-once, never silently dropped.
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// record writes one delivery-log row, logging failures without propagating.
func (s *Sweeper) record(notificationID, channel, status, errMsg string) {
	err := s.Deliveries.Record(&models.DeliveryLog{
		NotificationID: notificationID,
		Channel:        channel,
		Status:         status,
		Error:          errMsg,
		AttemptedAt:    s.now(),
	})
	if err != nil {
		s.Logger.Warn("failed to record delivery attempt",
			zap.String("notificationId", notificationID),
			zap.Error(err))
	}
}

// renderReminderEmail wraps the rendered reminder in a minimal HTML shell.
func renderReminderEmail(title, body string) string {
	return fmt.Sprintf("<html><body><h2>%s</h2><p>%s</p></body></html>", title, body)
}
