package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	deliveryRepo "notifyhub/database/repository/delivery"
	notificationRepo "notifyhub/database/repository/notification"
	preferenceRepo "notifyhub/database/repository/preference"
	reminderRepo "notifyhub/database/repository/reminder"
	"notifyhub/models"
	"notifyhub/services/email"
	"notifyhub/services/push"
	"notifyhub/services/ratelimit"
	"notifyhub/services/realtime"
	"notifyhub/services/resilience"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultService is the production implementation.
type DefaultService struct {
	Notifications notificationRepo.NotificationRepository
	Preferences   preferenceRepo.PreferenceRepository
	Reminders     reminderRepo.ReminderRepository
	Deliveries    deliveryRepo.DeliveryLogRepository

	Hub        *realtime.Hub
	Email      email.Sender
	Pusher     push.Pusher
	Resilience *resilience.Registry
	Limits     *ratelimit.Registry

	Logger *zap.Logger
}

var _ Service = (*DefaultService)(nil)

func (s *DefaultService) validate(req *models.CreateNotificationRequest) error {
	if strings.TrimSpace(req.RecipientID) == "" {
		return fmt.Errorf("%w: recipientId is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	if !models.ValidCategory(req.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRequest, req.Category)
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(req.Priority) {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidRequest, req.Priority)
	}
	return nil
}

// Create validates, rate-limits, durably records and then fans out one
// notification.
func (s *DefaultService) Create(ctx context.Context, identity models.Identity, req models.CreateNotificationRequest) (*models.Notification, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	res := s.Limits.Check(ctx, ratelimit.ActionCreate, identity.CallerID)
	if !res.Allowed {
		return nil, &RateLimitedError{RetryAfter: res.RetryAfter}
	}

	return s.create(ctx, req)
}

// create persists and fans out one already-validated notification.
func (s *DefaultService) create(ctx context.Context, req models.CreateNotificationRequest) (*models.Notification, error) {
	n := &models.Notification{
		ID:           uuid.NewString(),
		RecipientID:  req.RecipientID,
		Title:        req.Title,
		Body:         req.Message,
		Category:     req.Category,
		Priority:     req.Priority,
		CreatedAt:    time.Now(),
		ScheduledFor: req.ScheduledFor,
		Metadata:     req.Metadata,
	}

	if err := s.Notifications.Create(n); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}

	s.Deliver(ctx, n)
	return n, nil
}

// Broadcast creates and pushes one notice per recipient. Privileged roles
// only. The broadcast counts once against its own policy; the per-recipient
// creations are not charged to the caller's create ceiling.
func (s *DefaultService) Broadcast(ctx context.Context, identity models.Identity, req models.BroadcastRequest) (*BroadcastResult, error) {
	if !identity.IsPrivileged() {
		return nil, ErrForbidden
	}
	if len(req.RecipientIDs) == 0 {
		return nil, fmt.Errorf("%w: recipientIds is required", ErrInvalidRequest)
	}

	res := s.Limits.Check(ctx, ratelimit.ActionBroadcast, identity.CallerID)
	if !res.Allowed {
		return nil, &RateLimitedError{RetryAfter: res.RetryAfter}
	}

	result := &BroadcastResult{}
	for _, recipientID := range req.RecipientIDs {
		cr := models.CreateNotificationRequest{
			RecipientID: recipientID,
			Title:       req.Title,
			Message:     req.Message,
			Category:    req.Category,
			Priority:    req.Priority,
			Metadata:    req.Metadata,
		}
		if err := s.validate(&cr); err != nil {
			s.Logger.Warn("broadcast skipped recipient",
				zap.String("recipientId", recipientID),
				zap.Error(err))
			result.Skipped++
			continue
		}
		n, err := s.create(ctx, cr)
		if err != nil {
			s.Logger.Warn("broadcast skipped recipient",
				zap.String("recipientId", recipientID),
				zap.Error(err))
			result.Skipped++
			continue
		}
		result.Created++
		if n.DeliveredAt != nil {
			result.Delivered++
		}
	}
	return result, nil
}

// Deliver fans one durably recorded notification out to the enabled
// channels. Every attempt lands in the delivery log; no channel failure
// propagates, since the durable record already stands.
func (s *DefaultService) Deliver(ctx context.Context, n *models.Notification) int {
	prefs, err := s.GetPreferences(ctx, n.RecipientID)
	if err != nil {
		s.Logger.Warn("preference lookup failed, using defaults",
			zap.String("recipientId", n.RecipientID),
			zap.Error(err))
		prefs = models.DefaultPreferences(n.RecipientID)
	}

	if !prefs.CategoryEnabled(n.Category) {
		s.record(n.ID, models.ChannelLive, models.DeliverySkipped, "")
		return 0
	}

	delivered := 0
	if prefs.LiveEnabled {
		count := s.Hub.Push(n.RecipientID, n)
		if count > 0 {
			delivered += count
			s.record(n.ID, models.ChannelLive, models.DeliveryDelivered, "")
			if err := s.Notifications.SetDeliveredAt(n.ID); err == nil {
				now := time.Now()
				n.DeliveredAt = &now
			}
		} else {
			// No live session; the notification row remains retrievable.
			s.record(n.ID, models.ChannelLive, models.DeliverySkipped, "")
		}
	}

	if prefs.EmailEnabled && prefs.Email != "" {
		err := s.Resilience.Execute(ctx, resilience.DepEmail, func(ctx context.Context) error {
			return s.Email.Send(ctx, prefs.Email, n.Title, renderEmailBody(n))
		})
		if err != nil {
			s.Logger.Warn("email delivery failed",
				zap.String("notificationId", n.ID),
				zap.Error(err))
			s.record(n.ID, models.ChannelEmail, models.DeliveryFailed, err.Error())
		} else {
			s.record(n.ID, models.ChannelEmail, models.DeliveryDelivered, "")
			delivered++
		}
	}

	if prefs.PushEnabled && prefs.DeviceToken != "" && s.Pusher != nil {
		err := s.Resilience.Execute(ctx, resilience.DepPush, func(ctx context.Context) error {
			return s.Pusher.Send(ctx, prefs.DeviceToken, n.Title, n.Body, map[string]string{
				"notificationId": n.ID,
				"category":       n.Category,
				"priority":       n.Priority,
			})
		})
		if err != nil {
			s.Logger.Warn("push delivery failed",
				zap.String("notificationId", n.ID),
				zap.Error(err))
			s.record(n.ID, models.ChannelPush, models.DeliveryFailed, err.Error())
		} else {
			s.record(n.ID, models.ChannelPush, models.DeliveryDelivered, "")
			delivered++
		}
	}

	return delivered
}

// record writes one delivery-log row; log write failures are logged, never
// propagated.
func (s *DefaultService) record(notificationID, channel, status, errMsg string) {
	err := s.Deliveries.Record(&models.DeliveryLog{
		NotificationID: notificationID,
		Channel:        channel,
		Status:         status,
		Error:          errMsg,
		AttemptedAt:    time.Now(),
	})
	if err != nil {
		s.Logger.Warn("failed to record delivery attempt",
			zap.String("notificationId", notificationID),
			zap.Error(err))
	}
}

// List retrieves a recipient's notifications, newest first.
func (s *DefaultService) List(ctx context.Context, recipientID string, onlyUnread bool) ([]models.Notification, error) {
	return s.Notifications.ListByRecipient(recipientID, onlyUnread, 100)
}

// MarkRead flips the read flag on one notification.
func (s *DefaultService) MarkRead(ctx context.Context, id, recipientID string) error {
	return s.Notifications.MarkRead(id, recipientID)
}

// MarkAllRead flips the read flag on all unread notifications.
func (s *DefaultService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return s.Notifications.MarkAllRead(recipientID)
}

// GetPreferences resolves preferences, defaulting when no row exists.
func (s *DefaultService) GetPreferences(ctx context.Context, recipientID string) (*models.RecipientPreferences, error) {
	prefs, err := s.Preferences.Get(recipientID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		return models.DefaultPreferences(recipientID), nil
	}
	return prefs, nil
}

// UpdatePreferences stores a recipient's preferences.
func (s *DefaultService) UpdatePreferences(ctx context.Context, p *models.RecipientPreferences) error {
	if strings.TrimSpace(p.RecipientID) == "" {
		return fmt.Errorf("%w: recipientId is required", ErrInvalidRequest)
	}
	return s.Preferences.Upsert(p)
}

// ScheduleForDeadline creates one unsent reminder per preferred offset.
// Offsets whose fire time would not fall strictly before the deadline, or
// that are already in the past, are dropped.
func (s *DefaultService) ScheduleForDeadline(ctx context.Context, recipientID string, subject models.ReminderSubject) ([]models.ScheduledReminder, error) {
	if subject.Kind != models.SubjectCertificate && subject.Kind != models.SubjectWorkshop && subject.Kind != models.SubjectEvent {
		return nil, fmt.Errorf("%w: unknown subject kind %q", ErrInvalidRequest, subject.Kind)
	}
	if subject.Deadline.IsZero() {
		return nil, fmt.Errorf("%w: subject deadline is required", ErrInvalidRequest)
	}

	prefs, err := s.GetPreferences(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var created []models.ScheduledReminder
	for _, hours := range prefs.Offsets() {
		fireAt := subject.Deadline.Add(-time.Duration(hours) * time.Hour)
		if !fireAt.Before(subject.Deadline) || fireAt.Before(now) {
			continue
		}
		rem := models.ScheduledReminder{
			ID:          uuid.NewString(),
			RecipientID: recipientID,
			Subject:     subject,
			FireAt:      fireAt,
			HoursBefore: hours,
			CreatedAt:   now,
		}
		if err := s.Reminders.Create(&rem); err != nil {
			return created, fmt.Errorf("failed to schedule reminder: %w", err)
		}
		created = append(created, rem)
	}
	return created, nil
}

// renderEmailBody wraps the notification body in a minimal HTML shell.
func renderEmailBody(n *models.Notification) string {
	return fmt.Sprintf(
		"<html><body><h2>%s</h2><p>%s</p><p style=\"color:#888;font-size:12px\">Category: %s</p></body></html>",
		n.Title, n.Body, n.Category,
	)
}
