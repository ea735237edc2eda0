package handlers

import (
	"errors"
	"net/http"

	"notifyhub/middleware"
	"notifyhub/models"
	"notifyhub/services/notification"
	"notifyhub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NotificationHandler exposes the notification core over HTTP.
type NotificationHandler struct {
	svc    notification.Service
	logger *zap.Logger
}

// NewNotificationHandler creates a handler over the service.
func NewNotificationHandler(svc notification.Service, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// CreateHandler handles POST /api/notifications.
func (h *NotificationHandler) CreateHandler(c *gin.Context) {
	var req models.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	identity := middleware.CallerIdentity(c)
	n, err := h.svc.Create(c.Request.Context(), identity, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

// ListHandler handles GET /api/notifications.
func (h *NotificationHandler) ListHandler(c *gin.Context) {
	identity := middleware.CallerIdentity(c)
	onlyUnread := c.Query("unread") == "true"

	list, err := h.svc.List(c.Request.Context(), identity.CallerID, onlyUnread)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to list notifications", err.Error())
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

// MarkReadHandler handles PATCH /api/notifications/:id/read.
func (h *NotificationHandler) MarkReadHandler(c *gin.Context) {
	identity := middleware.CallerIdentity(c)
	id := c.Param("id")

	if err := h.svc.MarkRead(c.Request.Context(), id, identity.CallerID); err != nil {
		utils.JSONError(c, http.StatusNotFound, "Notification not found", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "read": true})
}

// MarkAllReadHandler handles PATCH /api/notifications/read-all.
func (h *NotificationHandler) MarkAllReadHandler(c *gin.Context) {
	identity := middleware.CallerIdentity(c)

	count, err := h.svc.MarkAllRead(c.Request.Context(), identity.CallerID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to mark notifications read", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count})
}

// BroadcastHandler handles POST /api/notifications/broadcast.
func (h *NotificationHandler) BroadcastHandler(c *gin.Context) {
	var req models.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	identity := middleware.CallerIdentity(c)
	result, err := h.svc.Broadcast(c.Request.Context(), identity, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ScheduleReminderHandler handles POST /api/reminders, used by the CRUD
// layer when a deadline-bearing entity is created.
func (h *NotificationHandler) ScheduleReminderHandler(c *gin.Context) {
	var req struct {
		RecipientID string                 `json:"recipientId"`
		Subject     models.ReminderSubject `json:"subject"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	created, err := h.svc.ScheduleForDeadline(c.Request.Context(), req.RecipientID, req.Subject)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"scheduled": len(created), "reminders": created})
}

// writeServiceError maps service errors onto HTTP statuses.
func (h *NotificationHandler) writeServiceError(c *gin.Context, err error) {
	if rl, ok := notification.IsRateLimited(err); ok {
		c.Header("Retry-After", rl.RetryAfter.Round(1e9).String())
		utils.JSONError(c, http.StatusTooManyRequests, "Rate limit exceeded", rl.Error())
		return
	}
	if errors.Is(err, notification.ErrInvalidRequest) {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if errors.Is(err, notification.ErrForbidden) {
		utils.JSONError(c, http.StatusForbidden, "Forbidden", err.Error())
		return
	}
	h.logger.Error("notification request failed", zap.Error(err))
	utils.JSONError(c, http.StatusInternalServerError, "Internal error", err.Error())
}
