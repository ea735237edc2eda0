package handlers

import (
	"net/http"

	"notifyhub/middleware"
	"notifyhub/models"
	"notifyhub/services/notification"
	"notifyhub/utils"

	"github.com/gin-gonic/gin"
)

// PreferenceHandler exposes recipient delivery preferences.
type PreferenceHandler struct {
	svc notification.Service
}

// NewPreferenceHandler creates a handler over the service.
func NewPreferenceHandler(svc notification.Service) *PreferenceHandler {
	return &PreferenceHandler{svc: svc}
}

// GetHandler handles GET /api/preferences.
func (h *PreferenceHandler) GetHandler(c *gin.Context) {
	identity := middleware.CallerIdentity(c)

	prefs, err := h.svc.GetPreferences(c.Request.Context(), identity.CallerID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to load preferences", err.Error())
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// UpdateHandler handles PUT /api/preferences.
func (h *PreferenceHandler) UpdateHandler(c *gin.Context) {
	var prefs models.RecipientPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	// Preferences are always written for the caller, never for a third party.
	identity := middleware.CallerIdentity(c)
	prefs.RecipientID = identity.CallerID

	if err := h.svc.UpdatePreferences(c.Request.Context(), &prefs); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to update preferences", err.Error())
		return
	}
	c.JSON(http.StatusOK, prefs)
}
