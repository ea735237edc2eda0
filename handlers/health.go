package handlers

import (
	"net/http"

	"notifyhub/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles GET /health with the latest dependency snapshot.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"deps":   utils.GetHealthStatus(),
	})
}
