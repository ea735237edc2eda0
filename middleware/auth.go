package middleware

import (
	"net/http"

	"notifyhub/models"

	"github.com/gin-gonic/gin"
)

// Context keys set by IdentityMiddleware.
const (
	ContextCallerID = "callerId"
	ContextRole     = "role"
)

// IdentityMiddleware extracts the pre-verified caller identity set by the
// upstream auth layer. The identity is never re-validated here; absence
// means the request bypassed that layer and is rejected.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := c.GetHeader("X-Caller-Id")
		if callerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing caller identity"})
			return
		}
		role := c.GetHeader("X-Caller-Role")
		if role == "" {
			role = models.RoleStudent
		}

		c.Set(ContextCallerID, callerID)
		c.Set(ContextRole, role)
		c.Next()
	}
}

// CallerIdentity reads the identity placed in the context by
// IdentityMiddleware.
func CallerIdentity(c *gin.Context) models.Identity {
	return models.Identity{
		CallerID: c.GetString(ContextCallerID),
		Role:     c.GetString(ContextRole),
	}
}
