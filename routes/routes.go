package routes

import (
	"time"

	"notifyhub/handlers"
	"notifyhub/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterNotificationRoutes registers the notification endpoints.
func RegisterNotificationRoutes(r *gin.Engine, nh *handlers.NotificationHandler) {
	api := r.Group("/api/notifications")
	{
		api.Use(middleware.IdentityMiddleware())
		api.POST("", nh.CreateHandler)
		api.GET("", nh.ListHandler)
		api.PATCH("/read-all", nh.MarkAllReadHandler)
		api.PATCH("/:id/read", nh.MarkReadHandler)
		api.POST("/broadcast", nh.BroadcastHandler)
	}

	reminders := r.Group("/api/reminders")
	{
		reminders.Use(middleware.IdentityMiddleware())
		reminders.POST("", nh.ScheduleReminderHandler)
	}
}

// RegisterPreferenceRoutes registers the preference endpoints.
func RegisterPreferenceRoutes(r *gin.Engine, ph *handlers.PreferenceHandler) {
	api := r.Group("/api/preferences")
	{
		api.Use(middleware.IdentityMiddleware())
		api.GET("", ph.GetHandler)
		api.PUT("", ph.UpdateHandler)
	}
}

// RegisterWSRoutes registers the live connection upgrade endpoint.
func RegisterWSRoutes(r *gin.Engine, wh *handlers.WSHandler) {
	ws := r.Group("/ws")
	{
		ws.Use(middleware.IdentityMiddleware())
		ws.GET("/notifications", wh.HandleNotifications)
	}
}

// RegisterScanRoute registers the content scan endpoint used by the
// attachment upload flow.
func RegisterScanRoute(r *gin.Engine, sh *handlers.ScanHandler) {
	api := r.Group("/api/scan")
	{
		api.Use(middleware.IdentityMiddleware())
		api.POST("", sh.ScanContentHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", handlers.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, nh *handlers.NotificationHandler, ph *handlers.PreferenceHandler, wh *handlers.WSHandler, sh *handlers.ScanHandler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Caller-Id", "X-Caller-Role"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterNotificationRoutes(r, nh)
	RegisterPreferenceRoutes(r, ph)
	RegisterWSRoutes(r, wh)
	if sh != nil {
		RegisterScanRoute(r, sh)
	}
	RegisterHealthRoute(r)
}
