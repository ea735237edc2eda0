package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"notifyhub/middleware"
	"notifyhub/services/ratelimit"
	"notifyhub/services/realtime"
	"notifyhub/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsReadLimit    = 4096
	wsReadDeadline = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades HTTP requests to live notification connections.
type WSHandler struct {
	hub    *realtime.Hub
	limits *ratelimit.Registry
	logger *zap.Logger
}

// NewWSHandler creates a handler over the hub.
func NewWSHandler(hub *realtime.Hub, limits *ratelimit.Registry, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, limits: limits, logger: logger}
}

// HandleNotifications handles GET /ws/notifications: gates the upgrade with
// the distributed limiter, performs the handshake and runs the reader loop.
func (h *WSHandler) HandleNotifications(c *gin.Context) {
	identity := middleware.CallerIdentity(c)

	res := h.limits.Check(c.Request.Context(), ratelimit.ActionUpgrade, identity.CallerID)
	if !res.Allowed {
		c.Header("Retry-After", res.RetryAfter.Round(time.Second).String())
		utils.JSONError(c, http.StatusTooManyRequests, "Too many connection attempts", "")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed",
			zap.String("recipientId", identity.CallerID),
			zap.Error(err))
		return
	}

	registered := h.hub.Register(identity.CallerID, realtime.WrapWebsocket(conn))

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		h.hub.Heartbeat(registered)
		return conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))

		var msg realtime.InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed input is isolated to this connection: log, strike,
			// and close only after repeated offenses.
			h.logger.Warn("malformed client message",
				zap.String("recipientId", identity.CallerID),
				zap.Error(err))
			if h.hub.Strike(registered) {
				return
			}
			continue
		}

		switch msg.Type {
		case "ping":
			h.hub.Heartbeat(registered)
		default:
			h.logger.Debug("ignoring unknown client message type",
				zap.String("recipientId", identity.CallerID),
				zap.String("type", msg.Type))
		}
	}

	h.hub.Unregister(registered)
}
