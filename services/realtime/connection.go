package realtime

import (
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the transport side of a live connection. Production connections
// wrap gorilla websocket conns; tests substitute fakes.
type Conn interface {
	WriteJSON(v any) error
	Ping(deadline time.Time) error
	Close() error
}

// wsConn adapts *websocket.Conn to Conn.
type wsConn struct {
	conn *websocket.Conn
}

// WrapWebsocket wraps a gorilla connection for hub registration.
func WrapWebsocket(conn *websocket.Conn) Conn {
	return &wsConn{conn: conn}
}

func (w *wsConn) WriteJSON(v any) error {
	return w.conn.WriteJSON(v)
}

func (w *wsConn) Ping(deadline time.Time) error {
	return w.conn.WriteControl(websocket.PingMessage, []byte{}, deadline)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// Connection is one registered live connection. All fields besides the
// immutable ones are owned by the hub loop.
type Connection struct {
	RecipientID string

	conn     Conn
	lastSeen time.Time
	strikes  int
}

// StatusFrame is sent once after a successful upgrade.
type StatusFrame struct {
	Type        string `json:"type"`
	Connected   bool   `json:"connected"`
	RecipientID string `json:"recipientId"`
}

// NotificationFrame carries one notification to a live client.
type NotificationFrame struct {
	Type         string `json:"type"`
	Notification any    `json:"notification"`
}

// InboundMessage is the shape of client-to-server messages. Only
// type "ping" is understood; everything else is logged and ignored.
type InboundMessage struct {
	Type        string `json:"type"`
	RecipientID string `json:"recipientId"`
	Timestamp   int64  `json:"timestamp"`
}
