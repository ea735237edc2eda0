package realtime

import (
	"time"

	"go.uber.org/zap"
)

// maxStrikes is how many malformed messages one connection may send before
// it is closed. Other connections are never affected.
const maxStrikes = 3

// Hub is the connection coordinator: the sole owner of the recipient to
// live-connections map. All mutations run on the hub's own loop, so
// concurrent Push and Register calls are linearized without an external
// lock. Connections are never persisted; losing one loses no data, only
// immediacy.
type Hub struct {
	logger            *zap.Logger
	idleTimeout       time.Duration
	heartbeatInterval time.Duration

	commands chan func()
	stopped  chan struct{}
	conns    map[string]map[*Connection]struct{}
	now      func() time.Time
}

// NewHub creates the coordinator. Run must be started before use.
func NewHub(logger *zap.Logger, idleTimeout, heartbeatInterval time.Duration) *Hub {
	return &Hub{
		logger:            logger,
		idleTimeout:       idleTimeout,
		heartbeatInterval: heartbeatInterval,
		commands:          make(chan func()),
		stopped:           make(chan struct{}),
		conns:             make(map[string]map[*Connection]struct{}),
		now:               time.Now,
	}
}

// Run executes the hub loop until stop is closed. It owns every mutation of
// the connection map, including the periodic heartbeat sweep.
func (h *Hub) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			h.closeAll()
			close(h.stopped)
			return
		case cmd := <-h.commands:
			cmd()
		case <-ticker.C:
			h.sweepIdle()
		}
	}
}

// do runs fn on the hub loop and waits for it to complete.
func (h *Hub) do(fn func()) {
	done := make(chan struct{})
	select {
	case h.commands <- func() {
		fn()
		close(done)
	}:
		<-done
	case <-h.stopped:
	}
}

// Register adds a live connection for the recipient and sends the status
// frame confirming the session. The frame is written on the hub loop, like
// every other write to a connection: the websocket layer forbids concurrent
// writers, so no write may happen off-loop.
func (h *Hub) Register(recipientID string, conn Conn) *Connection {
	c := &Connection{RecipientID: recipientID, conn: conn}
	h.do(func() {
		c.lastSeen = h.now()
		set, ok := h.conns[recipientID]
		if !ok {
			set = make(map[*Connection]struct{})
			h.conns[recipientID] = set
		}
		set[c] = struct{}{}
		h.logger.Info("live connection registered",
			zap.String("recipientId", recipientID),
			zap.Int("total", len(set)))

		if err := conn.WriteJSON(StatusFrame{Type: "status", Connected: true, RecipientID: recipientID}); err != nil {
			h.removeLocked(c)
		}
	})
	return c
}

// Unregister removes and closes a connection. Safe to call more than once.
func (h *Hub) Unregister(c *Connection) {
	h.do(func() {
		h.removeLocked(c)
	})
}

// removeLocked must run on the hub loop.
func (h *Hub) removeLocked(c *Connection) {
	set, ok := h.conns[c.RecipientID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.conns, c.RecipientID)
	}
	_ = c.conn.Close()
	h.logger.Info("live connection removed", zap.String("recipientId", c.RecipientID))
}

// Heartbeat refreshes the last-seen time of a connection; called by the
// reader loop on every client ping.
func (h *Hub) Heartbeat(c *Connection) {
	h.do(func() {
		c.lastSeen = h.now()
	})
}

// Strike counts one malformed message against the connection. When the
// strike threshold is reached the connection is removed and closed; the
// return value tells the reader loop to stop.
func (h *Hub) Strike(c *Connection) bool {
	var closed bool
	h.do(func() {
		c.strikes++
		if c.strikes >= maxStrikes {
			h.logger.Warn("closing connection after repeated malformed messages",
				zap.String("recipientId", c.RecipientID),
				zap.Int("strikes", c.strikes))
			h.removeLocked(c)
			closed = true
		}
	})
	return closed
}

// Push sends the notification to every live connection of the recipient and
// returns the number of successful sends. Zero is a valid outcome: no live
// session, the durable record still stands. A connection whose send fails is
// removed from the set.
func (h *Hub) Push(recipientID string, notification any) int {
	var delivered int
	h.do(func() {
		delivered = h.pushLocked(recipientID, notification)
	})
	return delivered
}

// pushLocked must run on the hub loop.
func (h *Hub) pushLocked(recipientID string, notification any) int {
	set, ok := h.conns[recipientID]
	if !ok {
		return 0
	}

	frame := NotificationFrame{Type: "notification", Notification: notification}
	delivered := 0
	var failed []*Connection
	for c := range set {
		if err := c.conn.WriteJSON(frame); err != nil {
			h.logger.Warn("live push failed, dropping connection",
				zap.String("recipientId", recipientID),
				zap.Error(err))
			failed = append(failed, c)
			continue
		}
		delivered++
	}
	for _, c := range failed {
		h.removeLocked(c)
	}
	return delivered
}

// Broadcast pushes one notification to each recipient in ids, returning how
// many recipients received at least one live copy and how many had no
// session.
func (h *Hub) Broadcast(recipientIDs []string, notification any) (delivered, skipped int) {
	h.do(func() {
		for _, id := range recipientIDs {
			if h.pushLocked(id, notification) > 0 {
				delivered++
			} else {
				skipped++
			}
		}
	})
	return delivered, skipped
}

// Count returns the number of live connections for the recipient.
func (h *Hub) Count(recipientID string) int {
	var n int
	h.do(func() {
		n = len(h.conns[recipientID])
	})
	return n
}

// Total returns the number of live connections across all recipients.
func (h *Hub) Total() int {
	var n int
	h.do(func() {
		for _, set := range h.conns {
			n += len(set)
		}
	})
	return n
}

// sweepIdle pings every connection and removes those unseen past the idle
// threshold, bounding map size under silent client failures.
func (h *Hub) sweepIdle() {
	now := h.now()
	deadline := now.Add(time.Second)
	for _, set := range h.conns {
		for c := range set {
			if now.Sub(c.lastSeen) > h.idleTimeout {
				h.logger.Info("closing idle connection", zap.String("recipientId", c.RecipientID))
				h.removeLocked(c)
				continue
			}
			_ = c.conn.Ping(deadline)
		}
	}
}

// closeAll closes every connection during shutdown.
func (h *Hub) closeAll() {
	for _, set := range h.conns {
		for c := range set {
			_ = c.conn.Close()
		}
	}
	h.conns = make(map[string]map[*Connection]struct{})
}
