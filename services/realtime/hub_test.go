package realtime

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []any
	pings  int
	closed bool
	failed bool
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed {
		return errors.New("connection reset")
	}
	f.frames = append(f.frames, v)
	return nil
}

func (f *fakeConn) Ping(deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) fail() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = true
}

func (f *fakeConn) notificationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.frames {
		if _, ok := v.(NotificationFrame); ok {
			n++
		}
	}
	return n
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(zap.NewNop(), time.Minute, time.Hour)
	stop := make(chan struct{})
	go h.Run(stop)
	t.Cleanup(func() { close(stop) })
	return h
}

func TestPush_NoLiveConnections(t *testing.T) {
	h := startHub(t)

	if got := h.Push("nobody-home", map[string]string{"title": "t"}); got != 0 {
		t.Fatalf("delivered = %d, want 0", got)
	}
}

func TestRegister_SendsStatusFrame(t *testing.T) {
	h := startHub(t)
	conn := &fakeConn{}

	h.Register("student-1", conn)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.frames) != 1 {
		t.Fatalf("frames = %d, want 1 status frame", len(conn.frames))
	}
	status, ok := conn.frames[0].(StatusFrame)
	if !ok || status.Type != "status" || !status.Connected || status.RecipientID != "student-1" {
		t.Fatalf("unexpected status frame: %+v", conn.frames[0])
	}
}

func TestPush_RemovesFailedConnection(t *testing.T) {
	h := startHub(t)
	healthy := &fakeConn{}
	broken := &fakeConn{}

	h.Register("student-1", healthy)
	h.Register("student-1", broken)
	broken.fail()

	if got := h.Push("student-1", map[string]string{"title": "t"}); got != 1 {
		t.Fatalf("delivered = %d, want 1", got)
	}
	if got := h.Count("student-1"); got != 1 {
		t.Fatalf("remaining connections = %d, want 1", got)
	}
	broken.mu.Lock()
	closed := broken.closed
	broken.mu.Unlock()
	if !closed {
		t.Fatal("failed connection must be closed")
	}

	// The healthy sibling is unaffected and keeps receiving.
	if got := h.Push("student-1", map[string]string{"title": "t2"}); got != 1 {
		t.Fatalf("delivered = %d, want 1", got)
	}
	if healthy.notificationCount() != 2 {
		t.Fatalf("healthy conn received %d notifications, want 2", healthy.notificationCount())
	}
}

// overlapConn counts WriteJSON calls that overlap in time. The real
// transport panics on concurrent writes, so any overlap is a defect.
type overlapConn struct {
	writing  int32
	overlaps int32
}

func (c *overlapConn) WriteJSON(v any) error {
	if atomic.AddInt32(&c.writing, 1) > 1 {
		atomic.AddInt32(&c.overlaps, 1)
	}
	runtime.Gosched()
	atomic.AddInt32(&c.writing, -1)
	return nil
}

func (c *overlapConn) Ping(deadline time.Time) error { return nil }
func (c *overlapConn) Close() error                  { return nil }

func TestRegister_StatusWriteSerializedWithPush(t *testing.T) {
	h := startHub(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			h.Push("student-1", map[string]string{"title": "t"})
		}
	}()

	conns := make([]*overlapConn, 0, 30)
	for i := 0; i < 30; i++ {
		c := &overlapConn{}
		conns = append(conns, c)
		h.Register("student-1", c)
	}
	<-done

	for i, c := range conns {
		if n := atomic.LoadInt32(&c.overlaps); n != 0 {
			t.Fatalf("conn %d observed %d overlapping writes; all writes must run on the hub loop", i, n)
		}
	}
}

func TestTotal_CountsAcrossRecipients(t *testing.T) {
	h := startHub(t)
	h.Register("a", &fakeConn{})
	h.Register("a", &fakeConn{})
	h.Register("b", &fakeConn{})

	if got := h.Total(); got != 3 {
		t.Fatalf("total = %d, want 3", got)
	}
}

func TestBroadcast_CountsDeliveredAndSkipped(t *testing.T) {
	h := startHub(t)
	h.Register("a", &fakeConn{})

	delivered, skipped := h.Broadcast([]string{"a", "b", "c"}, map[string]string{"title": "t"})
	if delivered != 1 || skipped != 2 {
		t.Fatalf("delivered=%d skipped=%d, want 1/2", delivered, skipped)
	}
}

func TestStrike_ClosesAfterThreshold(t *testing.T) {
	h := startHub(t)
	conn := &fakeConn{}
	c := h.Register("student-1", conn)

	if h.Strike(c) {
		t.Fatal("first strike must not close the connection")
	}
	if h.Strike(c) {
		t.Fatal("second strike must not close the connection")
	}
	if !h.Strike(c) {
		t.Fatal("third strike must close the connection")
	}
	if got := h.Count("student-1"); got != 0 {
		t.Fatalf("connections = %d after strikeout, want 0", got)
	}
}

func TestUnregister_Idempotent(t *testing.T) {
	h := startHub(t)
	conn := &fakeConn{}
	c := h.Register("student-1", conn)

	h.Unregister(c)
	h.Unregister(c)

	if got := h.Count("student-1"); got != 0 {
		t.Fatalf("connections = %d, want 0", got)
	}
}

func TestSweepIdle_RemovesStaleAndPingsFresh(t *testing.T) {
	// Exercised without the run loop: sweepIdle is loop-internal.
	h := NewHub(zap.NewNop(), time.Minute, time.Hour)
	base := time.Unix(1000, 0)
	h.now = func() time.Time { return base }

	fresh := &fakeConn{}
	stale := &fakeConn{}
	freshC := &Connection{RecipientID: "a", conn: fresh, lastSeen: base.Add(-10 * time.Second)}
	staleC := &Connection{RecipientID: "a", conn: stale, lastSeen: base.Add(-2 * time.Minute)}
	h.conns["a"] = map[*Connection]struct{}{freshC: {}, staleC: {}}

	h.sweepIdle()

	if _, ok := h.conns["a"][staleC]; ok {
		t.Fatal("stale connection must be removed")
	}
	stale.mu.Lock()
	closed := stale.closed
	stale.mu.Unlock()
	if !closed {
		t.Fatal("stale connection must be closed")
	}
	fresh.mu.Lock()
	pings := fresh.pings
	fresh.mu.Unlock()
	if pings != 1 {
		t.Fatalf("fresh connection pings = %d, want 1", pings)
	}
}
