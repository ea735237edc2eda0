package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"notifyhub/models"
	"notifyhub/services/ratelimit"
	"notifyhub/services/realtime"
	"notifyhub/services/resilience"

	"go.uber.org/zap"
)

type fakeNotificationRepo struct {
	mu      sync.Mutex
	created []models.Notification
}

func (r *fakeNotificationRepo) Create(n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, *n)
	return nil
}

func (r *fakeNotificationRepo) GetByID(id string) (*models.Notification, error) { return nil, nil }

func (r *fakeNotificationRepo) ListByRecipient(recipientID string, onlyUnread bool, limit int64) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.created {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(id, recipientID string) error         { return nil }
func (r *fakeNotificationRepo) MarkAllRead(recipientID string) (int64, error) { return 0, nil }
func (r *fakeNotificationRepo) SetDeliveredAt(id string) error                { return nil }
func (r *fakeNotificationRepo) CountUnread(recipientID string) (int64, error) { return 0, nil }

func (r *fakeNotificationRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}

type fakePreferenceRepo struct {
	mu   sync.Mutex
	rows map[string]*models.RecipientPreferences
}

func (r *fakePreferenceRepo) Get(recipientID string) (*models.RecipientPreferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[recipientID], nil
}

func (r *fakePreferenceRepo) Upsert(p *models.RecipientPreferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rows == nil {
		r.rows = make(map[string]*models.RecipientPreferences)
	}
	r.rows[p.RecipientID] = p
	return nil
}

type fakeReminderRepo struct {
	mu      sync.Mutex
	created []models.ScheduledReminder
}

func (r *fakeReminderRepo) Create(rem *models.ScheduledReminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, *rem)
	return nil
}

func (r *fakeReminderRepo) DueBefore(now time.Time, limit int) ([]models.ScheduledReminder, error) {
	return nil, nil
}

func (r *fakeReminderRepo) MarkSent(id string) error { return nil }

func (r *fakeReminderRepo) DeleteForSubject(kind, subjectID string) (int64, error) { return 0, nil }

type fakeDeliveryRepo struct {
	mu   sync.Mutex
	logs []models.DeliveryLog
}

func (r *fakeDeliveryRepo) Record(l *models.DeliveryLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *l)
	return nil
}

func (r *fakeDeliveryRepo) ListByNotification(notificationID string) ([]models.DeliveryLog, error) {
	return nil, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent int
	err  error
}

func (s *fakeSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent++
	return nil
}

type fakeCounterStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (s *fakeCounterStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts == nil {
		s.counts = make(map[string]int64)
	}
	s.counts[key]++
	return s.counts[key], nil
}

type serviceEnv struct {
	notifications *fakeNotificationRepo
	preferences   *fakePreferenceRepo
	reminders     *fakeReminderRepo
	deliveries    *fakeDeliveryRepo
	sender        *fakeSender
	service       *DefaultService
}

func newServiceEnv(t *testing.T, createCeiling int64) *serviceEnv {
	t.Helper()
	env := &serviceEnv{
		notifications: &fakeNotificationRepo{},
		preferences:   &fakePreferenceRepo{},
		reminders:     &fakeReminderRepo{},
		deliveries:    &fakeDeliveryRepo{},
		sender:        &fakeSender{},
	}

	hub := realtime.NewHub(zap.NewNop(), time.Minute, time.Hour)
	stop := make(chan struct{})
	go hub.Run(stop)
	t.Cleanup(func() { close(stop) })

	limiter := ratelimit.NewLimiter(&fakeCounterStore{}, zap.NewNop())
	limits := ratelimit.NewRegistry(limiter, ratelimit.Policy{
		Name:    ratelimit.ActionCreate,
		Window:  time.Minute,
		Ceiling: createCeiling,
	})

	retry := resilience.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	breaker := resilience.BreakerConfig{FailureThreshold: 100, RecoveryTimeout: time.Minute, SuccessesRequired: 1}

	env.service = &DefaultService{
		Notifications: env.notifications,
		Preferences:   env.preferences,
		Reminders:     env.reminders,
		Deliveries:    env.deliveries,
		Hub:           hub,
		Email:         env.sender,
		Resilience:    resilience.NewRegistry(zap.NewNop(), retry, breaker),
		Limits:        limits,
		Logger:        zap.NewNop(),
	}
	return env
}

func validCreateRequest(recipient string) models.CreateNotificationRequest {
	return models.CreateNotificationRequest{
		RecipientID: recipient,
		Title:       "Workshop moved",
		Message:     "The screen printing workshop now starts at 14:00.",
		Category:    models.CategoryInformational,
	}
}

func student(id string) models.Identity {
	return models.Identity{CallerID: id, Role: models.RoleStudent}
}

func TestCreate_RejectsInvalidRequests(t *testing.T) {
	env := newServiceEnv(t, 100)
	ctx := context.Background()

	cases := []struct {
		name string
		req  models.CreateNotificationRequest
	}{
		{"missing recipient", models.CreateNotificationRequest{Title: "t", Message: "m", Category: models.CategoryInformational}},
		{"missing title", models.CreateNotificationRequest{RecipientID: "s", Message: "m", Category: models.CategoryInformational}},
		{"missing message", models.CreateNotificationRequest{RecipientID: "s", Title: "t", Category: models.CategoryInformational}},
		{"unknown category", models.CreateNotificationRequest{RecipientID: "s", Title: "t", Message: "m", Category: "gossip"}},
		{"unknown priority", func() models.CreateNotificationRequest {
			r := validCreateRequest("s")
			r.Priority = "extreme"
			return r
		}()},
	}
	for _, tc := range cases {
		if _, err := env.service.Create(ctx, student("caller"), tc.req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("%s: err = %v, want ErrInvalidRequest", tc.name, err)
		}
	}
	if env.notifications.count() != 0 {
		t.Fatal("invalid requests must not persist anything")
	}
}

func TestCreate_DefaultsPriorityToMedium(t *testing.T) {
	env := newServiceEnv(t, 100)

	n, err := env.service.Create(context.Background(), student("caller"), validCreateRequest("student-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.Priority != models.PriorityMedium {
		t.Fatalf("priority = %s, want medium default", n.Priority)
	}
	if n.ID == "" {
		t.Fatal("created notification must carry an id")
	}
}

func TestCreate_EnforcesCallerRateLimit(t *testing.T) {
	env := newServiceEnv(t, 10)
	ctx := context.Background()

	allowed, limited := 0, 0
	for i := 0; i < 15; i++ {
		_, err := env.service.Create(ctx, student("prolific"), validCreateRequest("student-1"))
		if err == nil {
			allowed++
			continue
		}
		rl, ok := IsRateLimited(err)
		if !ok {
			t.Fatalf("unexpected error: %v", err)
		}
		limited++
		if rl.RetryAfter <= 0 || rl.RetryAfter > time.Minute {
			t.Fatalf("rate limit error without usable retryAfter: %v", err)
		}
	}
	if allowed != 10 || limited != 5 {
		t.Fatalf("allowed=%d limited=%d, want 10/5", allowed, limited)
	}
	if env.notifications.count() != 10 {
		t.Fatalf("persisted = %d, want 10", env.notifications.count())
	}
}

func TestCreate_EmailFailureDoesNotFailCreate(t *testing.T) {
	env := newServiceEnv(t, 100)
	env.sender.err = errors.New("relay refused")
	env.preferences.Upsert(&models.RecipientPreferences{
		RecipientID:  "student-1",
		EmailEnabled: true,
		Email:        "student-1@example.edu",
	})

	n, err := env.service.Create(context.Background(), student("caller"), validCreateRequest("student-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n == nil {
		t.Fatal("notification must be returned despite channel failure")
	}

	env.deliveries.mu.Lock()
	defer env.deliveries.mu.Unlock()
	found := false
	for _, l := range env.deliveries.logs {
		if l.Channel == models.ChannelEmail && l.Status == models.DeliveryFailed {
			found = true
		}
	}
	if !found {
		t.Fatal("failed email attempt must be recorded in the delivery log")
	}
}

func TestDeliver_DisabledCategorySkips(t *testing.T) {
	env := newServiceEnv(t, 100)
	env.preferences.Upsert(&models.RecipientPreferences{
		RecipientID:  "student-1",
		EmailEnabled: true,
		Email:        "student-1@example.edu",
		Categories:   map[string]bool{models.CategoryWarning: false},
	})

	req := validCreateRequest("student-1")
	req.Category = models.CategoryWarning
	if _, err := env.service.Create(context.Background(), student("caller"), req); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if env.notifications.count() != 1 {
		t.Fatal("the durable record is created regardless of channel preferences")
	}
	env.sender.mu.Lock()
	sent := env.sender.sent
	env.sender.mu.Unlock()
	if sent != 0 {
		t.Fatal("no channel may fire for a disabled category")
	}
}

func TestBroadcast_RequiresPrivilegedRole(t *testing.T) {
	env := newServiceEnv(t, 100)

	_, err := env.service.Broadcast(context.Background(), student("caller"), models.BroadcastRequest{
		RecipientIDs: []string{"a"},
		Title:        "t",
		Message:      "m",
		Category:     models.CategoryInformational,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestBroadcast_CreatesPerRecipient(t *testing.T) {
	env := newServiceEnv(t, 100)
	staff := models.Identity{CallerID: "registrar", Role: models.RoleStaff}

	result, err := env.service.Broadcast(context.Background(), staff, models.BroadcastRequest{
		RecipientIDs: []string{"a", "b", "c"},
		Title:        "Campus closed",
		Message:      "All workshops on Friday are cancelled.",
		Category:     models.CategoryWarning,
	})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if result.Created != 3 || result.Skipped != 0 {
		t.Fatalf("result = %+v, want 3 created", result)
	}
	if env.notifications.count() != 3 {
		t.Fatalf("persisted = %d, want 3", env.notifications.count())
	}
}

func TestBroadcast_NotChargedToCreateCeiling(t *testing.T) {
	env := newServiceEnv(t, 10)
	staff := models.Identity{CallerID: "registrar", Role: models.RoleStaff}

	recipients := make([]string, 15)
	for i := range recipients {
		recipients[i] = fmt.Sprintf("student-%d", i)
	}
	result, err := env.service.Broadcast(context.Background(), staff, models.BroadcastRequest{
		RecipientIDs: recipients,
		Title:        "Campus closed",
		Message:      "All workshops on Friday are cancelled.",
		Category:     models.CategoryWarning,
	})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if result.Created != 15 || result.Skipped != 0 {
		t.Fatalf("result = %+v, want all 15 created past the create ceiling", result)
	}

	// The caller's own create window is untouched by the broadcast.
	if _, err := env.service.Create(context.Background(), student("registrar"), validCreateRequest("student-0")); err != nil {
		t.Fatalf("Create after broadcast: %v", err)
	}
}

func TestBroadcast_HasOwnCeiling(t *testing.T) {
	env := newServiceEnv(t, 100)
	limiter := ratelimit.NewLimiter(&fakeCounterStore{}, zap.NewNop())
	env.service.Limits = ratelimit.NewRegistry(limiter, ratelimit.Policy{
		Name:    ratelimit.ActionBroadcast,
		Window:  time.Minute,
		Ceiling: 1,
	})
	staff := models.Identity{CallerID: "registrar", Role: models.RoleStaff}
	req := models.BroadcastRequest{
		RecipientIDs: []string{"a", "b"},
		Title:        "t",
		Message:      "m",
		Category:     models.CategoryInformational,
	}

	if _, err := env.service.Broadcast(context.Background(), staff, req); err != nil {
		t.Fatalf("first broadcast: %v", err)
	}
	_, err := env.service.Broadcast(context.Background(), staff, req)
	if _, ok := IsRateLimited(err); !ok {
		t.Fatalf("err = %v, want rate limit denial", err)
	}
}

func TestScheduleForDeadline_DropsUnusableOffsets(t *testing.T) {
	env := newServiceEnv(t, 100)
	env.preferences.Upsert(&models.RecipientPreferences{
		RecipientID:     "student-1",
		ReminderOffsets: []int{1, 24, 72},
	})

	// 30 hours out: the 72h offset would fire in the past and is dropped.
	subject := models.ReminderSubject{
		Kind:     models.SubjectCertificate,
		ID:       "cert-5",
		Label:    "Forklift Certification",
		Deadline: time.Now().Add(30 * time.Hour),
	}

	created, err := env.service.ScheduleForDeadline(context.Background(), "student-1", subject)
	if err != nil {
		t.Fatalf("ScheduleForDeadline: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created = %d reminders, want 2", len(created))
	}
	for _, rem := range created {
		if !rem.FireAt.Before(subject.Deadline) {
			t.Fatalf("reminder %s fires at/after the deadline", rem.ID)
		}
		if rem.FireAt.Before(time.Now().Add(-time.Second)) {
			t.Fatalf("reminder %s fires in the past", rem.ID)
		}
	}
}

func TestScheduleForDeadline_RejectsUnknownKind(t *testing.T) {
	env := newServiceEnv(t, 100)

	_, err := env.service.ScheduleForDeadline(context.Background(), "student-1", models.ReminderSubject{
		Kind:     "meeting",
		ID:       "m-1",
		Label:    "Sync",
		Deadline: time.Now().Add(time.Hour),
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestGetPreferences_DefaultsWhenNoRow(t *testing.T) {
	env := newServiceEnv(t, 100)

	prefs, err := env.service.GetPreferences(context.Background(), "fresh-student")
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if !prefs.LiveEnabled || !prefs.EmailEnabled || !prefs.PushEnabled {
		t.Fatalf("defaults must enable every channel: %+v", prefs)
	}
	if got := prefs.Offsets(); len(got) != len(models.DefaultReminderOffsets) {
		t.Fatalf("default offsets = %v", got)
	}
}
