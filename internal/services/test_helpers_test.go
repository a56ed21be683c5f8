package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/internal/repository"
	"github.com/getmentor/getmentor-sessions/internal/services"
	"github.com/getmentor/getmentor-sessions/pkg/logger"
	"github.com/stretchr/testify/require"
)

func init() {
	// Initialize logger for tests
	if err := logger.Initialize(logger.Config{
		Level:       "debug",
		Environment: "development",
	}); err != nil {
		panic(err)
	}
}

// T is the fixed "now" every service test starts from
var T = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

var (
	mentor = models.Actor{ID: "mentor-1", Role: models.RoleMentor}
	mentee = models.Actor{ID: "mentee-1", Role: models.RoleMentee}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: T}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier keeps every event it receives
type recordingNotifier struct {
	mu     sync.Mutex
	events []models.TransitionEvent
}

func (r *recordingNotifier) Notify(ctx context.Context, event models.TransitionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) Types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// fixture wires every service over one store
type fixture struct {
	store     repository.Store
	clock     *fakeClock
	notifier  *recordingNotifier
	requests  *services.RequestService
	lifecycle *services.RequestLifecycleService
	meetings  *services.MeetingChannelService
	sessions  *services.SessionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, repository.NewMemoryStore())
}

func newFixtureWithStore(t *testing.T, store repository.Store) *fixture {
	t.Helper()

	clock := newFakeClock()
	notifier := &recordingNotifier{}
	ids := 0
	var idMu sync.Mutex
	newID := func() string {
		idMu.Lock()
		defer idMu.Unlock()
		ids++
		return fmt.Sprintf("s%d", ids)
	}

	return &fixture{
		store:     store,
		clock:     clock,
		notifier:  notifier,
		requests:  services.NewRequestService(store, nil, clock.Now),
		lifecycle: services.NewRequestLifecycleService(store, services.NewSessionMaterializer(newID, clock.Now), notifier, clock.Now),
		meetings:  services.NewMeetingChannelService(store, notifier, clock.Now),
		sessions:  services.NewSessionService(store, notifier, clock.Now),
	}
}

// createPending stores a pending request r with preferred time T+2d online
func (f *fixture) createPending(t *testing.T, id string) *models.MentorshipRequest {
	t.Helper()
	req, err := f.requests.CreateRequest(context.Background(), &models.CreateRequestPayload{
		ID:                id,
		MentorID:          mentor.ID,
		MenteeID:          mentee.ID,
		ServiceID:         "svc-1",
		ServiceName:       "Career consultation",
		ServiceMode:       models.ModeOnline,
		ServicePrice:      40,
		PreferredDateTime: T.Add(48 * time.Hour),
		PreferredMode:     models.ModeOnline,
		Notes:             "Switching to backend development",
	})
	require.NoError(t, err)
	return req
}

func rawSlot(offset time.Duration, mode models.MeetingMode) models.RawSlot {
	return models.RawSlot{SlotDate: T.Add(offset).Format(time.RFC3339), Mode: string(mode)}
}

func twoSlots() []models.RawSlot {
	return []models.RawSlot{
		rawSlot(72*time.Hour, models.ModeOnline),
		rawSlot(96*time.Hour, models.ModeOffline),
	}
}

// confirmWithSession drives a fresh request to confirmed and returns the session
func (f *fixture) confirmWithSession(t *testing.T, id string) *models.ConfirmResult {
	t.Helper()
	ctx := context.Background()
	f.createPending(t, id)
	_, err := f.lifecycle.Accept(ctx, mentor, id, twoSlots(), models.StatusPending)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	res, err := f.lifecycle.Confirm(ctx, mentee, id, 1, models.StatusAccepted)
	require.NoError(t, err)
	return res
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int { return &i }
