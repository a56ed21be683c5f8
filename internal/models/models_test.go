package models_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRow implements pgx.Row by assigning values to destinations positionally.
// A nil value leaves the destination at its zero value.
type mockRow struct {
	values []any
	err    error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	for i, v := range m.values {
		if i >= len(dest) || v == nil {
			continue
		}
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

func TestRequestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     models.RequestStatus
		to       models.RequestStatus
		expected bool
	}{
		{models.StatusPending, models.StatusAccepted, true},
		{models.StatusPending, models.StatusRejected, true},
		{models.StatusPending, models.StatusReview, true},
		{models.StatusPending, models.StatusConfirmed, false},
		{models.StatusReview, models.StatusAccepted, true},
		{models.StatusReview, models.StatusRejected, true},
		{models.StatusReview, models.StatusReview, false},
		{models.StatusAccepted, models.StatusConfirmed, true},
		{models.StatusAccepted, models.StatusRejected, false},
		{models.StatusRejected, models.StatusPending, false},
		{models.StatusConfirmed, models.StatusRejected, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestRequestStatus_Terminal(t *testing.T) {
	assert.True(t, models.StatusRejected.IsTerminalStatus())
	assert.True(t, models.StatusConfirmed.IsTerminalStatus())
	assert.False(t, models.StatusAccepted.IsTerminalStatus())
	assert.False(t, models.RequestStatus("archived").IsValid())
}

func TestRequestGroup_GetStatuses(t *testing.T) {
	assert.ElementsMatch(t,
		[]models.RequestStatus{models.StatusPending, models.StatusReview, models.StatusAccepted},
		models.RequestGroupActive.GetStatuses())
	assert.ElementsMatch(t,
		[]models.RequestStatus{models.StatusRejected, models.StatusConfirmed},
		models.RequestGroupPast.GetStatuses())
	assert.Nil(t, models.RequestGroup("other").GetStatuses())
}

func TestSessionStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, models.SessionScheduled.CanTransitionTo(models.SessionCompleted))
	assert.True(t, models.SessionScheduled.CanTransitionTo(models.SessionCancelled))
	assert.True(t, models.SessionCompleted.CanTransitionTo(models.SessionCompleted))
	assert.False(t, models.SessionCompleted.CanTransitionTo(models.SessionScheduled))
	assert.False(t, models.SessionCancelled.CanTransitionTo(models.SessionCompleted))
}

func TestMentorshipRequest_Clone(t *testing.T) {
	when := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mode := models.ModeOnline
	link := "https://meet.example/abc"
	orig := &models.MentorshipRequest{
		ID:                "r1",
		ProposedSlots:     []models.ProposedSlot{{SlotDate: when, Mode: models.ModeOnline}},
		ScheduledDateTime: &when,
		ScheduledMode:     &mode,
		MeetingLink:       &link,
	}

	c := orig.Clone()
	c.ProposedSlots[0].Mode = models.ModeOffline
	*c.MeetingLink = "https://other.example"

	assert.Equal(t, models.ModeOnline, orig.ProposedSlots[0].Mode)
	assert.Equal(t, "https://meet.example/abc", *orig.MeetingLink)
	assert.Nil(t, (*models.MentorshipRequest)(nil).Clone())
}

func TestProjectJoinState(t *testing.T) {
	start := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	thirty := 30

	tests := []struct {
		name     string
		now      time.Time
		duration *int
		expected models.JoinState
	}{
		{"well before start", start.Add(-time.Hour), nil, models.JoinStateStartsAt},
		{"window opens ten minutes before", start.Add(-10 * time.Minute), nil, models.JoinStateJoin},
		{"during default hour", start.Add(59 * time.Minute), nil, models.JoinStateJoin},
		{"after default hour", start.Add(60 * time.Minute), nil, models.JoinStateExpired},
		{"after custom duration", start.Add(31 * time.Minute), &thirty, models.JoinStateExpired},
		{"within custom duration", start.Add(29 * time.Minute), &thirty, models.JoinStateJoin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, models.ProjectJoinState(start, tt.duration, tt.now))
		})
	}
}

func TestNewSessionView_JoinStateFollowsStatus(t *testing.T) {
	start := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	during := start.Add(5 * time.Minute)

	tests := []struct {
		status   models.SessionStatus
		expected models.JoinState
	}{
		{models.SessionScheduled, models.JoinStateJoin},
		{models.SessionCompleted, models.JoinStateExpired},
		{models.SessionCancelled, models.JoinStateExpired},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			view := models.NewSessionView(&models.Session{ID: "s1", SessionDate: start, Status: tt.status}, during)
			assert.Equal(t, tt.expected, view.JoinState)
			assert.Equal(t, tt.status, view.Status)
		})
	}
}

func TestScanMentorshipRequest(t *testing.T) {
	created := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	slotDate := created.Add(72 * time.Hour)
	scheduled := slotDate
	link := "https://meet.example/abc"
	notes := "Career advice"

	row := &mockRow{values: []any{
		"r1", "mentor-1", "mentee-1", "svc-1", "Career chat", models.ModeOnline, 50.0,
		created.Add(48 * time.Hour), models.ModeOnline,
		[]byte(`[{"slotDate":"` + slotDate.Format(time.RFC3339) + `","mode":"offline"}]`),
		&scheduled, &[]string{"offline"}[0], &link, models.StatusConfirmed, &notes,
		created, created.Add(time.Hour),
	}}

	r, err := models.ScanMentorshipRequest(row)
	require.NoError(t, err)

	assert.Equal(t, "r1", r.ID)
	assert.Equal(t, models.StatusConfirmed, r.Status)
	require.Len(t, r.ProposedSlots, 1)
	assert.True(t, slotDate.Equal(r.ProposedSlots[0].SlotDate))
	assert.Equal(t, models.ModeOffline, r.ProposedSlots[0].Mode)
	require.NotNil(t, r.ScheduledMode)
	assert.Equal(t, models.ModeOffline, *r.ScheduledMode)
	assert.Equal(t, "Career advice", r.Notes)
}

func TestScanMentorshipRequest_NullableFields(t *testing.T) {
	created := time.Now()
	row := &mockRow{values: []any{
		"r2", "mentor-1", "mentee-1", "svc-1", "Career chat", models.ModeOnline, 0.0,
		created, models.ModeOffline, nil, nil, nil, nil, models.StatusPending, nil,
		created, created,
	}}

	r, err := models.ScanMentorshipRequest(row)
	require.NoError(t, err)

	assert.NotNil(t, r.ProposedSlots)
	assert.Empty(t, r.ProposedSlots)
	assert.Nil(t, r.ScheduledDateTime)
	assert.Nil(t, r.ScheduledMode)
	assert.Nil(t, r.MeetingLink)
	assert.Empty(t, r.Notes)
}

func TestScanMentorshipRequest_Error(t *testing.T) {
	_, err := models.ScanMentorshipRequest(&mockRow{err: errors.New("boom")})
	assert.Error(t, err)
}

func TestScanSession_WithFeedback(t *testing.T) {
	now := time.Now()
	duration := int32(45)
	rating := int32(5)
	comment := "Great session"

	row := &mockRow{values: []any{
		"s1", "r1", "mentor-1", "mentee-1", "Career chat", now, models.ModeOffline,
		models.SessionCompleted, &duration, nil, &rating, &comment, &now, now, now, int64(3),
	}}

	s, err := models.ScanSession(row)
	require.NoError(t, err)

	require.NotNil(t, s.DurationMinutes)
	assert.Equal(t, 45, *s.DurationMinutes)
	require.NotNil(t, s.Feedback)
	require.NotNil(t, s.Feedback.Rating)
	assert.Equal(t, 5, *s.Feedback.Rating)
	assert.Equal(t, "Great session", *s.Feedback.Comment)
	assert.Equal(t, int64(3), s.Version)
}

func TestScanSession_WithoutFeedback(t *testing.T) {
	now := time.Now()
	row := &mockRow{values: []any{
		"s1", "r1", "mentor-1", "mentee-1", "Career chat", now, models.ModeOnline,
		models.SessionScheduled, nil, nil, nil, nil, nil, now, now,
	}}

	s, err := models.ScanSession(row)
	require.NoError(t, err)
	assert.Nil(t, s.Feedback)
	assert.Nil(t, s.DurationMinutes)
}
