package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateSession_MentorCompletes(t *testing.T) {
	f := newFixture(t)
	res := f.confirmWithSession(t, "r1")

	f.clock.Advance(time.Hour)
	updated, err := f.sessions.UpdateSession(context.Background(), mentor, res.Session.ID, models.SessionUpdate{
		Status:          strPtr("completed"),
		DurationMinutes: intPtr(45),
		Notes:           strPtr("Covered system design basics"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.SessionCompleted, updated.Status)
	require.NotNil(t, updated.DurationMinutes)
	assert.Equal(t, 45, *updated.DurationMinutes)
	assert.Equal(t, "Covered system design basics", updated.Notes)
	assert.True(t, updated.UpdatedAt.After(res.Session.UpdatedAt))
	assert.Contains(t, f.notifier.Types(), models.EventSessionUpdated)
}

func TestUpdateSession_Reschedule(t *testing.T) {
	f := newFixture(t)
	res := f.confirmWithSession(t, "r1")

	when := T.Add(120 * time.Hour)
	updated, err := f.sessions.UpdateSession(context.Background(), mentor, res.Session.ID, models.SessionUpdate{
		SessionDate: strPtr(when.Format(time.RFC3339)),
		Mode:        strPtr("online"),
	})
	require.NoError(t, err)
	assert.True(t, updated.SessionDate.Equal(when))
	assert.Equal(t, models.ModeOnline, updated.Mode)
	assert.Equal(t, models.SessionScheduled, updated.Status)
}

func TestUpdateSession_Errors(t *testing.T) {
	f := newFixture(t)
	res := f.confirmWithSession(t, "r1")
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   models.Actor
		id      string
		update  models.SessionUpdate
		wantErr error
	}{
		{name: "empty update", actor: mentor, id: res.Session.ID, update: models.SessionUpdate{}, wantErr: errors.ErrInvalidInput},
		{name: "missing session", actor: mentor, id: "nope", update: models.SessionUpdate{Notes: strPtr("x")}, wantErr: errors.ErrNotFound},
		{name: "mentee updates", actor: mentee, id: res.Session.ID, update: models.SessionUpdate{Notes: strPtr("x")}, wantErr: errors.ErrForbidden},
		{name: "unknown status", actor: mentor, id: res.Session.ID, update: models.SessionUpdate{Status: strPtr("postponed")}, wantErr: errors.ErrInvalidInput},
		{name: "unknown mode", actor: mentor, id: res.Session.ID, update: models.SessionUpdate{Mode: strPtr("carrier pigeon")}, wantErr: errors.ErrInvalidInput},
		{name: "bad date", actor: mentor, id: res.Session.ID, update: models.SessionUpdate{SessionDate: strPtr("soon")}, wantErr: errors.ErrInvalidInput},
		{name: "negative duration", actor: mentor, id: res.Session.ID, update: models.SessionUpdate{DurationMinutes: intPtr(-5)}, wantErr: errors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sessions.UpdateSession(ctx, tt.actor, tt.id, tt.update)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdateSession_StatusIsOneWay(t *testing.T) {
	f := newFixture(t)
	res := f.confirmWithSession(t, "r1")
	ctx := context.Background()

	_, err := f.sessions.UpdateSession(ctx, mentor, res.Session.ID, models.SessionUpdate{Status: strPtr("cancelled")})
	require.NoError(t, err)

	_, err = f.sessions.UpdateSession(ctx, mentor, res.Session.ID, models.SessionUpdate{Status: strPtr("scheduled")})
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)

	_, err = f.sessions.UpdateSession(ctx, mentor, res.Session.ID, models.SessionUpdate{Status: strPtr("completed")})
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)

	// notes stay editable on a closed session
	updated, err := f.sessions.UpdateSession(ctx, mentor, res.Session.ID, models.SessionUpdate{Notes: strPtr("mentee was ill")})
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, updated.Status)
}

func TestAttachFeedback(t *testing.T) {
	f := newFixture(t)
	res := f.confirmWithSession(t, "r1")
	ctx := context.Background()

	_, err := f.sessions.AttachFeedback(ctx, mentee, res.Session.ID, models.FeedbackPayload{Rating: intPtr(5)})
	assert.ErrorIs(t, err, errors.ErrInvalidState)

	_, err = f.sessions.UpdateSession(ctx, mentor, res.Session.ID, models.SessionUpdate{Status: strPtr("completed")})
	require.NoError(t, err)

	_, err = f.sessions.AttachFeedback(ctx, mentor, res.Session.ID, models.FeedbackPayload{Rating: intPtr(5)})
	assert.ErrorIs(t, err, errors.ErrForbidden)

	f.clock.Advance(time.Hour)
	withFeedback, err := f.sessions.AttachFeedback(ctx, mentee, res.Session.ID, models.FeedbackPayload{
		Rating:  intPtr(5),
		Comment: strPtr("  Very helpful  "),
	})
	require.NoError(t, err)
	require.NotNil(t, withFeedback.Feedback)
	assert.Equal(t, 5, *withFeedback.Feedback.Rating)
	assert.Equal(t, "Very helpful", *withFeedback.Feedback.Comment)
	assert.True(t, withFeedback.Feedback.SubmittedAt.Equal(f.clock.Now()))

	// a second submission replaces the first
	replaced, err := f.sessions.AttachFeedback(ctx, mentee, res.Session.ID, models.FeedbackPayload{Rating: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, *replaced.Feedback.Rating)
	assert.Nil(t, replaced.Feedback.Comment)

	assert.Contains(t, f.notifier.Types(), models.EventFeedbackSubmitted)
}

func TestAttachFeedback_Validation(t *testing.T) {
	f := newFixture(t)
	res := f.confirmWithSession(t, "r1")
	ctx := context.Background()
	_, err := f.sessions.UpdateSession(ctx, mentor, res.Session.ID, models.SessionUpdate{Status: strPtr("completed")})
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload models.FeedbackPayload
	}{
		{name: "nothing", payload: models.FeedbackPayload{}},
		{name: "blank comment", payload: models.FeedbackPayload{Comment: strPtr("   ")}},
		{name: "rating too low", payload: models.FeedbackPayload{Rating: intPtr(0)}},
		{name: "rating too high", payload: models.FeedbackPayload{Rating: intPtr(6)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sessions.AttachFeedback(ctx, mentee, res.Session.ID, tt.payload)
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
		})
	}

	stored, err := f.store.GetSession(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Feedback)
}

func TestGetAndListSessions(t *testing.T) {
	f := newFixture(t)
	res := f.confirmWithSession(t, "r1")
	ctx := context.Background()

	got, err := f.sessions.GetSession(ctx, mentee, res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Session.ID, got.ID)

	_, err = f.sessions.GetSession(ctx, models.Actor{ID: "stranger", Role: models.RoleMentee}, res.Session.ID)
	assert.ErrorIs(t, err, errors.ErrForbidden)

	list, err := f.sessions.ListSessions(ctx, mentor, "")
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = f.sessions.ListSessions(ctx, mentor, models.RoleMentee)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.sessions.ListSessions(ctx, mentor, "admin")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}
