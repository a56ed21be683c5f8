package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/internal/notify"
	"github.com/getmentor/getmentor-sessions/internal/repository"
	"github.com/getmentor/getmentor-sessions/pkg/errors"
	"github.com/getmentor/getmentor-sessions/pkg/logger"
	"github.com/getmentor/getmentor-sessions/pkg/metrics"
	"github.com/getmentor/getmentor-sessions/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	minRating = 1
	maxRating = 5
)

// SessionService manages materialized sessions after confirmation
type SessionService struct {
	store    repository.SessionStore
	notifier notify.Notifier
	clock    Clock
}

// NewSessionService creates a new SessionService
func NewSessionService(store repository.SessionStore, notifier notify.Notifier, clock Clock) *SessionService {
	return &SessionService{
		store:    store,
		notifier: orNop(notifier),
		clock:    clock,
	}
}

// GetSession returns a session to one of its participants
func (s *SessionService) GetSession(ctx context.Context, actor models.Actor, sessionID string) (*models.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsParticipant(actor.ID) {
		logger.Warn("Access denied to session",
			zap.String("session_id", sessionID),
			zap.String("actor_id", actor.ID))
		return nil, errors.ForbiddenError("not a participant of the session")
	}
	return session, nil
}

// ListSessions returns the actor's sessions in the given role (the token role when empty)
func (s *SessionService) ListSessions(ctx context.Context, actor models.Actor, role models.Role) ([]*models.Session, error) {
	if role == "" {
		role = actor.Role
	}

	switch role {
	case models.RoleMentor:
		return s.store.ListSessionsByMentor(ctx, actor.ID)
	case models.RoleMentee:
		return s.store.ListSessionsByMentee(ctx, actor.ID)
	default:
		return nil, errors.InvalidInputError("role", fmt.Sprintf("unknown role %q", role))
	}
}

// UpdateSession applies a partial update from the session's mentor.
// Status only moves forward from scheduled; everything else may change freely.
func (s *SessionService) UpdateSession(ctx context.Context, actor models.Actor, sessionID string, update models.SessionUpdate) (result *models.Session, err error) {
	ctx, span := tracing.StartSpan(ctx, "SessionLifecycle.UpdateSession", attribute.String("session.id", sessionID))
	defer func() {
		tracing.EndSpan(span, err)
		metrics.SessionUpdates.WithLabelValues(outcomeOf(err)).Inc()
	}()

	if update.IsEmpty() {
		return nil, errors.InvalidInputError("update", "no fields to update")
	}

	current, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if actor.Role != models.RoleMentor || current.MentorID != actor.ID {
		logger.Warn("Access denied to session update",
			zap.String("session_id", sessionID),
			zap.String("actor_id", actor.ID))
		return nil, errors.ForbiddenError("only the mentor of the session may update it")
	}

	next, err := applySessionUpdate(current, update)
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = s.clock.now()

	updated, err := s.store.UpdateSession(ctx, next, current.Status)
	if err != nil {
		if errors.Is(err, errors.ErrConflict) {
			return nil, &errors.TransitionError{Op: "updateSession", ID: sessionID, Expected: string(current.Status), Conflict: true}
		}
		return nil, err
	}

	logger.Info("Session updated",
		zap.String("session_id", sessionID),
		zap.String("from_status", string(current.Status)),
		zap.String("to_status", string(updated.Status)))

	dispatch(ctx, s.notifier, models.TransitionEvent{
		Type:       models.EventSessionUpdated,
		RequestID:  updated.RequestID,
		SessionID:  updated.ID,
		MentorID:   updated.MentorID,
		MenteeID:   updated.MenteeID,
		ActorID:    actor.ID,
		FromStatus: string(current.Status),
		ToStatus:   string(updated.Status),
		OccurredAt: updated.UpdatedAt,
	})

	return updated, nil
}

// applySessionUpdate validates update and returns the resulting session
func applySessionUpdate(current *models.Session, update models.SessionUpdate) (*models.Session, error) {
	next := current.Clone()

	if update.Status != nil {
		status := models.SessionStatus(*update.Status)
		if !status.IsValid() {
			return nil, errors.InvalidInputError("status", fmt.Sprintf("unknown session status %q", *update.Status))
		}
		if !current.Status.CanTransitionTo(status) {
			return nil, &errors.TransitionError{
				Op:       "updateSession",
				ID:       current.ID,
				Expected: string(models.SessionScheduled),
				Actual:   string(current.Status),
			}
		}
		next.Status = status
	}

	if update.SessionDate != nil {
		date, err := time.Parse(time.RFC3339, strings.TrimSpace(*update.SessionDate))
		if err != nil {
			return nil, errors.InvalidInputError("sessionDate", "must be an RFC3339 timestamp")
		}
		next.SessionDate = date.UTC().Truncate(time.Second)
	}

	if update.Mode != nil {
		mode := models.MeetingMode(*update.Mode)
		if !mode.IsValid() {
			return nil, errors.InvalidInputError("mode", fmt.Sprintf("unknown meeting mode %q", *update.Mode))
		}
		next.Mode = mode
	}

	if update.DurationMinutes != nil {
		if *update.DurationMinutes < 0 {
			return nil, errors.InvalidInputError("durationMinutes", "must not be negative")
		}
		d := *update.DurationMinutes
		next.DurationMinutes = &d
	}

	if update.Notes != nil {
		next.Notes = *update.Notes
	}

	return next, nil
}

// AttachFeedback stores the mentee's feedback on a completed session.
// A second submission replaces the first.
func (s *SessionService) AttachFeedback(ctx context.Context, actor models.Actor, sessionID string, payload models.FeedbackPayload) (result *models.Session, err error) {
	ctx, span := tracing.StartSpan(ctx, "SessionLifecycle.AttachFeedback", attribute.String("session.id", sessionID))
	defer func() {
		tracing.EndSpan(span, err)
		metrics.FeedbackSubmissions.WithLabelValues(outcomeOf(err)).Inc()
	}()

	current, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if actor.Role != models.RoleMentee || current.MenteeID != actor.ID {
		logger.Warn("Access denied to session feedback",
			zap.String("session_id", sessionID),
			zap.String("actor_id", actor.ID))
		return nil, errors.ForbiddenError("only the mentee of the session may leave feedback")
	}

	if current.Status != models.SessionCompleted {
		return nil, errors.InvalidStateError(fmt.Sprintf("feedback requires a completed session, session is %q", current.Status))
	}

	feedback, err := validateFeedback(payload)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	updated, err := s.store.SetSessionFeedback(ctx, sessionID, feedback, now)
	if err != nil {
		return nil, err
	}

	logger.Info("Session feedback submitted",
		zap.String("session_id", sessionID),
		zap.Bool("has_rating", feedback.Rating != nil),
		zap.Bool("has_comment", feedback.Comment != nil))

	dispatch(ctx, s.notifier, models.TransitionEvent{
		Type:       models.EventFeedbackSubmitted,
		RequestID:  updated.RequestID,
		SessionID:  updated.ID,
		MentorID:   updated.MentorID,
		MenteeID:   updated.MenteeID,
		ActorID:    actor.ID,
		OccurredAt: now,
	})

	return updated, nil
}

func validateFeedback(payload models.FeedbackPayload) (models.Feedback, error) {
	var f models.Feedback

	if payload.Rating != nil {
		if *payload.Rating < minRating || *payload.Rating > maxRating {
			return f, errors.InvalidInputError("rating", fmt.Sprintf("must be between %d and %d", minRating, maxRating))
		}
		r := *payload.Rating
		f.Rating = &r
	}

	if payload.Comment != nil {
		if c := strings.TrimSpace(*payload.Comment); c != "" {
			f.Comment = &c
		}
	}

	if f.Rating == nil && f.Comment == nil {
		return f, errors.InvalidInputError("feedback", "rating or comment is required")
	}
	return f, nil
}
