package services

import (
	"context"
	"fmt"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/internal/repository"
	"github.com/getmentor/getmentor-sessions/pkg/errors"
	"github.com/google/uuid"
)

// SessionMaterializer creates the Session for a freshly confirmed request.
// It runs inside the confirm transaction; any error aborts it.
type SessionMaterializer struct {
	newID func() string
	clock Clock
}

// NewSessionMaterializer creates a materializer. A nil newID generates UUIDs.
func NewSessionMaterializer(newID func() string, clock Clock) *SessionMaterializer {
	if newID == nil {
		newID = uuid.NewString
	}
	return &SessionMaterializer{newID: newID, clock: clock}
}

// Materialize stores a scheduled session copied from the confirmed request
func (m *SessionMaterializer) Materialize(ctx context.Context, sessions repository.SessionStore, req *models.MentorshipRequest) (*models.Session, error) {
	if req.Status != models.StatusConfirmed || req.ScheduledDateTime == nil || req.ScheduledMode == nil {
		return nil, errors.InvalidStateError(fmt.Sprintf("request %s has no confirmed slot", req.ID))
	}

	now := m.clock.now()
	session := &models.Session{
		ID:          m.newID(),
		RequestID:   req.ID,
		MentorID:    req.MentorID,
		MenteeID:    req.MenteeID,
		ServiceName: req.ServiceName,
		SessionDate: *req.ScheduledDateTime,
		Mode:        *req.ScheduledMode,
		Status:      models.SessionScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to materialize session for request %s: %w", req.ID, err)
	}
	return session, nil
}
