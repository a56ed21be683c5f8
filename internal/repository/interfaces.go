package repository

import (
	"context"
	"time"

	"github.com/getmentor/getmentor-sessions/internal/models"
)

// RequestStore persists mentorship requests.
// Status changes go through TransitionRequest, which is a compare-and-swap on status.
type RequestStore interface {
	// CreateRequest stores a new request; a duplicate id yields ErrConflict
	CreateRequest(ctx context.Context, req *models.MentorshipRequest) error

	// GetRequest fetches a request by id; unknown ids yield ErrNotFound
	GetRequest(ctx context.Context, id string) (*models.MentorshipRequest, error)

	// ListRequestsByMentor returns the mentor's requests in the given statuses, newest first
	ListRequestsByMentor(ctx context.Context, mentorID string, statuses []models.RequestStatus) ([]*models.MentorshipRequest, error)

	// ListRequestsByMentee returns the mentee's requests in the given statuses, newest first
	ListRequestsByMentee(ctx context.Context, menteeID string, statuses []models.RequestStatus) ([]*models.MentorshipRequest, error)

	// TransitionRequest applies t only if the stored status equals t.From.
	// A miss on an existing record yields ErrConflict.
	TransitionRequest(ctx context.Context, id string, t models.RequestTransition) (*models.MentorshipRequest, error)

	// UpdateMeetingLink sets the link while the stored status allows it, otherwise ErrInvalidState.
	// updatedAt only moves when the link actually changes.
	UpdateMeetingLink(ctx context.Context, id, link string, at time.Time) (*models.MentorshipRequest, error)
}

// SessionStore persists materialized sessions
type SessionStore interface {
	// CreateSession stores a new session; a second session for the same request yields ErrConflict
	CreateSession(ctx context.Context, s *models.Session) error

	// GetSession fetches a session by id; unknown ids yield ErrNotFound
	GetSession(ctx context.Context, id string) (*models.Session, error)

	// GetSessionByRequest fetches the session materialized from a request
	GetSessionByRequest(ctx context.Context, requestID string) (*models.Session, error)

	// ListSessionsByMentor returns the mentor's sessions, latest session date first
	ListSessionsByMentor(ctx context.Context, mentorID string) ([]*models.Session, error)

	// ListSessionsByMentee returns the mentee's sessions, latest session date first
	ListSessionsByMentee(ctx context.Context, menteeID string) ([]*models.Session, error)

	// UpdateSession writes the mutable fields of s if the stored status still equals expected
	// and the stored version still equals s.Version.
	// A miss on an existing record yields ErrConflict.
	UpdateSession(ctx context.Context, s *models.Session, expected models.SessionStatus) (*models.Session, error)

	// SetSessionFeedback stores feedback on a completed session, replacing any previous one.
	// Sessions in any other status yield ErrInvalidState.
	SetSessionFeedback(ctx context.Context, id string, f models.Feedback, at time.Time) (*models.Session, error)
}

// Store is the full persistence surface. WithinTx runs fn against a transactional view;
// every write fn makes is discarded if fn returns an error.
type Store interface {
	RequestStore
	SessionStore

	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
