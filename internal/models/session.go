package models

import (
	"time"

	"github.com/jackc/pgx/v5"
)

// SessionStatus represents the status of a materialized session
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// IsValid reports whether s is a known session status
func (s SessionStatus) IsValid() bool {
	return s == SessionScheduled || s == SessionCompleted || s == SessionCancelled
}

// CanTransitionTo checks if a session status change is valid. Setting the
// current value again is allowed and changes nothing.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if s == next {
		return true
	}
	return s == SessionScheduled && (next == SessionCompleted || next == SessionCancelled)
}

// Feedback is the mentee's evaluation of a completed session
type Feedback struct {
	Rating      *int      `json:"rating,omitempty"`
	Comment     *string   `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Session is the schedulable engagement created when a request is confirmed
type Session struct {
	ID              string        `json:"id"`
	RequestID       string        `json:"requestId"`
	MentorID        string        `json:"mentorId"`
	MenteeID        string        `json:"menteeId"`
	ServiceName     string        `json:"serviceName"`
	SessionDate     time.Time     `json:"sessionDate"`
	Mode            MeetingMode   `json:"mode"`
	Status          SessionStatus `json:"status"`
	DurationMinutes *int          `json:"durationMinutes"`
	Notes           string        `json:"notes"`
	Feedback        *Feedback     `json:"feedback"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`

	// Version increments on every write and guards read-modify-write updates
	Version int64 `json:"-"`
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.DurationMinutes != nil {
		d := *s.DurationMinutes
		c.DurationMinutes = &d
	}
	if s.Feedback != nil {
		f := *s.Feedback
		if s.Feedback.Rating != nil {
			r := *s.Feedback.Rating
			f.Rating = &r
		}
		if s.Feedback.Comment != nil {
			cm := *s.Feedback.Comment
			f.Comment = &cm
		}
		c.Feedback = &f
	}
	return &c
}

// IsParticipant reports whether userID is the mentor or the mentee of the session
func (s *Session) IsParticipant(userID string) bool {
	return userID != "" && (s.MentorID == userID || s.MenteeID == userID)
}

// SessionUpdate is a partial update of a session. Nil fields are left untouched.
type SessionUpdate struct {
	SessionDate     *string `json:"sessionDate"`
	Mode            *string `json:"mode"`
	Status          *string `json:"status"`
	DurationMinutes *int    `json:"durationMinutes"`
	Notes           *string `json:"notes" binding:"omitempty,max=5000"`
}

// IsEmpty reports whether the update carries no fields
func (u SessionUpdate) IsEmpty() bool {
	return u.SessionDate == nil && u.Mode == nil && u.Status == nil && u.DurationMinutes == nil && u.Notes == nil
}

// FeedbackPayload is the payload for attaching feedback to a session
type FeedbackPayload struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment" binding:"omitempty,max=5000"`
}

// SessionView is a session as rendered to clients, with its display join state
type SessionView struct {
	Session
	JoinState JoinState `json:"joinState"`
}

// SessionsResponse is the response for listing sessions
type SessionsResponse struct {
	Sessions []SessionView `json:"sessions"`
	Total    int           `json:"total"`
}

// SessionColumns is the column list ScanSession expects
const SessionColumns = `id, request_id, mentor_id, mentee_id, service_name, session_date, mode, status,
	duration_minutes, notes, feedback_rating, feedback_comment, feedback_submitted_at, created_at, updated_at, version`

// ScanSession scans a single PostgreSQL row into a Session.
// Expected columns are SessionColumns in order.
func ScanSession(row pgx.Row) (*Session, error) {
	var s Session
	var duration *int32
	var notes *string
	var rating *int32
	var comment *string
	var submittedAt *time.Time

	err := row.Scan(
		&s.ID,
		&s.RequestID,
		&s.MentorID,
		&s.MenteeID,
		&s.ServiceName,
		&s.SessionDate,
		&s.Mode,
		&s.Status,
		&duration,
		&notes,
		&rating,
		&comment,
		&submittedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.Version,
	)
	if err != nil {
		return nil, err
	}

	if duration != nil {
		d := int(*duration)
		s.DurationMinutes = &d
	}
	if notes != nil {
		s.Notes = *notes
	}
	if submittedAt != nil {
		f := &Feedback{Comment: comment, SubmittedAt: *submittedAt}
		if rating != nil {
			r := int(*rating)
			f.Rating = &r
		}
		s.Feedback = f
	}

	return &s, nil
}
