package models

import "time"

// JoinState is the display state of a session derived from the clock
type JoinState string

const (
	JoinStateStartsAt JoinState = "starts_at"
	JoinStateJoin     JoinState = "join"
	JoinStateExpired  JoinState = "expired"
)

const (
	// JoinWindowLead is how long before the start the join window opens
	JoinWindowLead = 10 * time.Minute

	// DefaultSessionDuration applies when a session has no recorded duration
	DefaultSessionDuration = 60 * time.Minute
)

// ProjectJoinState computes the join state of a session starting at start.
// It is a display projection and never changes the session status.
func ProjectJoinState(start time.Time, durationMinutes *int, now time.Time) JoinState {
	duration := DefaultSessionDuration
	if durationMinutes != nil && *durationMinutes > 0 {
		duration = time.Duration(*durationMinutes) * time.Minute
	}

	switch {
	case now.Before(start.Add(-JoinWindowLead)):
		return JoinStateStartsAt
	case now.Before(start.Add(duration)):
		return JoinStateJoin
	default:
		return JoinStateExpired
	}
}

// NewSessionView wraps a session with its join state at now.
// Only scheduled sessions can be joined; completed and cancelled ones show expired.
func NewSessionView(s *Session, now time.Time) SessionView {
	state := JoinStateExpired
	if s.Status == SessionScheduled {
		state = ProjectJoinState(s.SessionDate, s.DurationMinutes, now)
	}
	return SessionView{
		Session:   *s,
		JoinState: state,
	}
}
