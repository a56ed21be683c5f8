package models

import "time"

// EventType identifies a completed transition
type EventType string

const (
	EventRequestAccepted   EventType = "request.accepted"
	EventRequestRejected   EventType = "request.rejected"
	EventRequestReview     EventType = "request.review"
	EventRequestConfirmed  EventType = "request.confirmed"
	EventMeetingLinkSet    EventType = "request.meeting_link_set"
	EventSessionUpdated    EventType = "session.updated"
	EventFeedbackSubmitted EventType = "session.feedback_submitted"
)

// TransitionEvent is emitted after a mutation has been committed
type TransitionEvent struct {
	Type       EventType `json:"type"`
	RequestID  string    `json:"requestId"`
	SessionID  string    `json:"sessionId,omitempty"`
	MentorID   string    `json:"mentorId"`
	MenteeID   string    `json:"menteeId"`
	ActorID    string    `json:"actorId"`
	FromStatus string    `json:"fromStatus,omitempty"`
	ToStatus   string    `json:"toStatus,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
