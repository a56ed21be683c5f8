package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// RequestStatus represents the status of a mentorship request
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusReview    RequestStatus = "review"
	StatusAccepted  RequestStatus = "accepted"
	StatusRejected  RequestStatus = "rejected"
	StatusConfirmed RequestStatus = "confirmed"
)

// ActiveStatuses are statuses shown on the active requests page
var ActiveStatuses = []RequestStatus{StatusPending, StatusReview, StatusAccepted}

// PastStatuses are statuses shown on the past requests page
var PastStatuses = []RequestStatus{StatusRejected, StatusConfirmed}

// IsValid reports whether s is a known request status
func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusReview, StatusAccepted, StatusRejected, StatusConfirmed:
		return true
	default:
		return false
	}
}

// IsTerminalStatus returns true if the status is terminal (no further transitions allowed)
func (s RequestStatus) IsTerminalStatus() bool {
	return s == StatusRejected || s == StatusConfirmed
}

// CanTransitionTo checks if a status transition is valid
func (s RequestStatus) CanTransitionTo(newStatus RequestStatus) bool {
	switch s {
	case StatusPending:
		return newStatus == StatusReview || newStatus == StatusAccepted || newStatus == StatusRejected
	case StatusReview:
		return newStatus == StatusAccepted || newStatus == StatusRejected
	case StatusAccepted:
		return newStatus == StatusConfirmed
	default:
		return false
	}
}

// AllowsMeetingLink reports whether the meeting link may be set in this status
func (s RequestStatus) AllowsMeetingLink() bool {
	return s == StatusAccepted || s == StatusConfirmed
}

// MeetingMode is the channel a meeting happens over
type MeetingMode string

const (
	ModeOnline  MeetingMode = "online"
	ModeOffline MeetingMode = "offline"
)

// IsValid reports whether m is a known meeting mode
func (m MeetingMode) IsValid() bool {
	return m == ModeOnline || m == ModeOffline
}

// ProposedSlot is a candidate meeting time offered by the mentor
type ProposedSlot struct {
	SlotDate time.Time   `json:"slotDate"`
	Mode     MeetingMode `json:"mode"`
}

// RawSlot is an unvalidated slot as submitted by a client
type RawSlot struct {
	SlotDate string `json:"slotDate"`
	Mode     string `json:"mode"`
}

// MentorshipRequest is a mentee's request for an advisory session with a mentor
type MentorshipRequest struct {
	ID                string         `json:"id"`
	MentorID          string         `json:"mentorId"`
	MenteeID          string         `json:"menteeId"`
	ServiceID         string         `json:"serviceId"`
	ServiceName       string         `json:"serviceName"`
	ServiceMode       MeetingMode    `json:"serviceMode"`
	ServicePrice      float64        `json:"servicePrice"`
	PreferredDateTime time.Time      `json:"preferredDateTime"`
	PreferredMode     MeetingMode    `json:"preferredMode"`
	ProposedSlots     []ProposedSlot `json:"proposedSlots"`
	ScheduledDateTime *time.Time     `json:"scheduledDateTime"`
	ScheduledMode     *MeetingMode   `json:"scheduledMode"`
	MeetingLink       *string        `json:"meetingLink"`
	Status            RequestStatus  `json:"status"`
	Notes             string         `json:"notes"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// Clone returns a deep copy of the request
func (r *MentorshipRequest) Clone() *MentorshipRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.ProposedSlots != nil {
		c.ProposedSlots = append([]ProposedSlot(nil), r.ProposedSlots...)
	}
	if r.ScheduledDateTime != nil {
		t := *r.ScheduledDateTime
		c.ScheduledDateTime = &t
	}
	if r.ScheduledMode != nil {
		m := *r.ScheduledMode
		c.ScheduledMode = &m
	}
	if r.MeetingLink != nil {
		l := *r.MeetingLink
		c.MeetingLink = &l
	}
	return &c
}

// IsParticipant reports whether userID is the mentor or the mentee of the request
func (r *MentorshipRequest) IsParticipant(userID string) bool {
	return userID != "" && (r.MentorID == userID || r.MenteeID == userID)
}

// RequestTransition is a compare-and-swap status change applied by the store.
// The write succeeds only if the stored status still equals From.
type RequestTransition struct {
	From          RequestStatus
	To            RequestStatus
	ProposedSlots []ProposedSlot
	Scheduled     *ProposedSlot
	At            time.Time
}

// CreateRequestPayload is the payload of the internal create endpoint
type CreateRequestPayload struct {
	ID                string      `json:"id" binding:"omitempty,max=64"`
	MentorID          string      `json:"mentorId" binding:"required,max=64"`
	MenteeID          string      `json:"menteeId" binding:"required,max=64,nefield=MentorID"`
	ServiceID         string      `json:"serviceId" binding:"required,max=64"`
	ServiceName       string      `json:"serviceName" binding:"required,max=200"`
	ServiceMode       MeetingMode `json:"serviceMode" binding:"required,oneof=online offline"`
	ServicePrice      float64     `json:"servicePrice" binding:"gte=0"`
	PreferredDateTime time.Time   `json:"preferredDateTime" binding:"required"`
	PreferredMode     MeetingMode `json:"preferredMode" binding:"required,oneof=online offline"`
	Notes             string      `json:"notes" binding:"max=2000"`
}

// AcceptRequestPayload is the payload for accepting a request with proposed slots
type AcceptRequestPayload struct {
	Slots          []RawSlot     `json:"slots" binding:"required"`
	ExpectedStatus RequestStatus `json:"expectedStatus" binding:"required"`
}

// TransitionPayload carries the expected status for reject and review
type TransitionPayload struct {
	ExpectedStatus RequestStatus `json:"expectedStatus" binding:"required"`
}

// ConfirmRequestPayload is the payload for confirming one of the proposed slots
type ConfirmRequestPayload struct {
	SlotIndex      *int          `json:"slotIndex" binding:"required"`
	ExpectedStatus RequestStatus `json:"expectedStatus" binding:"required"`
}

// MeetingLinkPayload is the payload for publishing a meeting link
type MeetingLinkPayload struct {
	URL           string        `json:"url" binding:"required,max=2048"`
	CurrentStatus RequestStatus `json:"currentStatus" binding:"required"`
}

// RequestsResponse is the response for listing requests
type RequestsResponse struct {
	Requests []MentorshipRequest `json:"requests"`
	Total    int                 `json:"total"`
}

// RequestGroup represents the type of requests to fetch
type RequestGroup string

const (
	RequestGroupActive RequestGroup = "active"
	RequestGroupPast   RequestGroup = "past"
)

// GetStatuses returns the statuses for a request group
func (g RequestGroup) GetStatuses() []RequestStatus {
	switch g {
	case RequestGroupActive:
		return ActiveStatuses
	case RequestGroupPast:
		return PastStatuses
	default:
		return nil
	}
}

// RequestColumns is the column list ScanMentorshipRequest expects
const RequestColumns = `id, mentor_id, mentee_id, service_id, service_name, service_mode, service_price,
	preferred_date_time, preferred_mode, proposed_slots, scheduled_date_time, scheduled_mode,
	meeting_link, status, notes, created_at, updated_at`

// ScanMentorshipRequest scans a single PostgreSQL row into a MentorshipRequest.
// Expected columns are RequestColumns in order.
func ScanMentorshipRequest(row pgx.Row) (*MentorshipRequest, error) {
	var r MentorshipRequest
	var slots []byte
	var scheduledMode *string
	var notes *string

	err := row.Scan(
		&r.ID,
		&r.MentorID,
		&r.MenteeID,
		&r.ServiceID,
		&r.ServiceName,
		&r.ServiceMode,
		&r.ServicePrice,
		&r.PreferredDateTime,
		&r.PreferredMode,
		&slots,
		&r.ScheduledDateTime,
		&scheduledMode,
		&r.MeetingLink,
		&r.Status,
		&notes,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(slots) > 0 {
		if err := json.Unmarshal(slots, &r.ProposedSlots); err != nil {
			return nil, fmt.Errorf("failed to decode proposed slots: %w", err)
		}
	}
	if r.ProposedSlots == nil {
		r.ProposedSlots = []ProposedSlot{}
	}
	if scheduledMode != nil {
		m := MeetingMode(*scheduledMode)
		r.ScheduledMode = &m
	}
	if notes != nil {
		r.Notes = *notes
	}

	return &r, nil
}

// EncodeSlots renders proposed slots as the jsonb column value
func EncodeSlots(slots []ProposedSlot) ([]byte, error) {
	if slots == nil {
		slots = []ProposedSlot{}
	}
	return json.Marshal(slots)
}

// ConfirmResult is the outcome of a confirmation: the confirmed request and
// the session materialized in the same transaction
type ConfirmResult struct {
	Request *MentorshipRequest `json:"request"`
	Session *Session           `json:"session"`
}
