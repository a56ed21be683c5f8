package services

import (
	"context"

	"github.com/getmentor/getmentor-sessions/internal/models"
)

// RequestServiceInterface covers request creation and the read paths
type RequestServiceInterface interface {
	CreateRequest(ctx context.Context, payload *models.CreateRequestPayload) (*models.MentorshipRequest, error)
	GetRequest(ctx context.Context, actor models.Actor, requestID string) (*models.MentorshipRequest, error)
	ListRequests(ctx context.Context, actor models.Actor, role models.Role, group models.RequestGroup) (*models.RequestsResponse, error)
}

// RequestLifecycleServiceInterface covers the request state machine
type RequestLifecycleServiceInterface interface {
	Accept(ctx context.Context, actor models.Actor, requestID string, slots []models.RawSlot, expected models.RequestStatus) (*models.MentorshipRequest, error)
	Reject(ctx context.Context, actor models.Actor, requestID string, expected models.RequestStatus) (*models.MentorshipRequest, error)
	PutToReview(ctx context.Context, actor models.Actor, requestID string, expected models.RequestStatus) (*models.MentorshipRequest, error)
	Confirm(ctx context.Context, actor models.Actor, requestID string, slotIndex int, expected models.RequestStatus) (*models.ConfirmResult, error)
}

// MeetingChannelServiceInterface covers publishing the meeting link
type MeetingChannelServiceInterface interface {
	SetMeetingLink(ctx context.Context, actor models.Actor, requestID, url string, currentStatus models.RequestStatus) (*models.MentorshipRequest, error)
}

// SessionServiceInterface covers the session lifecycle and its read paths
type SessionServiceInterface interface {
	GetSession(ctx context.Context, actor models.Actor, sessionID string) (*models.Session, error)
	ListSessions(ctx context.Context, actor models.Actor, role models.Role) ([]*models.Session, error)
	UpdateSession(ctx context.Context, actor models.Actor, sessionID string, update models.SessionUpdate) (*models.Session, error)
	AttachFeedback(ctx context.Context, actor models.Actor, sessionID string, payload models.FeedbackPayload) (*models.Session, error)
}
