package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/internal/repository"
	"github.com/getmentor/getmentor-sessions/pkg/errors"
	"github.com/getmentor/getmentor-sessions/pkg/logger"
	"github.com/getmentor/getmentor-sessions/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestService creates requests on behalf of the upstream product and serves the read paths
type RequestService struct {
	store repository.RequestStore
	newID func() string
	clock Clock
}

// NewRequestService creates a new RequestService. A nil newID generates UUIDs.
func NewRequestService(store repository.RequestStore, newID func() string, clock Clock) *RequestService {
	if newID == nil {
		newID = uuid.NewString
	}
	return &RequestService{store: store, newID: newID, clock: clock}
}

// CreateRequest stores a pending request with the catalog snapshot supplied by the caller
func (s *RequestService) CreateRequest(ctx context.Context, payload *models.CreateRequestPayload) (*models.MentorshipRequest, error) {
	if err := validateCreatePayload(payload); err != nil {
		metrics.RequestsCreated.WithLabelValues("invalid").Inc()
		return nil, err
	}

	id := strings.TrimSpace(payload.ID)
	if id == "" {
		id = s.newID()
	}

	now := s.clock.now()
	req := &models.MentorshipRequest{
		ID:                id,
		MentorID:          payload.MentorID,
		MenteeID:          payload.MenteeID,
		ServiceID:         payload.ServiceID,
		ServiceName:       payload.ServiceName,
		ServiceMode:       payload.ServiceMode,
		ServicePrice:      payload.ServicePrice,
		PreferredDateTime: payload.PreferredDateTime.UTC().Truncate(time.Second),
		PreferredMode:     payload.PreferredMode,
		ProposedSlots:     []models.ProposedSlot{},
		Status:            models.StatusPending,
		Notes:             payload.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.CreateRequest(ctx, req); err != nil {
		metrics.RequestsCreated.WithLabelValues("error").Inc()
		logger.Error("Failed to create request",
			zap.String("request_id", id),
			zap.Error(err))
		return nil, err
	}

	metrics.RequestsCreated.WithLabelValues("success").Inc()
	logger.Info("Request created",
		zap.String("request_id", id),
		zap.String("mentor_id", req.MentorID),
		zap.String("service_id", req.ServiceID))

	return req, nil
}

func validateCreatePayload(p *models.CreateRequestPayload) error {
	switch {
	case p == nil:
		return errors.InvalidInputError("request", "payload is required")
	case strings.TrimSpace(p.MentorID) == "" || strings.TrimSpace(p.MenteeID) == "":
		return errors.InvalidInputError("participants", "mentorId and menteeId are required")
	case p.MentorID == p.MenteeID:
		return errors.InvalidInputError("participants", "mentor and mentee must differ")
	case !p.ServiceMode.IsValid():
		return errors.InvalidInputError("serviceMode", fmt.Sprintf("unknown meeting mode %q", p.ServiceMode))
	case !p.PreferredMode.IsValid():
		return errors.InvalidInputError("preferredMode", fmt.Sprintf("unknown meeting mode %q", p.PreferredMode))
	case p.PreferredDateTime.IsZero():
		return errors.InvalidInputError("preferredDateTime", "is required")
	case p.ServicePrice < 0:
		return errors.InvalidInputError("servicePrice", "must not be negative")
	default:
		return nil
	}
}

// GetRequest returns a request to one of its participants
func (s *RequestService) GetRequest(ctx context.Context, actor models.Actor, requestID string) (*models.MentorshipRequest, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsParticipant(actor.ID) {
		logger.Warn("Access denied to request",
			zap.String("request_id", requestID),
			zap.String("actor_id", actor.ID))
		return nil, errors.ForbiddenError("not a participant of the request")
	}
	return req, nil
}

// ListRequests returns the actor's requests in a group. Empty role falls back to
// the token role and empty group to active.
func (s *RequestService) ListRequests(ctx context.Context, actor models.Actor, role models.Role, group models.RequestGroup) (*models.RequestsResponse, error) {
	start := time.Now()

	if role == "" {
		role = actor.Role
	}
	if group == "" {
		group = models.RequestGroupActive
	}

	statuses := group.GetStatuses()
	if statuses == nil {
		return nil, errors.InvalidInputError("group", fmt.Sprintf("unknown request group %q", group))
	}

	var requests []*models.MentorshipRequest
	var err error
	switch role {
	case models.RoleMentor:
		requests, err = s.store.ListRequestsByMentor(ctx, actor.ID, statuses)
	case models.RoleMentee:
		requests, err = s.store.ListRequestsByMentee(ctx, actor.ID, statuses)
	default:
		return nil, errors.InvalidInputError("role", fmt.Sprintf("unknown role %q", role))
	}
	if err != nil {
		logger.Error("Failed to fetch requests",
			zap.String("actor_id", actor.ID),
			zap.String("group", string(group)),
			zap.Error(err))
		return nil, err
	}

	out := make([]models.MentorshipRequest, 0, len(requests))
	for _, r := range requests {
		out = append(out, *r)
	}

	logger.Debug("Fetched requests",
		zap.String("actor_id", actor.ID),
		zap.String("role", string(role)),
		zap.String("group", string(group)),
		zap.Int("count", len(out)),
		zap.Duration("duration", time.Since(start)))

	return &models.RequestsResponse{Requests: out, Total: len(out)}, nil
}
