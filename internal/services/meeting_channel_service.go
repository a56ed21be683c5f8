package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/internal/notify"
	"github.com/getmentor/getmentor-sessions/internal/repository"
	"github.com/getmentor/getmentor-sessions/pkg/errors"
	"github.com/getmentor/getmentor-sessions/pkg/logger"
	"github.com/getmentor/getmentor-sessions/pkg/metrics"
	"github.com/getmentor/getmentor-sessions/pkg/tracing"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// MeetingChannelService publishes the out-of-band meeting link of a request
type MeetingChannelService struct {
	store    repository.RequestStore
	notifier notify.Notifier
	validate *validator.Validate
	clock    Clock
}

// NewMeetingChannelService creates a new MeetingChannelService
func NewMeetingChannelService(store repository.RequestStore, notifier notify.Notifier, clock Clock) *MeetingChannelService {
	return &MeetingChannelService{
		store:    store,
		notifier: orNop(notifier),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		clock:    clock,
	}
}

// SetMeetingLink sets the meeting link on an accepted or confirmed request.
// Setting the link it already has changes nothing.
func (s *MeetingChannelService) SetMeetingLink(ctx context.Context, actor models.Actor, requestID, rawURL string, currentStatus models.RequestStatus) (result *models.MentorshipRequest, err error) {
	ctx, span := tracing.StartSpan(ctx, "MeetingChannel.SetMeetingLink", attribute.String("request.id", requestID))
	defer func() {
		tracing.EndSpan(span, err)
		if err != nil {
			metrics.MeetingLinkUpdates.WithLabelValues(outcomeOf(err)).Inc()
		}
	}()

	if !currentStatus.AllowsMeetingLink() {
		return nil, errors.InvalidStateError(fmt.Sprintf("meeting link cannot be set while request is %q", currentStatus))
	}

	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !mayAct(actor, models.RoleMentor, req) {
		logger.Warn("Access denied to request meeting link",
			zap.String("request_id", requestID),
			zap.String("actor_id", actor.ID))
		return nil, errors.ForbiddenError("only the mentor of the request may set its meeting link")
	}

	if !req.Status.AllowsMeetingLink() {
		return nil, errors.InvalidStateError(fmt.Sprintf("meeting link cannot be set while request is %q", req.Status))
	}

	link, err := s.normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateMeetingLink(ctx, requestID, link, s.clock.now())
	if err != nil {
		return nil, err
	}

	if req.MeetingLink != nil && *req.MeetingLink == link {
		metrics.MeetingLinkUpdates.WithLabelValues("unchanged").Inc()
		return updated, nil
	}

	metrics.MeetingLinkUpdates.WithLabelValues("success").Inc()
	logger.Info("Meeting link set",
		zap.String("request_id", requestID),
		zap.String("status", string(updated.Status)))

	dispatch(ctx, s.notifier, models.TransitionEvent{
		Type:       models.EventMeetingLinkSet,
		RequestID:  updated.ID,
		MentorID:   updated.MentorID,
		MenteeID:   updated.MenteeID,
		ActorID:    actor.ID,
		FromStatus: string(updated.Status),
		ToStatus:   string(updated.Status),
		OccurredAt: updated.UpdatedAt,
	})

	return updated, nil
}

// normalizeURL accepts absolute URLs with a scheme and a host
func (s *MeetingChannelService) normalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if err := s.validate.Var(trimmed, "required,url"); err != nil {
		return "", fmt.Errorf("%q: %w", raw, errors.ErrInvalidURL)
	}

	u, err := url.Parse(trimmed)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%q: %w", raw, errors.ErrInvalidURL)
	}
	return trimmed, nil
}
