package services

import (
	"context"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/internal/negotiation"
	"github.com/getmentor/getmentor-sessions/internal/notify"
	"github.com/getmentor/getmentor-sessions/internal/repository"
	"github.com/getmentor/getmentor-sessions/pkg/errors"
	"github.com/getmentor/getmentor-sessions/pkg/logger"
	"github.com/getmentor/getmentor-sessions/pkg/metrics"
	"github.com/getmentor/getmentor-sessions/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type lifecycleAction string

const (
	actionAccept  lifecycleAction = "accept"
	actionReject  lifecycleAction = "reject"
	actionReview  lifecycleAction = "review"
	actionConfirm lifecycleAction = "confirm"
)

// transitionRule describes one lifecycle action
type transitionRule struct {
	role  models.Role
	from  []models.RequestStatus
	to    models.RequestStatus
	event models.EventType
}

var transitionRules = map[lifecycleAction]transitionRule{
	actionAccept: {
		role:  models.RoleMentor,
		from:  []models.RequestStatus{models.StatusPending, models.StatusReview},
		to:    models.StatusAccepted,
		event: models.EventRequestAccepted,
	},
	actionReject: {
		role:  models.RoleMentor,
		from:  []models.RequestStatus{models.StatusPending, models.StatusReview},
		to:    models.StatusRejected,
		event: models.EventRequestRejected,
	},
	actionReview: {
		role:  models.RoleMentor,
		from:  []models.RequestStatus{models.StatusPending},
		to:    models.StatusReview,
		event: models.EventRequestReview,
	},
	actionConfirm: {
		role:  models.RoleMentee,
		from:  []models.RequestStatus{models.StatusAccepted},
		to:    models.StatusConfirmed,
		event: models.EventRequestConfirmed,
	},
}

func (r transitionRule) allows(expected models.RequestStatus) bool {
	for _, s := range r.from {
		if s == expected {
			return true
		}
	}
	return false
}

// RequestLifecycleService drives mentorship requests through their state machine.
// Every transition is a single compare-and-swap on the expected status; a caller
// that loses a race gets a conflict and is never retried internally.
type RequestLifecycleService struct {
	store        repository.Store
	materializer *SessionMaterializer
	notifier     notify.Notifier
	clock        Clock
}

// NewRequestLifecycleService creates a new RequestLifecycleService
func NewRequestLifecycleService(store repository.Store, materializer *SessionMaterializer, notifier notify.Notifier, clock Clock) *RequestLifecycleService {
	if materializer == nil {
		materializer = NewSessionMaterializer(nil, clock)
	}
	return &RequestLifecycleService{
		store:        store,
		materializer: materializer,
		notifier:     orNop(notifier),
		clock:        clock,
	}
}

// Accept moves a pending or in-review request to accepted with the mentor's proposed slots
func (s *RequestLifecycleService) Accept(ctx context.Context, actor models.Actor, requestID string, slots []models.RawSlot, expected models.RequestStatus) (result *models.MentorshipRequest, err error) {
	ctx, span := tracing.StartSpan(ctx, "RequestLifecycle.Accept", attribute.String("request.id", requestID))
	defer func() { tracing.EndSpan(span, err); s.record(actionAccept, requestID, err) }()

	prior, err := s.prepare(ctx, actionAccept, actor, requestID, expected)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	normalized, err := negotiation.NormalizeSlots(slots, now)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.TransitionRequest(ctx, requestID, models.RequestTransition{
		From:          expected,
		To:            models.StatusAccepted,
		ProposedSlots: normalized,
		At:            now,
	})
	if err != nil {
		return nil, s.writeFailed(actionAccept, requestID, expected, err)
	}

	s.completed(ctx, actionAccept, actor, prior.Status, updated, "")
	return updated, nil
}

// Reject moves a pending or in-review request to the terminal rejected status
func (s *RequestLifecycleService) Reject(ctx context.Context, actor models.Actor, requestID string, expected models.RequestStatus) (result *models.MentorshipRequest, err error) {
	ctx, span := tracing.StartSpan(ctx, "RequestLifecycle.Reject", attribute.String("request.id", requestID))
	defer func() { tracing.EndSpan(span, err); s.record(actionReject, requestID, err) }()

	return s.simpleTransition(ctx, actionReject, actor, requestID, expected)
}

// PutToReview parks a pending request while the mentor considers it
func (s *RequestLifecycleService) PutToReview(ctx context.Context, actor models.Actor, requestID string, expected models.RequestStatus) (result *models.MentorshipRequest, err error) {
	ctx, span := tracing.StartSpan(ctx, "RequestLifecycle.PutToReview", attribute.String("request.id", requestID))
	defer func() { tracing.EndSpan(span, err); s.record(actionReview, requestID, err) }()

	return s.simpleTransition(ctx, actionReview, actor, requestID, expected)
}

// Confirm records the mentee's chosen slot and materializes the session in the same transaction
func (s *RequestLifecycleService) Confirm(ctx context.Context, actor models.Actor, requestID string, slotIndex int, expected models.RequestStatus) (result *models.ConfirmResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "RequestLifecycle.Confirm",
		attribute.String("request.id", requestID), attribute.Int("slot.index", slotIndex))
	defer func() { tracing.EndSpan(span, err); s.record(actionConfirm, requestID, err) }()

	prior, err := s.prepare(ctx, actionConfirm, actor, requestID, expected)
	if err != nil {
		return nil, err
	}

	// Slots only change on accept, so the CAS on accepted below guarantees the
	// slot resolved here is still the one stored.
	slot, err := negotiation.ResolveSlot(prior.ProposedSlots, slotIndex)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	var confirmed *models.MentorshipRequest
	var session *models.Session

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		updated, txErr := tx.TransitionRequest(ctx, requestID, models.RequestTransition{
			From:      expected,
			To:        models.StatusConfirmed,
			Scheduled: &slot,
			At:        now,
		})
		if txErr != nil {
			return s.writeFailed(actionConfirm, requestID, expected, txErr)
		}

		created, txErr := s.materializer.Materialize(ctx, tx, updated)
		if txErr != nil {
			return txErr
		}

		confirmed, session = updated, created
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SessionsMaterialized.Inc()
	s.completed(ctx, actionConfirm, actor, prior.Status, confirmed, session.ID)

	return &models.ConfirmResult{Request: confirmed, Session: session}, nil
}

func (s *RequestLifecycleService) simpleTransition(ctx context.Context, action lifecycleAction, actor models.Actor, requestID string, expected models.RequestStatus) (*models.MentorshipRequest, error) {
	prior, err := s.prepare(ctx, action, actor, requestID, expected)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.TransitionRequest(ctx, requestID, models.RequestTransition{
		From: expected,
		To:   transitionRules[action].to,
		At:   s.clock.now(),
	})
	if err != nil {
		return nil, s.writeFailed(action, requestID, expected, err)
	}

	s.completed(ctx, action, actor, prior.Status, updated, "")
	return updated, nil
}

// prepare runs every check that precedes the conditional write, in order:
// legal source status, existence, actor, stored status.
func (s *RequestLifecycleService) prepare(ctx context.Context, action lifecycleAction, actor models.Actor, requestID string, expected models.RequestStatus) (*models.MentorshipRequest, error) {
	rule := transitionRules[action]

	if !rule.allows(expected) {
		return nil, &errors.TransitionError{Op: string(action), ID: requestID, Expected: string(expected)}
	}

	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !mayAct(actor, rule.role, req) {
		logger.Warn("Access denied to request",
			zap.String("action", string(action)),
			zap.String("request_id", requestID),
			zap.String("actor_id", actor.ID),
			zap.String("actor_role", string(actor.Role)))
		return nil, errors.ForbiddenError("only the " + string(rule.role) + " of the request may " + string(action) + " it")
	}

	if req.Status != expected {
		return nil, &errors.TransitionError{
			Op:       string(action),
			ID:       requestID,
			Expected: string(expected),
			Actual:   string(req.Status),
		}
	}

	return req, nil
}

// writeFailed turns a lost compare-and-swap into a conflicting TransitionError
func (s *RequestLifecycleService) writeFailed(action lifecycleAction, requestID string, expected models.RequestStatus, err error) error {
	if errors.Is(err, errors.ErrConflict) {
		metrics.RequestConflicts.WithLabelValues(string(action)).Inc()
		logger.Warn("Request changed concurrently",
			zap.String("action", string(action)),
			zap.String("request_id", requestID),
			zap.String("expected_status", string(expected)))
		return &errors.TransitionError{Op: string(action), ID: requestID, Expected: string(expected), Conflict: true}
	}
	return err
}

func (s *RequestLifecycleService) completed(ctx context.Context, action lifecycleAction, actor models.Actor, from models.RequestStatus, req *models.MentorshipRequest, sessionID string) {
	logger.Info("Request transitioned",
		zap.String("action", string(action)),
		zap.String("request_id", req.ID),
		zap.String("from_status", string(from)),
		zap.String("to_status", string(req.Status)),
		zap.String("actor_id", actor.ID))

	dispatch(ctx, s.notifier, models.TransitionEvent{
		Type:       transitionRules[action].event,
		RequestID:  req.ID,
		SessionID:  sessionID,
		MentorID:   req.MentorID,
		MenteeID:   req.MenteeID,
		ActorID:    actor.ID,
		FromStatus: string(from),
		ToStatus:   string(req.Status),
		OccurredAt: req.UpdatedAt,
	})
}

func (s *RequestLifecycleService) record(action lifecycleAction, requestID string, err error) {
	metrics.RequestTransitions.WithLabelValues(string(action), outcomeOf(err)).Inc()
	if err != nil && !isClientError(err) {
		logger.Error("Request transition failed",
			zap.String("action", string(action)),
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// mayAct reports whether actor holds role on req
func mayAct(actor models.Actor, role models.Role, req *models.MentorshipRequest) bool {
	if actor.ID == "" || actor.Role != role {
		return false
	}
	if role == models.RoleMentor {
		return req.MentorID == actor.ID
	}
	return req.MenteeID == actor.ID
}
