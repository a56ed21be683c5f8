package services

import (
	"context"
	"time"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/internal/notify"
	"github.com/getmentor/getmentor-sessions/pkg/errors"
	"github.com/getmentor/getmentor-sessions/pkg/logger"
	"go.uber.org/zap"
)

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func orNop(n notify.Notifier) notify.Notifier {
	if n == nil {
		return notify.NopNotifier{}
	}
	return n
}

// dispatch hands a committed transition to the notifier. Failures are logged only.
func dispatch(ctx context.Context, n notify.Notifier, event models.TransitionEvent) {
	if err := n.Notify(ctx, event); err != nil {
		logger.Warn("Failed to dispatch transition event",
			zap.Error(err),
			zap.String("type", string(event.Type)),
			zap.String("request_id", event.RequestID),
			zap.String("session_id", event.SessionID))
	}
}

// outcomeOf maps an operation error to a metrics label
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, errors.ErrConflict):
		return "conflict"
	case errors.Is(err, errors.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, errors.ErrNotFound):
		return "not_found"
	case errors.Is(err, errors.ErrForbidden):
		return "forbidden"
	case errors.Is(err, errors.ErrInvalidSlots), errors.Is(err, errors.ErrIndexOutOfRange),
		errors.Is(err, errors.ErrInvalidURL), errors.Is(err, errors.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, errors.ErrInvalidState):
		return "invalid_state"
	default:
		return "error"
	}
}

// isClientError reports whether err is an expected rejection rather than a failure
func isClientError(err error) bool {
	return outcomeOf(err) != "error"
}
