// Package notify delivers transition events to external dispatchers once a
// mutation has been committed. Delivery failures never affect the mutation.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/pkg/logger"
	"go.uber.org/zap"
)

// Notifier delivers a transition event
type Notifier interface {
	Notify(ctx context.Context, event models.TransitionEvent) error
}

// NopNotifier drops every event
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, models.TransitionEvent) error { return nil }

// Multi fans an event out to every configured sink and joins their errors
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event models.TransitionEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async delivers events on background goroutines so callers never wait on sinks.
// Close waits for in-flight deliveries.
type Async struct {
	next    Notifier
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps next; each delivery gets its own timeout detached from the caller's context
func NewAsync(next Notifier, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Async{next: next, timeout: timeout}
}

// Notify schedules delivery and returns immediately
func (a *Async) Notify(ctx context.Context, event models.TransitionEvent) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		deliveryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		if err := a.next.Notify(deliveryCtx, event); err != nil {
			logger.Error("Failed to deliver transition event",
				zap.Error(err),
				zap.String("type", string(event.Type)),
				zap.String("request_id", event.RequestID),
				zap.String("session_id", event.SessionID))
		}
	}()
	return nil
}

// Close waits for pending deliveries or until ctx is done
func (a *Async) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
