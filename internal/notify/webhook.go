package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/pkg/circuitbreaker"
	"github.com/getmentor/getmentor-sessions/pkg/httpclient"
	"github.com/getmentor/getmentor-sessions/pkg/logger"
	"github.com/getmentor/getmentor-sessions/pkg/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const webhookSink = "webhook"

// WebhookConfig configures the HTTP trigger sink
type WebhookConfig struct {
	URL      string
	Token    string
	Attempts uint
	Delay    time.Duration
}

// WebhookNotifier POSTs events as JSON to a trigger URL.
// Transient failures are retried with backoff behind a circuit breaker.
type WebhookNotifier struct {
	cfg     WebhookConfig
	client  httpclient.Client
	breaker *gobreaker.CircuitBreaker
}

// NewWebhookNotifier creates a webhook sink
func NewWebhookNotifier(cfg WebhookConfig, client httpclient.Client) *WebhookNotifier {
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Delay <= 0 {
		cfg.Delay = time.Second
	}
	return &WebhookNotifier{
		cfg:     cfg,
		client:  client,
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig("notify-webhook")),
	}
}

// permanentError marks a response that retrying cannot fix
type permanentError struct {
	status int
	err    error
}

func (e *permanentError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("webhook request is invalid: %v", e.err)
	}
	return fmt.Sprintf("webhook rejected event with status %d", e.status)
}

func (w *WebhookNotifier) Notify(ctx context.Context, event models.TransitionEvent) error {
	start := time.Now()

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	err = retry.Do(
		func() error {
			_, err := circuitbreaker.Execute(w.breaker, func() (int, error) {
				return w.post(ctx, body)
			})
			if err != nil && circuitbreaker.IsRejected(err) {
				return retry.Unrecoverable(err)
			}
			var perm *permanentError
			if errors.As(err, &perm) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(w.cfg.Attempts),
		retry.Delay(w.cfg.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("Retrying webhook delivery",
				zap.Uint("attempt", n+1),
				zap.String("type", string(event.Type)),
				zap.Error(err))
		}),
	)

	metrics.NotificationDuration.WithLabelValues(webhookSink).Observe(metrics.MeasureDuration(start))
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(webhookSink, "error").Inc()
		return fmt.Errorf("webhook delivery failed: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues(webhookSink, "success").Inc()
	logger.Info("Transition event delivered",
		zap.String("sink", webhookSink),
		zap.String("type", string(event.Type)),
		zap.String("request_id", event.RequestID))
	return nil
}

func (w *WebhookNotifier) post(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, &permanentError{err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if w.cfg.Token != "" {
		req.Header.Set("X-Internal-Token", w.cfg.Token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp.StatusCode, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return resp.StatusCode, &permanentError{status: resp.StatusCode}
	default:
		return resp.StatusCode, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
}
