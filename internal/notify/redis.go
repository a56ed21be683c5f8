package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

const redisSink = "redis"

// Publisher is the subset of *redis.Client used for fan-out
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes events as JSON on a pub/sub channel
type RedisNotifier struct {
	publisher Publisher
	channel   string
}

// NewRedisNotifier creates a Redis pub/sub sink
func NewRedisNotifier(publisher Publisher, channel string) *RedisNotifier {
	return &RedisNotifier{publisher: publisher, channel: channel}
}

func (r *RedisNotifier) Notify(ctx context.Context, event models.TransitionEvent) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	err = r.publisher.Publish(ctx, r.channel, payload).Err()
	metrics.NotificationDuration.WithLabelValues(redisSink).Observe(metrics.MeasureDuration(start))
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(redisSink, "error").Inc()
		return fmt.Errorf("failed to publish to %s: %w", r.channel, err)
	}

	metrics.NotificationsTotal.WithLabelValues(redisSink, "success").Inc()
	return nil
}
