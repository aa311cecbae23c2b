package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"store_service/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	_ domain.EventPublisher = (*RedisPublisher)(nil)
	_ domain.EventPublisher = (*LogPublisher)(nil)
)

// RedisPublisher publishes order events as JSON on a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	log     *logrus.Logger
}

// Connect parses a redis:// URL and verifies the server answers PING.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func NewRedisPublisher(client *redis.Client, channel string, logger *logrus.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, log: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not encode %s event: %w", event.Type, err)
	}

	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		p.log.Errorf("Events: Failed to publish %s for order %d: %v", event.Type, event.OrderID, err)
		return fmt.Errorf("could not publish %s event: %w", event.Type, err)
	}

	p.log.WithFields(logrus.Fields{
		"event":     event.Type,
		"order_id":  event.OrderID,
		"channel":   p.channel,
		"receivers": receivers,
	}).Debug("Events: Published order event")
	return nil
}

// LogPublisher only logs events. It is used when no broker is configured.
type LogPublisher struct {
	log *logrus.Logger
}

func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{log: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event domain.OrderEvent) error {
	p.log.WithFields(logrus.Fields{
		"event":       event.Type,
		"order_id":    event.OrderID,
		"status":      event.Status,
		"prev_status": event.PrevStatus,
	}).Info("Events: Order event")
	return nil
}
