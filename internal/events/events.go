// Package events publishes domain events to Redis pub/sub so the rest of
// the support system (notifications, dashboards) can react without polling
// the database.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"support-mail-ingest-go/internal/config"
	"support-mail-ingest-go/internal/pipeline"
)

// RedisSink implements pipeline.EventSink over a Redis channel.
type RedisSink struct {
	rdb     *redis.Client
	channel string
}

// NewRedisSink connects to Redis and returns a sink for the configured
// channel.
func NewRedisSink(cfg *config.RedisConfig) (*RedisSink, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSink{rdb: rdb, channel: cfg.Channel}, nil
}

type envelope struct {
	EventID   string `json:"event_id"`
	EmittedAt string `json:"emitted_at"`
	pipeline.Event
}

// Emit publishes the event. Fire-and-forget by contract; the caller only
// logs failures.
func (s *RedisSink) Emit(ctx context.Context, ev pipeline.Event) error {
	payload, err := json.Marshal(envelope{
		EventID:   uuid.NewString(),
		EmittedAt: time.Now().UTC().Format(time.RFC3339),
		Event:     ev,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := s.rdb.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisSink) Close() error {
	return s.rdb.Close()
}
