package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes events as JSON on a Redis pub/sub channel so external
// observers can follow ledger activity without polling.
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink constructs a sink publishing to the given channel.
func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	if channel == "" {
		channel = "tokenbook:events"
	}
	return &RedisSink{client: client, channel: channel}
}

// Publish serializes the event and publishes it on the configured channel.
func (s *RedisSink) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
