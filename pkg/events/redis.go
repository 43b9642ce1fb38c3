// Package events publishes scheduling lifecycle notifications onto Redis pub/sub.
package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBus publishes raw payloads onto a Redis channel.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus wraps a Redis client.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

// Publish sends payload to channel. Delivery beyond the broker is the subscriber's concern.
func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if b == nil || b.client == nil {
		return fmt.Errorf("redis bus not configured")
	}
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}
