package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefix for rate-limit counters
const counterKeyPrefix = "rate_limit:"

// RedisCounterStore backs the limiter with shared Redis counters.
type RedisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore constructs a Redis-backed counter store.
func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

// Incr bumps the counter atomically; the TTL is attached in the same
// pipeline only when this call created the key, so the window never slides.
func (s *RedisCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	fullKey := counterKeyPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr rate limit counter: %w", err)
	}
	return incr.Val(), nil
}
