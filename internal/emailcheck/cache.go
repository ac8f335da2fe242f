package emailcheck

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefix for domain verdicts
const cacheKeyPrefix = "disposable_domain:"

// RedisCache shares domain verdicts across instances.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a Redis-backed verdict cache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, domain string) (bool, bool, error) {
	val, err := c.client.Get(ctx, cacheKeyPrefix+domain).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("get domain verdict: %w", err)
	}
	return val == "1", true, nil
}

func (c *RedisCache) Set(ctx context.Context, domain string, disposable bool, ttl time.Duration) error {
	val := "0"
	if disposable {
		val = "1"
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+domain, val, ttl).Err(); err != nil {
		return fmt.Errorf("set domain verdict: %w", err)
	}
	return nil
}

// MemoryCache is a process-local verdict cache for tests.
type MemoryCache struct {
	mu       sync.Mutex
	verdicts map[string]bool
}

// NewMemoryCache constructs an empty in-memory verdict cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{verdicts: make(map[string]bool)}
}

func (c *MemoryCache) Get(ctx context.Context, domain string) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.verdicts[domain]
	return v, ok, nil
}

func (c *MemoryCache) Set(ctx context.Context, domain string, disposable bool, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.verdicts[domain] = disposable
	return nil
}
