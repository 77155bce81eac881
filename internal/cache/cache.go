// internal/cache/cache.go
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys for cached list responses.
const (
	KeyAllBooks  = "bookstore:books:all"
	KeyAllOrders = "bookstore:orders:all"
)

// DefaultTTL bounds staleness when an invalidation is missed.
const DefaultTTL = 5 * time.Minute

// Cache is a small read-through cache for serialized list responses.
// Get returns ("", nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Redis implements Cache on a Redis client.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed cache.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (c *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (c *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Noop caches nothing. Used when Redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, error) { return "", nil }

func (Noop) Set(context.Context, string, string, time.Duration) error { return nil }

func (Noop) Delete(context.Context, ...string) error { return nil }
