package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis-backed cache for raw LLM completions keyed by prompt digest.
// Entries expire so a changed model or pricing window naturally
// refreshes stale completions.
type RedisCompletionCache struct {
	client *redis.Client
	ttl    time.Duration
}

const keyPrefix = "completion:"

func NewRedisCompletionCache(client *redis.Client, ttl time.Duration) *RedisCompletionCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCompletionCache{client: client, ttl: ttl}
}

// Look up a cached completion. ok is false on a miss.
func (c *RedisCompletionCache) Get(ctx context.Context, promptDigest string) (string, bool, error) {
	if c.client == nil {
		return "", false, errors.New("completion cache: client is nil")
	}
	if promptDigest == "" {
		return "", false, errors.New("get completion cache: digest must not be empty")
	}

	content, err := c.client.Get(ctx, keyPrefix+promptDigest).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get completion cache: %w", err)
	}
	return content, true, nil
}

// Store a completion for the digest.
func (c *RedisCompletionCache) Put(ctx context.Context, promptDigest string, content string) error {
	if c.client == nil {
		return errors.New("completion cache: client is nil")
	}
	if promptDigest == "" {
		return errors.New("put completion cache: digest must not be empty")
	}

	if err := c.client.Set(ctx, keyPrefix+promptDigest, content, c.ttl).Err(); err != nil {
		return fmt.Errorf("put completion cache: %w", err)
	}
	return nil
}
