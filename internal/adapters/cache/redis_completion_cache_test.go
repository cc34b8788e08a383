package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) *RedisCompletionCache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCompletionCache(client, time.Hour)
}

func TestRedisCompletionCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "digest-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected miss on empty cache")
	}

	if err := c.Put(ctx, "digest-1", `{"allocations":{}}`); err != nil {
		t.Fatalf("put: %v", err)
	}

	content, ok, err := c.Get(ctx, "digest-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected hit after put")
	}
	if content != `{"allocations":{}}` {
		t.Errorf("content = %q", content)
	}
}

func TestRedisCompletionCacheRejectsEmptyDigest(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if _, _, err := c.Get(ctx, ""); err == nil {
		t.Error("expected error for empty digest on Get")
	}
	if err := c.Put(ctx, "", "content"); err == nil {
		t.Error("expected error for empty digest on Put")
	}
}
