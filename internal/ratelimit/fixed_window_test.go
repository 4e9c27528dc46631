package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"selfserve-api/internal/storage"
)

func newTestRedis(t *testing.T) *storage.RedisClient {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return storage.NewRedisFromClient(client)
}

func TestFixedWindowAllowsUpToLimit(t *testing.T) {
	limiter := NewFixedWindow(newTestRedis(t), 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "org-1")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, err := limiter.Allow(ctx, "org-1")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if allowed {
		t.Fatal("request over the limit should be blocked")
	}
}

func TestFixedWindowKeysAreIndependent(t *testing.T) {
	limiter := NewFixedWindow(newTestRedis(t), 1, time.Minute)
	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "org-1"); !allowed {
		t.Fatal("first request for org-1 should be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "org-1"); allowed {
		t.Fatal("second request for org-1 should be blocked")
	}
	if allowed, _ := limiter.Allow(ctx, "org-2"); !allowed {
		t.Fatal("org-2 should have its own counter")
	}
}

func TestFixedWindowRemaining(t *testing.T) {
	limiter := NewFixedWindow(newTestRedis(t), 5, time.Minute)
	ctx := context.Background()

	remaining, err := limiter.Remaining(ctx, "org-1")
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 5 {
		t.Fatalf("untouched key: remaining = %d, want 5", remaining)
	}

	limiter.Allow(ctx, "org-1")
	limiter.Allow(ctx, "org-1")

	remaining, err = limiter.Remaining(ctx, "org-1")
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 3 {
		t.Fatalf("after two requests: remaining = %d, want 3", remaining)
	}
}

func TestFixedWindowResetIsNextWindow(t *testing.T) {
	limiter := NewFixedWindow(newTestRedis(t), 1, time.Minute)

	reset, err := limiter.Reset(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}

	now := time.Now()
	if !reset.After(now) {
		t.Fatalf("reset %v should be in the future", reset)
	}
	if reset.Sub(now) > time.Minute {
		t.Fatalf("reset %v should be within one window of now", reset)
	}
	if reset.Unix()%60 != 0 {
		t.Fatalf("reset %v should land on a window boundary", reset)
	}
}

func TestLimiterFactory(t *testing.T) {
	rc := newTestRedis(t)

	for _, algorithm := range []string{"fixed_window", "sliding_window", "token_bucket", "unknown"} {
		limiter := NewLimiter(rc, algorithm, 10, time.Minute)
		if limiter == nil {
			t.Fatalf("NewLimiter(%q) returned nil", algorithm)
		}
		if limiter.Limit() != 10 {
			t.Errorf("NewLimiter(%q).Limit() = %d, want 10", algorithm, limiter.Limit())
		}
	}
}
