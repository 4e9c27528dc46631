package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"selfserve-api/internal/storage"
)

type FixedWindowLimiter struct {
	redis  *storage.RedisClient
	limit  int
	window time.Duration
}

func NewFixedWindow(redis *storage.RedisClient, limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		redis:  redis,
		limit:  limit,
		window: window,
	}
}

func (f *FixedWindowLimiter) key(key string) string {
	currentWindow := time.Now().Unix() / int64(f.window.Seconds())
	return fmt.Sprintf("rl:fixed:%s:%d", key, currentWindow)
}

func (f *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := f.key(key)

	count, err := f.redis.Incr(ctx, redisKey)
	if err != nil {
		return false, err
	}

	// First hit in this window owns the expiry.
	if count == 1 {
		f.redis.Expire(ctx, redisKey, f.window)
	}

	return count <= int64(f.limit), nil
}

func (f *FixedWindowLimiter) Remaining(ctx context.Context, key string) (int, error) {
	val, err := f.redis.Get(ctx, f.key(key))
	if err == redis.Nil {
		return f.limit, nil
	}
	if err != nil {
		return 0, err
	}

	count, _ := strconv.Atoi(val)
	remaining := f.limit - count
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

func (f *FixedWindowLimiter) Limit() int {
	return f.limit
}

func (f *FixedWindowLimiter) Window() time.Duration {
	return f.window
}

// Reset returns the start of the next window.
func (f *FixedWindowLimiter) Reset(ctx context.Context, key string) (time.Time, error) {
	windowSecs := int64(f.window.Seconds())
	currentWindow := time.Now().Unix() / windowSecs
	return time.Unix((currentWindow+1)*windowSecs, 0), nil
}
