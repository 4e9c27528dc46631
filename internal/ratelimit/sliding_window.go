package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"selfserve-api/internal/storage"
)

// SlidingWindowLimiter keeps request timestamps in a sorted set and
// counts the ones inside the trailing window.
type SlidingWindowLimiter struct {
	redis  *storage.RedisClient
	limit  int
	window time.Duration
}

func NewSlidingWindow(redis *storage.RedisClient, limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		redis:  redis,
		limit:  limit,
		window: window,
	}
}

func (s *SlidingWindowLimiter) key(key string) string {
	return fmt.Sprintf("rl:sliding:%s", key)
}

func (s *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := s.key(key)
	now := time.Now()
	windowStart := now.Add(-s.window)

	pipe := s.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	if countCmd.Val() >= int64(s.limit) {
		return false, nil
	}

	s.redis.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	s.redis.Expire(ctx, redisKey, s.window)
	return true, nil
}

func (s *SlidingWindowLimiter) Remaining(ctx context.Context, key string) (int, error) {
	now := time.Now()
	windowStart := now.Add(-s.window)

	count, err := s.redis.ZCount(ctx, s.key(key),
		strconv.FormatInt(windowStart.UnixNano(), 10),
		strconv.FormatInt(now.UnixNano(), 10))
	if err != nil {
		return 0, err
	}

	remaining := s.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *SlidingWindowLimiter) Limit() int {
	return s.limit
}

func (s *SlidingWindowLimiter) Window() time.Duration {
	return s.window
}

// Reset is when the oldest tracked request ages out of the window.
func (s *SlidingWindowLimiter) Reset(ctx context.Context, key string) (time.Time, error) {
	oldest, err := s.redis.ZRange(ctx, s.key(key), 0, 0)
	if err != nil || len(oldest) == 0 {
		return time.Now(), nil
	}

	oldestNano, err := strconv.ParseInt(oldest[0], 10, 64)
	if err != nil {
		return time.Now(), nil
	}

	return time.Unix(0, oldestNano).Add(s.window), nil
}
