package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"selfserve-api/internal/storage"
)

type TokenBucket struct {
	redis      *storage.RedisClient
	capacity   int
	refillRate int // tokens per second
}

type bucketState struct {
	Tokens     float64   `json:"tokens"`
	LastRefill time.Time `json:"last_refill"`
}

func NewTokenBucket(redis *storage.RedisClient, capacity, refillRate int) *TokenBucket {
	return &TokenBucket{
		redis:      redis,
		capacity:   capacity,
		refillRate: refillRate,
	}
}

func (t *TokenBucket) key(key string) string {
	return fmt.Sprintf("rl:bucket:%s", key)
}

func (t *TokenBucket) load(ctx context.Context, redisKey string) (bucketState, error) {
	data, err := t.redis.Get(ctx, redisKey)
	if err == redis.Nil {
		return bucketState{Tokens: float64(t.capacity), LastRefill: time.Now()}, nil
	}
	if err != nil {
		return bucketState{}, err
	}

	var state bucketState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		// Corrupt state starts a fresh bucket.
		return bucketState{Tokens: float64(t.capacity), LastRefill: time.Now()}, nil
	}
	return state, nil
}

func (t *TokenBucket) refill(state bucketState, now time.Time) bucketState {
	elapsed := now.Sub(state.LastRefill)
	state.Tokens = math.Min(state.Tokens+elapsed.Seconds()*float64(t.refillRate), float64(t.capacity))
	state.LastRefill = now
	return state
}

func (t *TokenBucket) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := t.key(key)

	state, err := t.load(ctx, redisKey)
	if err != nil {
		return false, err
	}

	state = t.refill(state, time.Now())

	allowed := state.Tokens >= 1
	if allowed {
		state.Tokens--
	}

	stateJSON, _ := json.Marshal(state)
	t.redis.Set(ctx, redisKey, stateJSON, time.Hour)

	return allowed, nil
}

func (t *TokenBucket) Remaining(ctx context.Context, key string) (int, error) {
	state, err := t.load(ctx, t.key(key))
	if err != nil {
		return 0, err
	}

	state = t.refill(state, time.Now())
	return int(state.Tokens), nil
}

func (t *TokenBucket) Limit() int {
	return t.capacity
}

// Window is the time a drained bucket takes to refill completely.
func (t *TokenBucket) Window() time.Duration {
	return time.Duration(t.capacity/t.refillRate) * time.Second
}

func (t *TokenBucket) Reset(ctx context.Context, key string) (time.Time, error) {
	state, err := t.load(ctx, t.key(key))
	if err != nil {
		return time.Time{}, err
	}

	tokensNeeded := float64(t.capacity) - state.Tokens
	secondsToFull := tokensNeeded / float64(t.refillRate)

	return time.Now().Add(time.Duration(secondsToFull * float64(time.Second))), nil
}
