package ratelimit

import (
	"context"
	"time"
)

// Limiter applies one threshold to one key. Implementations keep their
// counters in redis so limits hold across instances.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)

	Remaining(ctx context.Context, key string) (int, error)

	Limit() int

	Window() time.Duration

	Reset(ctx context.Context, key string) (time.Time, error)
}
