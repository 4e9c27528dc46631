package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"selfserve-api/internal/metrics"
	"selfserve-api/internal/ratelimit"
	"selfserve-api/internal/storage"
)

const limitsContextKey = "rate_limits"

// ResolveLimits computes the thresholds governing this request, once,
// right after authentication. Handlers and the Throttle middleware read
// the result from the context.
//
// A failed plan lookup fails the request. Falling back to instance
// defaults here would let an outage bypass an organization's limits.
func ResolveLimits(resolver *ratelimit.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.GetString("org_id")

		limits, err := resolver.Resolve(c.Request.Context(), orgID)
		if err != nil {
			metrics.ResolveErrorsTotal.Inc()
			requestID := c.GetString("request_id")
			log.Printf("[%s] rate limit resolution failed: %v", requestID, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Unable to resolve rate limits",
			})
			c.Abort()
			return
		}

		c.Set(limitsContextKey, limits)

		c.Next()
	}
}

// RequestLimits returns the limits ResolveLimits attached to the request.
func RequestLimits(c *gin.Context) (ratelimit.Limits, bool) {
	v, exists := c.Get(limitsContextKey)
	if !exists {
		return ratelimit.Limits{}, false
	}
	limits, ok := v.(ratelimit.Limits)
	return limits, ok
}

// Throttle enforces the resolved threshold of one category on the route
// it wraps. Counters are keyed by organization when the request is
// authenticated, by client IP otherwise.
func Throttle(redis *storage.RedisClient, algorithm string, category ratelimit.Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		limits, ok := RequestLimits(c)
		if !ok {
			// ResolveLimits did not run; nothing to enforce against.
			c.Next()
			return
		}

		subject := c.GetString("org_id")
		if subject == "" {
			subject = c.ClientIP()
		}
		key := fmt.Sprintf("%s:%s", category, subject)

		limiter := ratelimit.NewLimiter(redis, algorithm, limits.Get(category), time.Minute)

		ctx := c.Request.Context()
		metrics.ThrottleChecksTotal.WithLabelValues(string(category)).Inc()

		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Rate limit check failed",
			})
			c.Abort()
			return
		}

		remaining, _ := limiter.Remaining(ctx, key)
		resetTime, _ := limiter.Reset(ctx, key)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.Limit()))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime.Unix()))
		c.Header("X-RateLimit-Category", string(category))

		if !allowed {
			metrics.ThrottleBlockedTotal.WithLabelValues(string(category)).Inc()

			retryAfter := int(time.Until(resetTime).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"category":    category,
				"limit":       limits.Get(category),
				"retry_after": resetTime.Unix(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
