package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"selfserve-api/internal/ratelimit"
	"selfserve-api/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubPlanSource struct {
	plan ratelimit.Plan
	err  error
}

func (s *stubPlanSource) GetPlan(ctx context.Context, orgID string) (ratelimit.Plan, error) {
	return s.plan, s.err
}

func newThrottleTestRedis(t *testing.T) *storage.RedisClient {
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

func setContextValue(key, value string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(key, value)
		c.Next()
	}
}

func TestResolveLimitsAnonymousGetsInstanceDefaults(t *testing.T) {
	registry := ratelimit.NewRegistry(ratelimit.PlanLimits{Read: intPtr(100)})
	resolver := ratelimit.NewResolver(registry, &stubPlanSource{}, true)

	var got ratelimit.Limits
	router := gin.New()
	router.GET("/ping", ResolveLimits(resolver), func(c *gin.Context) {
		got, _ = RequestLimits(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got != registry.Snapshot() {
		t.Fatalf("anonymous request got %+v, want registry snapshot %+v", got, registry.Snapshot())
	}
}

func TestResolveLimitsAppliesPlanOverrides(t *testing.T) {
	registry := ratelimit.NewRegistry(ratelimit.PlanLimits{})
	plans := &stubPlanSource{
		plan: ratelimit.Plan{
			Name:   "scale",
			Limits: &ratelimit.PlanLimits{Read: intPtr(5000)},
		},
	}
	resolver := ratelimit.NewResolver(registry, plans, true)

	var got ratelimit.Limits
	router := gin.New()
	router.GET("/ping",
		setContextValue("org_id", "org-1"),
		ResolveLimits(resolver),
		func(c *gin.Context) {
			got, _ = RequestLimits(c)
			c.Status(http.StatusOK)
		},
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if got.Read != 5000 {
		t.Fatalf("read limit = %d, want plan override 5000", got.Read)
	}
	if got.Write != registry.Snapshot().Write {
		t.Fatalf("write limit = %d, want instance default %d", got.Write, registry.Snapshot().Write)
	}
}

func TestResolveLimitsFailsRequestOnPlanError(t *testing.T) {
	registry := ratelimit.NewRegistry(ratelimit.PlanLimits{})
	plans := &stubPlanSource{err: errors.New("db down")}
	resolver := ratelimit.NewResolver(registry, plans, true)

	router := gin.New()
	handlerRan := false
	router.GET("/ping",
		setContextValue("org_id", "org-1"),
		ResolveLimits(resolver),
		func(c *gin.Context) {
			handlerRan = true
			c.Status(http.StatusOK)
		},
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	// The outage must surface, not silently downgrade to defaults.
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if handlerRan {
		t.Fatal("handler should not run when resolution fails")
	}
}

func TestThrottleBlocksOverLimit(t *testing.T) {
	rc := newThrottleTestRedis(t)
	registry := ratelimit.NewRegistry(ratelimit.PlanLimits{MFA: intPtr(2)})
	resolver := ratelimit.NewResolver(registry, &stubPlanSource{}, false)

	router := gin.New()
	router.POST("/mfa",
		setContextValue("org_id", "org-1"),
		ResolveLimits(resolver),
		Throttle(rc, "fixed_window", ratelimit.CategoryMFA),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mfa", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
		if w.Header().Get("X-RateLimit-Limit") != "2" {
			t.Fatalf("X-RateLimit-Limit = %q, want 2", w.Header().Get("X-RateLimit-Limit"))
		}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mfa", nil))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("blocked response should carry Retry-After")
	}
	if w.Header().Get("X-RateLimit-Category") != "mfa" {
		t.Fatalf("X-RateLimit-Category = %q, want mfa", w.Header().Get("X-RateLimit-Category"))
	}
}

func TestThrottleCategoriesAreIndependent(t *testing.T) {
	rc := newThrottleTestRedis(t)
	registry := ratelimit.NewRegistry(ratelimit.PlanLimits{
		Read:  intPtr(1),
		Write: intPtr(1),
	})
	resolver := ratelimit.NewResolver(registry, &stubPlanSource{}, false)

	router := gin.New()
	chain := func(category ratelimit.Category) []gin.HandlerFunc {
		return []gin.HandlerFunc{
			setContextValue("org_id", "org-1"),
			ResolveLimits(resolver),
			Throttle(rc, "fixed_window", category),
			func(c *gin.Context) { c.Status(http.StatusOK) },
		}
	}
	router.GET("/read", chain(ratelimit.CategoryRead)...)
	router.POST("/write", chain(ratelimit.CategoryWrite)...)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/read", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first read: status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/read", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second read: status = %d, want 429", w.Code)
	}

	// Exhausting read must not consume the write budget.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/write", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("write after read exhausted: status = %d, want 200", w.Code)
	}
}

func TestThrottleWithoutResolvedLimitsPassesThrough(t *testing.T) {
	rc := newThrottleTestRedis(t)

	router := gin.New()
	router.GET("/ping",
		Throttle(rc, "fixed_window", ratelimit.CategoryRead),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func intPtr(v int) *int { return &v }
