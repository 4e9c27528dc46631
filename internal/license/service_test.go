package license

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"selfserve-api/internal/models"
	"selfserve-api/internal/storage"
)

type fakePlanStore struct {
	plan  *models.Plan
	err   error
	calls int
}

func (f *fakePlanStore) FindForOrganization(ctx context.Context, orgID uuid.UUID) (*models.Plan, error) {
	f.calls++
	return f.plan, f.err
}

func testRedis(t *testing.T) *storage.RedisClient {
	t.Helper()
	mr := miniredis.RunT(t)
	return storage.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func intPtr(v int) *int { return &v }

func TestGetPlan_ReturnsPlanFromStore(t *testing.T) {
	store := &fakePlanStore{plan: &models.Plan{
		Name:             "pro",
		CustomRateLimits: true,
		ReadLimit:        intPtr(1200),
	}}
	svc := NewService(store, nil)

	plan, err := svc.GetPlan(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Name != "pro" || !plan.CustomRateLimits {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if plan.Limits == nil || plan.Limits.Read == nil || *plan.Limits.Read != 1200 {
		t.Fatalf("expected read override 1200, got %+v", plan.Limits)
	}
}

func TestGetPlan_NoOverridesMeansNilLimits(t *testing.T) {
	store := &fakePlanStore{plan: &models.Plan{Name: "free"}}
	svc := NewService(store, nil)

	plan, err := svc.GetPlan(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Limits != nil {
		t.Fatalf("expected nil limits for a plan with no overrides, got %+v", plan.Limits)
	}
}

func TestGetPlan_InvalidOrgID(t *testing.T) {
	svc := NewService(&fakePlanStore{}, nil)

	_, err := svc.GetPlan(context.Background(), "not-a-uuid")
	if !errors.Is(err, ErrInvalidOrganizationID) {
		t.Fatalf("expected ErrInvalidOrganizationID, got %v", err)
	}
}

func TestGetPlan_UnknownOrganization(t *testing.T) {
	svc := NewService(&fakePlanStore{plan: nil}, nil)

	_, err := svc.GetPlan(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestGetPlan_StoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("db down")
	svc := NewService(&fakePlanStore{err: storeErr}, nil)

	_, err := svc.GetPlan(context.Background(), uuid.NewString())
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}

func TestGetPlan_SecondLookupServedFromCache(t *testing.T) {
	store := &fakePlanStore{plan: &models.Plan{Name: "team", WriteLimit: intPtr(500)}}
	svc := NewService(store, testRedis(t))
	orgID := uuid.NewString()

	first, err := svc.GetPlan(context.Background(), orgID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.GetPlan(context.Background(), orgID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.calls != 1 {
		t.Fatalf("expected a single store lookup, got %d", store.calls)
	}
	if second.Name != first.Name || *second.Limits.Write != *first.Limits.Write {
		t.Fatalf("cache returned a different plan: %+v vs %+v", first, second)
	}
}

func TestInvalidate_ForcesFreshLookup(t *testing.T) {
	store := &fakePlanStore{plan: &models.Plan{Name: "team"}}
	svc := NewService(store, testRedis(t))
	orgID := uuid.NewString()

	if _, err := svc.GetPlan(context.Background(), orgID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc.Invalidate(context.Background(), orgID)

	if _, err := svc.GetPlan(context.Background(), orgID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected store lookup after invalidation, got %d calls", store.calls)
	}
}
