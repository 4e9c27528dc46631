package license

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"selfserve-api/internal/models"
	"selfserve-api/internal/ratelimit"
	"selfserve-api/internal/storage"
)

var (
	ErrInvalidOrganizationID = errors.New("invalid organization id")
	ErrPlanNotFound          = errors.New("no plan found for organization")
)

const cacheTTL = 5 * time.Minute

// PlanStore is the persistence slice the license service needs.
type PlanStore interface {
	FindForOrganization(ctx context.Context, orgID uuid.UUID) (*models.Plan, error)
}

// Service resolves an organization to its subscription plan. Lookups go
// through a short-lived redis cache so the per-request plan fetch doesn't
// hit postgres every time.
//
// Implements ratelimit.PlanSource.
type Service struct {
	store PlanStore
	redis *storage.RedisClient
}

func NewService(store PlanStore, redis *storage.RedisClient) *Service {
	return &Service{
		store: store,
		redis: redis,
	}
}

func (s *Service) GetPlan(ctx context.Context, orgID string) (ratelimit.Plan, error) {
	id, err := uuid.Parse(orgID)
	if err != nil {
		return ratelimit.Plan{}, fmt.Errorf("%w: %q", ErrInvalidOrganizationID, orgID)
	}

	cacheKey := fmt.Sprintf("plan:cache:%s", orgID)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey); err == nil && cached != "" {
			var plan ratelimit.Plan
			if err := json.Unmarshal([]byte(cached), &plan); err == nil {
				return plan, nil
			}
		}
	}

	record, err := s.store.FindForOrganization(ctx, id)
	if err != nil {
		return ratelimit.Plan{}, fmt.Errorf("plan lookup for organization %s: %w", orgID, err)
	}
	if record == nil {
		return ratelimit.Plan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, orgID)
	}

	plan := toPlan(record)

	if s.redis != nil {
		if planJSON, err := json.Marshal(plan); err == nil {
			s.redis.Set(ctx, cacheKey, planJSON, cacheTTL)
		}
	}

	return plan, nil
}

// Invalidate drops the cached plan for an organization, e.g. after a
// plan change.
func (s *Service) Invalidate(ctx context.Context, orgID string) {
	if s.redis == nil {
		return
	}
	s.redis.Del(ctx, fmt.Sprintf("plan:cache:%s", orgID))
}

func toPlan(record *models.Plan) ratelimit.Plan {
	plan := ratelimit.Plan{
		Name:             record.Name,
		CustomRateLimits: record.CustomRateLimits,
	}

	limits := ratelimit.PlanLimits{
		Read:           record.ReadLimit,
		Write:          record.WriteLimit,
		PublicEndpoint: record.PublicEndpointLimit,
		Secrets:        record.SecretsLimit,
		Auth:           record.AuthLimit,
		InviteUser:     record.InviteUserLimit,
		MFA:            record.MFALimit,
		Creation:       record.CreationLimit,
	}

	// Preserve "no overrides at all" as a nil limits block.
	if limits != (ratelimit.PlanLimits{}) {
		plan.Limits = &limits
	}

	return plan
}
