package ratelimit

import "context"

// PlanSource looks up an organization's subscription plan. Implemented by
// the license service; may hit the database or the network.
type PlanSource interface {
	GetPlan(ctx context.Context, orgID string) (Plan, error)
}

// Resolver computes the thresholds that govern a single request, falling
// back across plan overrides and instance defaults.
type Resolver struct {
	registry *Registry
	plans    PlanSource
	isCloud  bool
}

func NewResolver(registry *Registry, plans PlanSource, isCloud bool) *Resolver {
	return &Resolver{
		registry: registry,
		plans:    plans,
		isCloud:  isCloud,
	}
}

// Resolve returns the fully-populated limits for one request. An empty
// orgID means the request is unauthenticated and gets the instance
// defaults - anonymous traffic can't be attributed to a plan.
//
// Authenticated requests take the plan's per-category overrides, except
// that outside cloud deployments a plan with custom limits is ignored:
// self-hosted instances manage their limits through instance config, not
// per-organization plan data.
//
// A plan lookup failure is returned as-is. Silently substituting defaults
// here would let a failing license lookup bypass an organization's
// configured limits, so the caller must fail the request instead.
func (r *Resolver) Resolve(ctx context.Context, orgID string) (Limits, error) {
	if orgID == "" {
		return r.registry.Snapshot(), nil
	}

	plan, err := r.plans.GetPlan(ctx, orgID)
	if err != nil {
		return Limits{}, err
	}

	if plan.CustomRateLimits && !r.isCloud {
		return r.registry.Snapshot(), nil
	}

	return merge(plan.Limits, r.registry.Snapshot()), nil
}

// merge overlays the set fields of overrides onto base, one category at a
// time. A partially-populated plan record must never collapse the whole
// response to defaults.
func merge(overrides *PlanLimits, base Limits) Limits {
	if overrides == nil {
		return base
	}

	out := base
	out.Read = coalesce(overrides.Read, base.Read)
	out.Write = coalesce(overrides.Write, base.Write)
	out.PublicEndpoint = coalesce(overrides.PublicEndpoint, base.PublicEndpoint)
	out.Secrets = coalesce(overrides.Secrets, base.Secrets)
	out.Auth = coalesce(overrides.Auth, base.Auth)
	out.InviteUser = coalesce(overrides.InviteUser, base.InviteUser)
	out.MFA = coalesce(overrides.MFA, base.MFA)
	out.Creation = coalesce(overrides.Creation, base.Creation)
	return out
}

func coalesce(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}
