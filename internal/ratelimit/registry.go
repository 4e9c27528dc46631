package ratelimit

import "sync/atomic"

// Hardcoded safe defaults, used whenever configuration or an admin sync
// leaves a category unset. The registry snapshot is always complete.
var safeDefaults = Limits{
	Read:           600,
	Write:          200,
	PublicEndpoint: 30,
	Secrets:        60,
	Auth:           60,
	InviteUser:     30,
	MFA:            20,
	Creation:       30,
}

// Registry holds the instance-wide default thresholds. Readers take an
// immutable snapshot; updates swap in a fresh value atomically, so a
// reader never observes a partially-written config.
type Registry struct {
	current atomic.Pointer[Limits]
}

// NewRegistry builds a registry from the (possibly partial) configured
// defaults. Missing categories fall back to the hardcoded defaults.
func NewRegistry(seed PlanLimits) *Registry {
	r := &Registry{}
	limits := merge(&seed, safeDefaults)
	r.current.Store(&limits)
	return r
}

// Snapshot returns the current instance defaults.
func (r *Registry) Snapshot() Limits {
	return *r.current.Load()
}

// Update replaces the instance defaults from an admin sync. The input may
// be partial; unset categories revert to the hardcoded defaults rather
// than keeping stale values, so a sync is always a full replacement.
func (r *Registry) Update(seed PlanLimits) Limits {
	limits := merge(&seed, safeDefaults)
	r.current.Store(&limits)
	return limits
}
