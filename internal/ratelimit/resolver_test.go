package ratelimit

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakePlanSource struct {
	plan  Plan
	err   error
	calls int
}

func (f *fakePlanSource) GetPlan(ctx context.Context, orgID string) (Plan, error) {
	f.calls++
	return f.plan, f.err
}

func testRegistry() *Registry {
	return NewRegistry(PlanLimits{Read: intPtr(300), Write: intPtr(60)})
}

func TestResolve_UnauthenticatedUsesInstanceDefaults(t *testing.T) {
	reg := testRegistry()
	plans := &fakePlanSource{
		plan: Plan{CustomRateLimits: true, Limits: &PlanLimits{Read: intPtr(9999)}},
	}
	r := NewResolver(reg, plans, true)

	got, err := r.Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, reg.Snapshot()) {
		t.Fatalf("expected instance defaults %+v, got %+v", reg.Snapshot(), got)
	}
	if plans.calls != 0 {
		t.Fatalf("plan lookup must not run for anonymous requests, got %d calls", plans.calls)
	}
}

func TestResolve_SelfHostedIgnoresCustomPlanLimits(t *testing.T) {
	reg := testRegistry()
	plans := &fakePlanSource{
		plan: Plan{CustomRateLimits: true, Limits: &PlanLimits{Read: intPtr(9999)}},
	}
	r := NewResolver(reg, plans, false)

	got, err := r.Resolve(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Read != 300 {
		t.Fatalf("expected instance read=300 on self-hosted, got %d", got.Read)
	}
	if !reflect.DeepEqual(got, reg.Snapshot()) {
		t.Fatalf("expected instance defaults %+v, got %+v", reg.Snapshot(), got)
	}
}

func TestResolve_CloudMergesPlanOverridesPerCategory(t *testing.T) {
	reg := testRegistry()
	plans := &fakePlanSource{
		plan: Plan{CustomRateLimits: true, Limits: &PlanLimits{Read: intPtr(9999)}},
	}
	r := NewResolver(reg, plans, true)

	got, err := r.Resolve(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Read != 9999 {
		t.Fatalf("expected plan read=9999, got %d", got.Read)
	}
	// Categories the plan omits keep the instance value.
	if got.Write != 60 {
		t.Fatalf("expected instance write=60, got %d", got.Write)
	}
	if got.MFA != reg.Snapshot().MFA {
		t.Fatalf("expected instance mfa=%d, got %d", reg.Snapshot().MFA, got.MFA)
	}
}

func TestResolve_NilPlanLimitsUsesInstanceDefaults(t *testing.T) {
	reg := testRegistry()
	plans := &fakePlanSource{plan: Plan{CustomRateLimits: false, Limits: nil}}
	r := NewResolver(reg, plans, false)

	got, err := r.Resolve(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, reg.Snapshot()) {
		t.Fatalf("expected instance defaults %+v, got %+v", reg.Snapshot(), got)
	}
}

func TestResolve_PlanOverridesApplyWithoutCustomFlag(t *testing.T) {
	// customRateLimits gates the self-hosted short-circuit, not the merge:
	// a plan without the flag still contributes its populated fields.
	reg := testRegistry()
	plans := &fakePlanSource{
		plan: Plan{CustomRateLimits: false, Limits: &PlanLimits{Write: intPtr(120)}},
	}
	r := NewResolver(reg, plans, false)

	got, err := r.Resolve(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Write != 120 {
		t.Fatalf("expected plan write=120, got %d", got.Write)
	}
	if got.Read != 300 {
		t.Fatalf("expected instance read=300, got %d", got.Read)
	}
}

func TestResolve_PlanLookupFailurePropagates(t *testing.T) {
	reg := testRegistry()
	lookupErr := errors.New("license service unreachable")
	r := NewResolver(reg, &fakePlanSource{err: lookupErr}, true)

	_, err := r.Resolve(context.Background(), "org-1")
	if !errors.Is(err, lookupErr) {
		t.Fatalf("expected lookup error to propagate, got %v", err)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	reg := testRegistry()
	plans := &fakePlanSource{
		plan: Plan{Limits: &PlanLimits{Read: intPtr(50), MFA: intPtr(5)}},
	}
	r := NewResolver(reg, plans, true)

	first, err := r.Resolve(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.Resolve(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("resolve is not idempotent: %+v vs %+v", first, second)
	}
}

func TestResolve_OutputAlwaysComplete(t *testing.T) {
	reg := testRegistry()

	cases := []struct {
		name    string
		orgID   string
		isCloud bool
		plan    Plan
	}{
		{name: "anonymous", orgID: ""},
		{name: "nil plan limits", orgID: "org-1", plan: Plan{}},
		{name: "partial plan", orgID: "org-1", isCloud: true,
			plan: Plan{CustomRateLimits: true, Limits: &PlanLimits{Secrets: intPtr(10)}}},
		{name: "self-hosted custom", orgID: "org-1",
			plan: Plan{CustomRateLimits: true, Limits: &PlanLimits{Read: intPtr(1)}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResolver(reg, &fakePlanSource{plan: tc.plan}, tc.isCloud)
			got, err := r.Resolve(context.Background(), tc.orgID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, c := range Categories() {
				if got.Get(c) <= 0 {
					t.Fatalf("category %s not populated: %d", c, got.Get(c))
				}
			}
		})
	}
}

func TestMerge_PerCategory(t *testing.T) {
	base := Limits{Read: 1, Write: 2, PublicEndpoint: 3, Secrets: 4, Auth: 5, InviteUser: 6, MFA: 7, Creation: 8}

	got := merge(&PlanLimits{Write: intPtr(20), Creation: intPtr(80)}, base)

	want := base
	want.Write = 20
	want.Creation = 80
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}
