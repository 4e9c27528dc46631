package ratelimit

import (
	"sync"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestNewRegistry_FillsMissingCategories(t *testing.T) {
	reg := NewRegistry(PlanLimits{Read: intPtr(300), Write: intPtr(60)})

	snap := reg.Snapshot()
	if snap.Read != 300 {
		t.Fatalf("expected read=300, got %d", snap.Read)
	}
	if snap.Write != 60 {
		t.Fatalf("expected write=60, got %d", snap.Write)
	}
	if snap.MFA != safeDefaults.MFA {
		t.Fatalf("expected mfa default %d, got %d", safeDefaults.MFA, snap.MFA)
	}
	if snap.Secrets != safeDefaults.Secrets {
		t.Fatalf("expected secrets default %d, got %d", safeDefaults.Secrets, snap.Secrets)
	}
}

func TestNewRegistry_EmptyConfigIsComplete(t *testing.T) {
	reg := NewRegistry(PlanLimits{})

	snap := reg.Snapshot()
	for _, c := range Categories() {
		if snap.Get(c) <= 0 {
			t.Fatalf("category %s not populated: %d", c, snap.Get(c))
		}
	}
}

func TestRegistry_UpdateReplacesSnapshot(t *testing.T) {
	reg := NewRegistry(PlanLimits{Read: intPtr(100)})

	reg.Update(PlanLimits{Write: intPtr(42)})

	snap := reg.Snapshot()
	if snap.Write != 42 {
		t.Fatalf("expected write=42 after update, got %d", snap.Write)
	}
	// Update is a full replacement; the old read override is gone.
	if snap.Read != safeDefaults.Read {
		t.Fatalf("expected read default %d after update, got %d", safeDefaults.Read, snap.Read)
	}
}

func TestRegistry_SnapshotIsImmutable(t *testing.T) {
	reg := NewRegistry(PlanLimits{Read: intPtr(100)})

	snap := reg.Snapshot()
	snap.Read = 1

	if reg.Snapshot().Read != 100 {
		t.Fatalf("mutating a snapshot leaked into the registry")
	}
}

func TestRegistry_ConcurrentReadersAndWriters(t *testing.T) {
	reg := NewRegistry(PlanLimits{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				reg.Update(PlanLimits{Read: intPtr(n*1000 + j)})
			}
		}(i + 1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				snap := reg.Snapshot()
				for _, c := range Categories() {
					if snap.Get(c) <= 0 {
						t.Errorf("observed incomplete snapshot: %s=%d", c, snap.Get(c))
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}
