package refunds

import (
	"fmt"
	"testing"
	"time"
)

func TestRateLimiter_ThresholdAndFreshWindow(t *testing.T) {
	l := NewRateLimiter(100, time.Hour)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		if !l.Allow("tenant-1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("tenant-1") {
		t.Error("101st request in the window should be rejected")
	}

	// lazy reset: first request after expiry starts a fresh window
	now = now.Add(time.Hour)
	if !l.Allow("tenant-1") {
		t.Error("first request in a fresh window should be allowed")
	}
}

func TestRateLimiter_TenantsAreIndependent(t *testing.T) {
	l := NewRateLimiter(1, time.Hour)

	if !l.Allow("a") {
		t.Fatal("first request for tenant a")
	}
	if l.Allow("a") {
		t.Error("tenant a over limit")
	}
	if !l.Allow("b") {
		t.Error("tenant b should have its own budget")
	}
}

func TestRateLimiter_SweepBoundsMemory(t *testing.T) {
	l := NewRateLimiter(5, time.Minute)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < maxBuckets; i++ {
		l.Allow(fmt.Sprintf("tenant-%d", i))
	}
	now = now.Add(2 * time.Minute)
	l.Allow("fresh-tenant")

	l.mu.Lock()
	n := len(l.buckets)
	l.mu.Unlock()
	if n > 1 {
		t.Errorf("expired buckets not swept, %d remain", n)
	}
}
