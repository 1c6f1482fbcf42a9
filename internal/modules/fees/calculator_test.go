package fees

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"paygrid.io/app/internal/modules/tenants"
)

type fakeStore struct {
	overrides map[string][]FeeOverride
	tiers     map[string]FeeTier
}

func (f *fakeStore) ActiveOverride(_ context.Context, tenantID string, at time.Time) (*FeeOverride, error) {
	for i := range f.overrides[tenantID] {
		o := f.overrides[tenantID][i]
		if o.ActiveAt(at) {
			return &o, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Tier(_ context.Context, name string) (*FeeTier, error) {
	t, ok := f.tiers[name]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

type fakeTenants struct{ byID map[string]tenants.Tenant }

func (f *fakeTenants) Get(_ context.Context, id string) (tenants.Tenant, error) {
	t, ok := f.byID[id]
	if !ok {
		return tenants.Tenant{}, tenants.ErrTenantNotFound
	}
	return t, nil
}

func pct(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newCalc(store *fakeStore, ts *fakeTenants) *Calculator {
	c := NewCalculator(store, ts)
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func stdTiers() map[string]FeeTier {
	return map[string]FeeTier{
		"standard": {Tier: "standard", Percentage: pct("1.5")},
		"premium":  {Tier: "premium", Percentage: pct("1.0")},
	}
}

func TestCalculate_OverrideBeatsTierDefault(t *testing.T) {
	store := &fakeStore{
		overrides: map[string][]FeeOverride{
			"t1": {{
				TenantID:   "t1",
				Percentage: pct("2.0"),
				StartsAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
				IsActive:   true,
				Reason:     "negotiated launch rate",
			}},
		},
		tiers: stdTiers(),
	}
	ts := &fakeTenants{byID: map[string]tenants.Tenant{
		"t1": {ID: "t1", SubscriptionTier: "standard"},
	}}

	b, err := newCalc(store, ts).Calculate(context.Background(), "t1", 10000, 320)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if b.PlatformFeeMinorUnits != 200 {
		t.Errorf("platform fee = %d, want 200", b.PlatformFeeMinorUnits)
	}
	if b.TotalFeesMinorUnits != 520 {
		t.Errorf("total fees = %d, want 520", b.TotalFeesMinorUnits)
	}
	if b.NetMinorUnits != 9480 {
		t.Errorf("net = %d, want 9480", b.NetMinorUnits)
	}
	if b.Reason != "negotiated launch rate" {
		t.Errorf("reason = %q, want override reason", b.Reason)
	}
}

func TestCalculate_WaiverZeroesPlatformFee(t *testing.T) {
	store := &fakeStore{tiers: stdTiers()}
	reason := "beta partner"
	ts := &fakeTenants{byID: map[string]tenants.Tenant{
		"t1": {ID: "t1", SubscriptionTier: "premium", PlatformFeeWaived: true, FeeWaiverReason: &reason},
	}}

	b, err := newCalc(store, ts).Calculate(context.Background(), "t1", 10000, 320)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if b.PlatformFeeMinorUnits != 0 || !b.Waived {
		t.Errorf("expected waived zero fee, got %d (waived=%v)", b.PlatformFeeMinorUnits, b.Waived)
	}
	if b.NetMinorUnits != 10000-320 {
		t.Errorf("net = %d, want %d", b.NetMinorUnits, 10000-320)
	}
	if b.Reason != "beta partner" {
		t.Errorf("reason = %q", b.Reason)
	}
}

func TestCalculate_OverrideBeatsWaiver(t *testing.T) {
	store := &fakeStore{
		overrides: map[string][]FeeOverride{
			"t1": {{
				TenantID:   "t1",
				Percentage: pct("0.5"),
				StartsAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
				IsActive:   true,
				Reason:     "temporary promo rate",
			}},
		},
		tiers: stdTiers(),
	}
	ts := &fakeTenants{byID: map[string]tenants.Tenant{
		"t1": {ID: "t1", SubscriptionTier: "standard", PlatformFeeWaived: true},
	}}

	b, err := newCalc(store, ts).Calculate(context.Background(), "t1", 10000, 0)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if b.Waived {
		t.Error("override should win over waiver")
	}
	if b.PlatformFeeMinorUnits != 50 {
		t.Errorf("platform fee = %d, want 50", b.PlatformFeeMinorUnits)
	}
}

func TestCalculate_ExpiredWaiverFallsThroughToTier(t *testing.T) {
	store := &fakeStore{tiers: stdTiers()}
	expired := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	ts := &fakeTenants{byID: map[string]tenants.Tenant{
		"t1": {ID: "t1", SubscriptionTier: "standard", PlatformFeeWaived: true, FeeWaivedUntil: &expired},
	}}

	b, err := newCalc(store, ts).Calculate(context.Background(), "t1", 10000, 0)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if b.Waived {
		t.Error("expired waiver must not apply")
	}
	if b.PlatformFeeMinorUnits != 150 {
		t.Errorf("platform fee = %d, want 150 (1.5%% tier)", b.PlatformFeeMinorUnits)
	}
}

func TestCalculate_ExpiredOverrideFallsThrough(t *testing.T) {
	expires := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		overrides: map[string][]FeeOverride{
			"t1": {{
				TenantID:   "t1",
				Percentage: pct("2.0"),
				StartsAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
				ExpiresAt:  &expires,
				IsActive:   true,
				Reason:     "january promo",
			}},
		},
		tiers: stdTiers(),
	}
	ts := &fakeTenants{byID: map[string]tenants.Tenant{
		"t1": {ID: "t1", SubscriptionTier: "premium"},
	}}

	b, err := newCalc(store, ts).Calculate(context.Background(), "t1", 10000, 0)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if b.PlatformFeeMinorUnits != 100 {
		t.Errorf("platform fee = %d, want 100 (premium tier)", b.PlatformFeeMinorUnits)
	}
}

func TestCalculate_RoundingHalfUp(t *testing.T) {
	store := &fakeStore{tiers: stdTiers()}
	ts := &fakeTenants{byID: map[string]tenants.Tenant{
		"t1": {ID: "t1", SubscriptionTier: "standard"},
	}}

	// 1999 * 1.5% = 29.985 -> 30
	b, err := newCalc(store, ts).Calculate(context.Background(), "t1", 1999, 0)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if b.PlatformFeeMinorUnits != 30 {
		t.Errorf("platform fee = %d, want 30", b.PlatformFeeMinorUnits)
	}
}

func TestCalculate_UnknownTierUsesDefault(t *testing.T) {
	store := &fakeStore{tiers: stdTiers()}
	ts := &fakeTenants{byID: map[string]tenants.Tenant{
		"t1": {ID: "t1", SubscriptionTier: "legacy-gold"},
	}}

	b, err := newCalc(store, ts).Calculate(context.Background(), "t1", 10000, 0)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if b.PlatformFeeMinorUnits != 150 {
		t.Errorf("platform fee = %d, want 150 (standard fallback)", b.PlatformFeeMinorUnits)
	}
	if b.Reason != "tier: standard" {
		t.Errorf("reason = %q", b.Reason)
	}
}

func TestCalculate_FixedFeeComponent(t *testing.T) {
	store := &fakeStore{tiers: map[string]FeeTier{
		"standard": {Tier: "standard", Percentage: pct("1.0"), FixedMinorUnits: 25},
	}}
	ts := &fakeTenants{byID: map[string]tenants.Tenant{
		"t1": {ID: "t1", SubscriptionTier: "standard"},
	}}

	b, err := newCalc(store, ts).Calculate(context.Background(), "t1", 10000, 0)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if b.PlatformFeeMinorUnits != 125 {
		t.Errorf("platform fee = %d, want 125", b.PlatformFeeMinorUnits)
	}
}
