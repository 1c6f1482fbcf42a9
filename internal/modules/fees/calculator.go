package fees

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"paygrid.io/app/internal/modules/tenants"
)

// Breakdown itemizes the fees on one transaction so downstream receipts can
// render a transparent line-by-line view.
type Breakdown struct {
	Percentage            decimal.Decimal
	FixedMinorUnits       int64
	PlatformFeeMinorUnits int64
	GatewayFeeMinorUnits  int64
	TotalFeesMinorUnits   int64
	NetMinorUnits         int64
	Waived                bool
	Reason                string
}

type Store interface {
	// ActiveOverride returns the override in effect for the tenant at the
	// given time, or nil when none applies.
	ActiveOverride(ctx context.Context, tenantID string, at time.Time) (*FeeOverride, error)
	Tier(ctx context.Context, name string) (*FeeTier, error)
}

type TenantStore interface {
	Get(ctx context.Context, id string) (tenants.Tenant, error)
}

// Calculator resolves the platform fee for a transaction. Resolution order,
// first match wins: active override, active waiver, subscription tier
// default. Overrides and waivers are deliberately orthogonal: operations can
// grant a one-off exception without touching the waiver flag, and waivers
// expire without touching override rows.
type Calculator struct {
	store   Store
	tenants TenantStore
	now     func() time.Time
}

func NewCalculator(store Store, tenantStore TenantStore) *Calculator {
	return &Calculator{store: store, tenants: tenantStore, now: time.Now}
}

func (c *Calculator) Calculate(ctx context.Context, tenantID string, amountMinorUnits, gatewayFeeMinorUnits int64) (Breakdown, error) {
	now := c.now()

	// 1. active override
	ov, err := c.store.ActiveOverride(ctx, tenantID, now)
	if err != nil {
		return Breakdown{}, err
	}
	if ov != nil {
		return c.breakdown(amountMinorUnits, gatewayFeeMinorUnits, ov.Percentage, ov.FixedMinorUnits, false, ov.Reason), nil
	}

	t, err := c.tenants.Get(ctx, tenantID)
	if err != nil {
		return Breakdown{}, err
	}

	// 2. active waiver
	if t.PlatformFeeWaived && (t.FeeWaivedUntil == nil || now.Before(*t.FeeWaivedUntil)) {
		reason := "platform fee waived"
		if t.FeeWaiverReason != nil {
			reason = *t.FeeWaiverReason
		}
		return c.breakdown(amountMinorUnits, gatewayFeeMinorUnits, decimal.Zero, 0, true, reason), nil
	}

	// 3. tier default, with documented fallback tier
	tierName := t.SubscriptionTier
	if tierName == "" {
		tierName = DefaultTier
	}
	tier, err := c.store.Tier(ctx, tierName)
	if err != nil {
		return Breakdown{}, err
	}
	if tier == nil && tierName != DefaultTier {
		tier, err = c.store.Tier(ctx, DefaultTier)
		if err != nil {
			return Breakdown{}, err
		}
	}
	if tier == nil {
		// no tier data at all: charge nothing rather than guess
		return c.breakdown(amountMinorUnits, gatewayFeeMinorUnits, decimal.Zero, 0, false, "no fee tier configured"), nil
	}
	return c.breakdown(amountMinorUnits, gatewayFeeMinorUnits, tier.Percentage, tier.FixedMinorUnits, false, "tier: "+tier.Tier), nil
}

// breakdown computes platformFee = round(amount * pct/100) + fixed with
// half-up rounding at the minor-unit boundary.
func (c *Calculator) breakdown(amount, gatewayFee int64, pct decimal.Decimal, fixed int64, waived bool, reason string) Breakdown {
	platform := decimal.NewFromInt(amount).
		Mul(pct).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart() + fixed

	total := gatewayFee + platform
	return Breakdown{
		Percentage:            pct,
		FixedMinorUnits:       fixed,
		PlatformFeeMinorUnits: platform,
		GatewayFeeMinorUnits:  gatewayFee,
		TotalFeesMinorUnits:   total,
		NetMinorUnits:         amount - total,
		Waived:                waived,
		Reason:                reason,
	}
}
