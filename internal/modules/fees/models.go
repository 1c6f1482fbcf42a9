package fees

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTier is used when a tenant's subscription tier has no FeeTier row.
const DefaultTier = "standard"

// FeeTier maps a subscription tier name to its platform fee schedule.
// Static reference data, maintained by administrators.
type FeeTier struct {
	Tier            string          `gorm:"type:varchar(32);primaryKey"`
	Percentage      decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	FixedMinorUnits int64           `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (FeeTier) TableName() string { return "fee_tiers" }

// FeeOverride is a tenant-specific exception to tier defaults, bounded by an
// activation window. An active override wins over both the tenant's waiver
// and the tier default.
type FeeOverride struct {
	ID       string `gorm:"type:char(36);primaryKey"`
	TenantID string `gorm:"type:char(36);not null;index:ix_fee_overrides_tenant_id"`

	Percentage      decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	FixedMinorUnits int64           `gorm:"not null;default:0"`

	StartsAt  time.Time  `gorm:"type:datetime(3);not null"`
	ExpiresAt *time.Time `gorm:"type:datetime(3)"`
	IsActive  bool       `gorm:"not null;default:true"`
	Reason    string     `gorm:"type:varchar(255);not null"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (FeeOverride) TableName() string { return "fee_overrides" }

// ActiveAt reports whether the override applies at t: flagged active and t
// inside [StartsAt, ExpiresAt), no expiry meaning open-ended.
func (o *FeeOverride) ActiveAt(t time.Time) bool {
	if !o.IsActive {
		return false
	}
	if t.Before(o.StartsAt) {
		return false
	}
	if o.ExpiresAt != nil && !t.Before(*o.ExpiresAt) {
		return false
	}
	return true
}
