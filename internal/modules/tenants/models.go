package tenants

import "time"

type Tenant struct {
	ID               string `gorm:"type:char(36);primaryKey"`
	Name             string `gorm:"type:varchar(128);not null"`
	SubscriptionTier string `gorm:"type:varchar(32);not null;default:standard"`
	Gateway          string `gorm:"type:varchar(64);not null"`

	// Fee waiver: zeroes the platform fee while active. Orthogonal to fee
	// overrides; an active override wins over the waiver.
	PlatformFeeWaived bool       `gorm:"not null;default:false"`
	FeeWaivedUntil    *time.Time `gorm:"type:datetime(3)"`
	FeeWaiverReason   *string    `gorm:"type:varchar(255)"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Tenant) TableName() string { return "tenants" }

// GatewayCredential stores one tenant's encrypted secret bundle for one
// provider. SecretEnc is a vault token ("iv:tag:ciphertext") wrapping the
// JSON credential bundle; plaintext secrets are never persisted or logged.
type GatewayCredential struct {
	ID       string `gorm:"type:char(36);primaryKey"`
	TenantID string `gorm:"type:char(36);not null;uniqueIndex:ux_gateway_credentials_tenant_provider,priority:1"`
	Provider string `gorm:"type:varchar(64);not null;uniqueIndex:ux_gateway_credentials_tenant_provider,priority:2"`

	SecretEnc string `gorm:"type:text;not null"`
	TestMode  bool   `gorm:"not null;default:true"`

	RotatedAt *time.Time `gorm:"type:datetime(3)"`
	CreatedAt time.Time  `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time  `gorm:"type:datetime(3);not null"`
}

func (GatewayCredential) TableName() string { return "gateway_credentials" }
