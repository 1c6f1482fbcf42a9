package payments

import "time"

const (
	StatusPending    = "pending"
	StatusAuthorized = "authorized"
	StatusPaid       = "paid"
	StatusFailed     = "failed"
)

type Payment struct {
	ID       string `gorm:"type:char(36);primaryKey"`
	TenantID string `gorm:"type:char(36);not null;index:ix_payments_tenant_id"`
	OrderID  string `gorm:"type:char(36);not null;index:ix_payments_order_id"`

	Gateway    string  `gorm:"type:varchar(64);not null"`
	GatewayRef *string `gorm:"type:varchar(128)"`

	Status           string `gorm:"type:varchar(32);not null"`
	AmountMinorUnits int64  `gorm:"not null"`
	Currency         string `gorm:"type:char(3);not null"`

	GatewayFeeMinorUnits  int64 `gorm:"not null;default:0"`
	PlatformFeeMinorUnits int64 `gorm:"not null;default:0"`
	NetMinorUnits         int64 `gorm:"not null;default:0"`

	ErrorMessage *string   `gorm:"type:varchar(255)"`
	CreatedAt    time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt    time.Time `gorm:"type:datetime(3);not null"`
}

func (Payment) TableName() string { return "payments" }
