package payments

import "time"

const (
	RefundPending    = "pending"
	RefundProcessing = "processing"
	RefundCompleted  = "completed"
	RefundFailed     = "failed"
)

// RefundBlocking reports whether a refund in the given status blocks a new
// refund attempt on the same payment. Only failed attempts may be retried.
func RefundBlocking(status string) bool {
	return status == RefundPending || status == RefundProcessing || status == RefundCompleted
}

type Refund struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	PaymentID string `gorm:"type:char(36);not null;index:ix_refunds_payment_id"`
	OrderID   string `gorm:"type:char(36);not null;index:ix_refunds_order_id"`
	TenantID  string `gorm:"type:char(36);not null;index:ix_refunds_tenant_id"`

	Gateway    string  `gorm:"type:varchar(64);not null"`
	GatewayRef *string `gorm:"type:varchar(128)"`

	Status           string `gorm:"type:varchar(32);not null"`
	AmountMinorUnits int64  `gorm:"not null"`
	Currency         string `gorm:"type:char(3);not null"`

	// ActiveKey mirrors PaymentID while the refund blocks new attempts
	// (pending, processing, completed) and is NULL once the refund fails.
	// The unique index is the storage-level half of the idempotency guard:
	// two concurrent writers cannot both insert a blocking refund.
	ActiveKey *string `gorm:"type:char(36);uniqueIndex:ux_refunds_active_payment"`

	Reason       *string `gorm:"type:varchar(255)"`
	ErrorMessage *string `gorm:"type:varchar(255)"`
	InitiatedBy  string  `gorm:"type:char(36);not null"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Refund) TableName() string { return "refunds" }
