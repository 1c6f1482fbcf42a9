package payments

import "time"

// LedgerEntry is the append-only financial audit trail. One entry per money
// movement event; RefType/RefID point at the payment or refund that caused
// it. Refund amounts are negative.
type LedgerEntry struct {
	ID       string `gorm:"type:char(36);primaryKey"`
	OrderID  string `gorm:"type:char(36);not null;index:ix_ledger_entries_order_id"`
	TenantID string `gorm:"type:char(36);not null;index:ix_ledger_entries_tenant_id"`

	Event            string `gorm:"type:varchar(64);not null"` // payment_succeeded|refund_succeeded|refund_failed
	AmountMinorUnits int64  `gorm:"not null"`
	Currency         string `gorm:"type:char(3);not null"`

	RefType string `gorm:"type:varchar(32);not null"` // payment|refund
	RefID   string `gorm:"type:char(36);not null"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }
