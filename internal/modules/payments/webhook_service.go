package payments

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paygrid.io/app/internal/gateway"
)

// ProviderEvent persists every accepted webhook delivery. The unique index
// on (gateway, event_id) deduplicates provider retries.
type ProviderEvent struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	Gateway     string         `gorm:"type:varchar(64);not null;uniqueIndex:ux_provider_events_gateway_event,priority:1"`
	EventID     string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_provider_events_gateway_event,priority:2"`
	EventType   string         `gorm:"type:varchar(64);not null"`
	PayloadJSON datatypes.JSON `gorm:"type:json;not null"`

	ReceivedAt   time.Time  `gorm:"type:datetime(3);not null"`
	ProcessedAt  *time.Time `gorm:"type:datetime(3)"`
	ProcessError *string    `gorm:"type:varchar(255)"`
}

func (ProviderEvent) TableName() string { return "provider_events" }

// WebhookService applies verified provider events to payment and refund
// rows. Signature validation happens before this service is called; events
// arriving here are trusted.
type WebhookService struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewWebhookService(db *gorm.DB, logger *slog.Logger) *WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{db: db, logger: logger}
}

func (s *WebhookService) Handle(ctx context.Context, gatewayName string, ev gateway.WebhookEvent, rawBody []byte) error {
	payload, _ := json.RawMessage(rawBody).MarshalJSON()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		pe := ProviderEvent{
			ID:          uuid.NewString(),
			Gateway:     gatewayName,
			EventID:     ev.EventID,
			EventType:   ev.Type,
			PayloadJSON: datatypes.JSON(payload),
			ReceivedAt:  now,
		}

		// dedupe: unique(gateway, event_id)
		if err := tx.WithContext(ctx).Create(&pe).Error; err != nil {
			if isDup(err) {
				// already received; return nil so the provider gets 200
				s.logger.InfoContext(ctx, "webhook event deduplicated",
					"gateway", gatewayName, "event_id", ev.EventID, "type", ev.Type)
				return nil
			}
			return err
		}

		var applyErr error
		switch ev.Type {
		case "charge.succeeded":
			applyErr = s.applyChargeSucceeded(ctx, tx, gatewayName, ev)
		case "charge.failed":
			applyErr = s.applyChargeFailed(ctx, tx, gatewayName, ev)
		case "refund.completed":
			applyErr = s.applyRefundCompleted(ctx, tx, gatewayName, ev)
		case "refund.failed":
			applyErr = s.applyRefundFailed(ctx, tx, gatewayName, ev)
		case "chargeback.created":
			// recorded for the dispute pipeline; no state transition here
			applyErr = nil
		default:
			applyErr = errors.New("unknown webhook event type")
		}

		if applyErr != nil {
			msg := truncate(applyErr.Error(), 250)
			if err := tx.WithContext(ctx).Model(&ProviderEvent{}).
				Where("id = ?", pe.ID).
				Updates(map[string]any{"process_error": msg}).Error; err != nil {
				return err
			}
			s.logger.ErrorContext(ctx, "webhook event apply failed",
				"gateway", gatewayName, "event_id", ev.EventID, "type", ev.Type, "error", msg)
			// propagate so the handler returns 500 and the provider retries
			return applyErr
		}

		processed := now
		if err := tx.WithContext(ctx).Model(&ProviderEvent{}).
			Where("id = ?", pe.ID).
			Updates(map[string]any{"processed_at": &processed, "process_error": nil}).Error; err != nil {
			return err
		}

		s.logger.InfoContext(ctx, "webhook event processed",
			"gateway", gatewayName, "event_id", ev.EventID, "type", ev.Type)
		return nil
	})
}

func (s *WebhookService) applyChargeSucceeded(ctx context.Context, tx *gorm.DB, gatewayName string, ev gateway.WebhookEvent) error {
	if ev.PaymentRef == "" {
		return errors.New("missing payment_ref")
	}

	var p Payment
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "gateway = ? AND gateway_ref = ?", gatewayName, ev.PaymentRef).Error; err != nil {
		return err // not found: provider retries until the row exists
	}

	// idempotent
	if p.Status == StatusPaid {
		return nil
	}

	now := time.Now()
	if err := tx.WithContext(ctx).Model(&Payment{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"status":        StatusPaid,
			"error_message": nil,
			"updated_at":    now,
		}).Error; err != nil {
		return err
	}

	return ensureLedgerEntry(ctx, tx, LedgerEntry{
		ID:               uuid.NewString(),
		OrderID:          p.OrderID,
		TenantID:         p.TenantID,
		Event:            "payment_succeeded",
		AmountMinorUnits: p.AmountMinorUnits,
		Currency:         p.Currency,
		RefType:          "payment",
		RefID:            p.ID,
		CreatedAt:        now,
	})
}

func (s *WebhookService) applyChargeFailed(ctx context.Context, tx *gorm.DB, gatewayName string, ev gateway.WebhookEvent) error {
	if ev.PaymentRef == "" {
		return errors.New("missing payment_ref")
	}

	var p Payment
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "gateway = ? AND gateway_ref = ?", gatewayName, ev.PaymentRef).Error; err != nil {
		return err
	}
	if p.Status == StatusFailed {
		return nil
	}

	return tx.WithContext(ctx).Model(&Payment{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"status":        StatusFailed,
			"error_message": "provider webhook: failed",
			"updated_at":    time.Now(),
		}).Error
}

func (s *WebhookService) applyRefundCompleted(ctx context.Context, tx *gorm.DB, gatewayName string, ev gateway.WebhookEvent) error {
	if ev.RefundRef == "" {
		return errors.New("missing refund_ref")
	}

	var r Refund
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&r, "gateway = ? AND gateway_ref = ?", gatewayName, ev.RefundRef).Error; err != nil {
		return err
	}
	if r.Status == RefundCompleted {
		return nil
	}

	now := time.Now()
	if err := tx.WithContext(ctx).Model(&Refund{}).
		Where("id = ?", r.ID).
		Updates(map[string]any{
			"status":        RefundCompleted,
			"error_message": nil,
			"updated_at":    now,
		}).Error; err != nil {
		return err
	}

	return ensureLedgerEntry(ctx, tx, LedgerEntry{
		ID:               uuid.NewString(),
		OrderID:          r.OrderID,
		TenantID:         r.TenantID,
		Event:            "refund_succeeded",
		AmountMinorUnits: -r.AmountMinorUnits,
		Currency:         r.Currency,
		RefType:          "refund",
		RefID:            r.ID,
		CreatedAt:        now,
	})
}

func (s *WebhookService) applyRefundFailed(ctx context.Context, tx *gorm.DB, gatewayName string, ev gateway.WebhookEvent) error {
	if ev.RefundRef == "" {
		return errors.New("missing refund_ref")
	}

	var r Refund
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&r, "gateway = ? AND gateway_ref = ?", gatewayName, ev.RefundRef).Error; err != nil {
		return err
	}
	if r.Status == RefundFailed {
		return nil
	}

	now := time.Now()
	if err := tx.WithContext(ctx).Model(&Refund{}).
		Where("id = ?", r.ID).
		Updates(map[string]any{
			"status":        RefundFailed,
			"error_message": "provider webhook: failed",
			"active_key":    nil,
			"updated_at":    now,
		}).Error; err != nil {
		return err
	}

	return ensureLedgerEntry(ctx, tx, LedgerEntry{
		ID:               uuid.NewString(),
		OrderID:          r.OrderID,
		TenantID:         r.TenantID,
		Event:            "refund_failed",
		AmountMinorUnits: 0,
		Currency:         r.Currency,
		RefType:          "refund",
		RefID:            r.ID,
		CreatedAt:        now,
	})
}

func ensureLedgerEntry(ctx context.Context, tx *gorm.DB, e LedgerEntry) error {
	var cnt int64
	if err := tx.WithContext(ctx).
		Model(&LedgerEntry{}).
		Where("ref_type = ? AND ref_id = ? AND event = ?", e.RefType, e.RefID, e.Event).
		Count(&cnt).Error; err != nil {
		return err
	}
	if cnt > 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&e).Error
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
