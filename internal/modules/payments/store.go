package payments

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

type Store struct{ db *gorm.DB }

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) GetPayment(ctx context.Context, id string) (Payment, error) {
	var p Payment
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Payment{}, ErrPaymentNotFound
		}
		return Payment{}, err
	}
	return p, nil
}

func (s *Store) CreatePayment(ctx context.Context, p *Payment) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *Store) UpdatePayment(ctx context.Context, id string, updates map[string]any) error {
	updates["updated_at"] = time.Now()
	return s.db.WithContext(ctx).Model(&Payment{}).Where("id = ?", id).Updates(updates).Error
}

// BlockingRefund returns the refund that blocks a new attempt on the
// payment, if any: the latest one in pending, processing or completed.
func (s *Store) BlockingRefund(ctx context.Context, paymentID string) (*Refund, error) {
	var r Refund
	err := s.db.WithContext(ctx).
		Where("payment_id = ? AND status IN ?", paymentID,
			[]string{RefundPending, RefundProcessing, RefundCompleted}).
		Order("created_at DESC").
		First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// CreateRefund inserts a new refund with its ActiveKey set. A duplicate-key
// error means another writer holds the blocking slot; that is surfaced as
// ErrDuplicateActiveRefund so the caller converts it into AlreadyRefunded
// instead of propagating a raw database error.
func (s *Store) CreateRefund(ctx context.Context, r *Refund) error {
	key := r.PaymentID
	r.ActiveKey = &key
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		if isDup(err) {
			return ErrDuplicateActiveRefund
		}
		return err
	}
	return nil
}

func (s *Store) MarkRefundProcessing(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&Refund{}).
		Where("id = ? AND status = ?", id, RefundPending).
		Updates(map[string]any{"status": RefundProcessing, "updated_at": time.Now()}).Error
}

// FinalizeRefund moves a refund into a terminal-or-completed state. Failed
// refunds release the ActiveKey so the payment can be retried; completed
// refunds keep it, which is what makes a completed refund permanently block
// further attempts at the storage level.
func (s *Store) FinalizeRefund(ctx context.Context, id, status string, gatewayRef, errMsg *string) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now(),
	}
	if gatewayRef != nil {
		updates["gateway_ref"] = *gatewayRef
	}
	if errMsg != nil {
		updates["error_message"] = *errMsg
	}
	if status == RefundFailed {
		updates["active_key"] = nil
	}
	return s.db.WithContext(ctx).Model(&Refund{}).Where("id = ?", id).Updates(updates).Error
}

func (s *Store) GetRefund(ctx context.Context, id string) (Refund, error) {
	var r Refund
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Refund{}, ErrRefundNotFound
		}
		return Refund{}, err
	}
	return r, nil
}

// RefundByGatewayRef locates a refund by its provider reference; used when a
// webhook finalizes an asynchronously processed refund.
func (s *Store) RefundByGatewayRef(ctx context.Context, gatewayName, ref string) (Refund, error) {
	var r Refund
	err := s.db.WithContext(ctx).
		First(&r, "gateway = ? AND gateway_ref = ?", gatewayName, ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Refund{}, ErrRefundNotFound
		}
		return Refund{}, err
	}
	return r, nil
}

func (s *Store) PaymentByGatewayRef(ctx context.Context, gatewayName, ref string) (Payment, error) {
	var p Payment
	err := s.db.WithContext(ctx).
		First(&p, "gateway = ? AND gateway_ref = ?", gatewayName, ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Payment{}, ErrPaymentNotFound
		}
		return Payment{}, err
	}
	return p, nil
}

func isDup(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
