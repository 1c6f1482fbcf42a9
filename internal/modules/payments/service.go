package payments

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"paygrid.io/app/internal/gateway"
	"paygrid.io/app/internal/modules/fees"
	"paygrid.io/app/internal/shared/apperr"
)

type GatewayResolver interface {
	CreateFromTenant(ctx context.Context, tenantID, provider string) (gateway.Adapter, error)
}

type FeeCalculator interface {
	Calculate(ctx context.Context, tenantID string, amountMinorUnits, gatewayFeeMinorUnits int64) (fees.Breakdown, error)
}

type TenantGateway interface {
	GatewayFor(ctx context.Context, tenantID string) (string, error)
}

// ChargeService runs the charge and authorize/capture flows: create the
// payment row, call the gateway, persist the outcome with its fee breakdown.
type ChargeService struct {
	store    *Store
	gateways GatewayResolver
	fees     FeeCalculator
	tenants  TenantGateway
	logger   *slog.Logger
	timeout  time.Duration
}

func NewChargeService(store *Store, gr GatewayResolver, fc FeeCalculator, tg TenantGateway, logger *slog.Logger) *ChargeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChargeService{
		store:    store,
		gateways: gr,
		fees:     fc,
		tenants:  tg,
		logger:   logger,
		timeout:  5 * time.Second,
	}
}

type ChargeInput struct {
	TenantID         string
	OrderID          string
	AmountMinorUnits int64
	Currency         string
	Method           gateway.PaymentMethod
}

type ChargeResult struct {
	PaymentID  string          `json:"payment_id"`
	Status     string          `json:"status"`
	GatewayRef string          `json:"gateway_ref,omitempty"`
	Fees       *fees.Breakdown `json:"fees,omitempty"`
	Message    string          `json:"message"`
}

func (s *ChargeService) Charge(ctx context.Context, in ChargeInput) (ChargeResult, error) {
	if in.TenantID == "" || in.OrderID == "" || in.AmountMinorUnits <= 0 || in.Currency == "" {
		return ChargeResult{}, apperr.InvalidErr("tenant_id, order_id, amount and currency are required", nil)
	}

	gatewayName, err := s.tenants.GatewayFor(ctx, in.TenantID)
	if err != nil {
		return ChargeResult{}, err
	}
	adapter, err := s.gateways.CreateFromTenant(ctx, in.TenantID, gatewayName)
	if err != nil {
		return ChargeResult{}, err
	}

	now := time.Now()
	p := Payment{
		ID:               uuid.NewString(),
		TenantID:         in.TenantID,
		OrderID:          in.OrderID,
		Gateway:          gatewayName,
		Status:           StatusPending,
		AmountMinorUnits: in.AmountMinorUnits,
		Currency:         in.Currency,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreatePayment(ctx, &p); err != nil {
		return ChargeResult{}, apperr.Wrap(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	resp, gerr := adapter.Charge(callCtx, in.AmountMinorUnits, in.Currency, in.Method)
	cancel()

	if gerr != nil || !resp.Success {
		msg := resp.ErrorMessage
		if gerr != nil {
			msg = gerr.Error()
		}
		if len(msg) > 250 {
			msg = msg[:250]
		}
		updates := map[string]any{"status": StatusFailed, "error_message": msg}
		if resp.Reference != "" {
			updates["gateway_ref"] = resp.Reference
		}
		if err := s.store.UpdatePayment(ctx, p.ID, updates); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist charge failure", "payment_id", p.ID, "err", err)
		}
		s.logger.WarnContext(ctx, "charge failed",
			"payment_id", p.ID, "gateway", gatewayName, "detail", msg)
		if gerr != nil {
			return ChargeResult{PaymentID: p.ID, Status: StatusFailed, Message: "charge failed"}, gerr
		}
		return ChargeResult{PaymentID: p.ID, Status: StatusFailed, Message: "charge failed"},
			apperr.GatewayErr("The gateway could not process the charge.", nil)
	}

	breakdown, err := s.fees.Calculate(ctx, in.TenantID, in.AmountMinorUnits, resp.FeeMinorUnits)
	if err != nil {
		// fee data problems must not lose a captured charge
		s.logger.ErrorContext(ctx, "fee calculation failed, storing charge without breakdown",
			"payment_id", p.ID, "err", err)
		breakdown = fees.Breakdown{GatewayFeeMinorUnits: resp.FeeMinorUnits}
	}

	if err := s.store.UpdatePayment(ctx, p.ID, map[string]any{
		"status":                   StatusPaid,
		"gateway_ref":              resp.Reference,
		"gateway_fee_minor_units":  breakdown.GatewayFeeMinorUnits,
		"platform_fee_minor_units": breakdown.PlatformFeeMinorUnits,
		"net_minor_units":          breakdown.NetMinorUnits,
		"error_message":            nil,
	}); err != nil {
		s.logger.ErrorContext(ctx, "charge captured at gateway but persistence failed",
			"payment_id", p.ID, "gateway_ref", resp.Reference, "err", err)
		return ChargeResult{}, apperr.Wrap(err)
	}

	s.logger.InfoContext(ctx, "charge completed",
		"payment_id", p.ID, "gateway", gatewayName, "gateway_ref", resp.Reference,
		"amount_minor_units", in.AmountMinorUnits, "net_minor_units", breakdown.NetMinorUnits)

	return ChargeResult{
		PaymentID:  p.ID,
		Status:     StatusPaid,
		GatewayRef: resp.Reference,
		Fees:       &breakdown,
		Message:    "charge completed",
	}, nil
}

type AuthorizeInput struct {
	TenantID         string
	OrderID          string
	AmountMinorUnits int64
	Currency         string
	Method           gateway.PaymentMethod
}

// Authorize reserves funds without capturing. The payment row lands in
// authorized status; Capture finishes it.
func (s *ChargeService) Authorize(ctx context.Context, in AuthorizeInput) (ChargeResult, error) {
	if in.TenantID == "" || in.OrderID == "" || in.AmountMinorUnits <= 0 || in.Currency == "" {
		return ChargeResult{}, apperr.InvalidErr("tenant_id, order_id, amount and currency are required", nil)
	}

	gatewayName, err := s.tenants.GatewayFor(ctx, in.TenantID)
	if err != nil {
		return ChargeResult{}, err
	}
	adapter, err := s.gateways.CreateFromTenant(ctx, in.TenantID, gatewayName)
	if err != nil {
		return ChargeResult{}, err
	}

	now := time.Now()
	p := Payment{
		ID:               uuid.NewString(),
		TenantID:         in.TenantID,
		OrderID:          in.OrderID,
		Gateway:          gatewayName,
		Status:           StatusPending,
		AmountMinorUnits: in.AmountMinorUnits,
		Currency:         in.Currency,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreatePayment(ctx, &p); err != nil {
		return ChargeResult{}, apperr.Wrap(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	resp, gerr := adapter.Authorize(callCtx, in.AmountMinorUnits, in.Currency, in.Method)
	cancel()

	if gerr != nil || !resp.Success {
		msg := resp.ErrorMessage
		if gerr != nil {
			msg = gerr.Error()
		}
		if len(msg) > 250 {
			msg = msg[:250]
		}
		if err := s.store.UpdatePayment(ctx, p.ID, map[string]any{
			"status": StatusFailed, "error_message": msg,
		}); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist authorization failure", "payment_id", p.ID, "err", err)
		}
		if gerr != nil {
			return ChargeResult{PaymentID: p.ID, Status: StatusFailed, Message: "authorization failed"}, gerr
		}
		return ChargeResult{PaymentID: p.ID, Status: StatusFailed, Message: "authorization failed"},
			apperr.GatewayErr("The gateway could not authorize the payment.", nil)
	}

	if err := s.store.UpdatePayment(ctx, p.ID, map[string]any{
		"status":      StatusAuthorized,
		"gateway_ref": resp.AuthorizationID,
	}); err != nil {
		return ChargeResult{}, apperr.Wrap(err)
	}

	return ChargeResult{
		PaymentID:  p.ID,
		Status:     StatusAuthorized,
		GatewayRef: resp.AuthorizationID,
		Message:    "authorization reserved",
	}, nil
}

// Capture converts a prior authorization into a captured payment.
func (s *ChargeService) Capture(ctx context.Context, tenantID, paymentID string) (ChargeResult, error) {
	p, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		if err == ErrPaymentNotFound {
			return ChargeResult{}, apperr.NotFoundErr("Payment not found.")
		}
		return ChargeResult{}, apperr.Wrap(err)
	}
	if p.TenantID != tenantID {
		return ChargeResult{}, apperr.NotFoundErr("Payment not found.")
	}
	if p.Status != StatusAuthorized || p.GatewayRef == nil {
		return ChargeResult{}, apperr.InvalidErr("Only authorized payments can be captured.", nil)
	}

	adapter, err := s.gateways.CreateFromTenant(ctx, tenantID, p.Gateway)
	if err != nil {
		return ChargeResult{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	resp, gerr := adapter.Capture(callCtx, *p.GatewayRef)
	cancel()

	if gerr != nil || !resp.Success {
		msg := resp.ErrorMessage
		if gerr != nil {
			msg = gerr.Error()
		}
		if len(msg) > 250 {
			msg = msg[:250]
		}
		if err := s.store.UpdatePayment(ctx, p.ID, map[string]any{
			"status": StatusFailed, "error_message": msg,
		}); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist capture failure", "payment_id", p.ID, "err", err)
		}
		if gerr != nil {
			return ChargeResult{PaymentID: p.ID, Status: StatusFailed, Message: "capture failed"}, gerr
		}
		return ChargeResult{PaymentID: p.ID, Status: StatusFailed, Message: "capture failed"},
			apperr.GatewayErr("The gateway could not capture the authorization.", nil)
	}

	breakdown, err := s.fees.Calculate(ctx, tenantID, p.AmountMinorUnits, resp.FeeMinorUnits)
	if err != nil {
		s.logger.ErrorContext(ctx, "fee calculation failed, storing capture without breakdown",
			"payment_id", p.ID, "err", err)
		breakdown = fees.Breakdown{GatewayFeeMinorUnits: resp.FeeMinorUnits}
	}

	if err := s.store.UpdatePayment(ctx, p.ID, map[string]any{
		"status":                   StatusPaid,
		"gateway_ref":              resp.Reference,
		"gateway_fee_minor_units":  breakdown.GatewayFeeMinorUnits,
		"platform_fee_minor_units": breakdown.PlatformFeeMinorUnits,
		"net_minor_units":          breakdown.NetMinorUnits,
		"error_message":            nil,
	}); err != nil {
		return ChargeResult{}, apperr.Wrap(err)
	}

	return ChargeResult{
		PaymentID:  p.ID,
		Status:     StatusPaid,
		GatewayRef: resp.Reference,
		Fees:       &breakdown,
		Message:    "capture completed",
	}, nil
}
