package refunds

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"paygrid.io/app/internal/gateway"
	"paygrid.io/app/internal/modules/payments"
	"paygrid.io/app/internal/shared/apperr"
)

type PaymentStore interface {
	GetPayment(ctx context.Context, id string) (payments.Payment, error)
}

type RefundStore interface {
	BlockingRefund(ctx context.Context, paymentID string) (*payments.Refund, error)
	CreateRefund(ctx context.Context, r *payments.Refund) error
	MarkRefundProcessing(ctx context.Context, id string) error
	FinalizeRefund(ctx context.Context, id, status string, gatewayRef, errMsg *string) error
}

type GatewayResolver interface {
	CreateFromTenant(ctx context.Context, tenantID, provider string) (gateway.Adapter, error)
}

// Orchestrator drives the refund lifecycle: pending -> processing ->
// completed|failed. It guarantees at most one blocking refund per payment
// (application pre-check backed by the refunds table's unique active-key
// index) and never retries a failed gateway call; re-attempting is a new
// ProcessRefund call, allowed only once the prior attempt is failed.
type Orchestrator struct {
	payments PaymentStore
	refunds  RefundStore
	gateways GatewayResolver
	limiter  *RateLimiter
	tracker  *Tracker
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time
}

func NewOrchestrator(ps PaymentStore, rs RefundStore, gr GatewayResolver, limiter *RateLimiter, tracker *Tracker, logger *slog.Logger) *Orchestrator {
	if limiter == nil {
		limiter = NewRateLimiter(DefaultRateLimit, DefaultRateWindow)
	}
	if tracker == nil {
		tracker = NewTracker(DefaultTrackerCap)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		payments: ps,
		refunds:  rs,
		gateways: gr,
		limiter:  limiter,
		tracker:  tracker,
		logger:   logger,
		timeout:  5 * time.Second,
		now:      time.Now,
	}
}

type ProcessInput struct {
	OrderID     string
	PaymentID   string
	TenantID    string
	Reason      string
	InitiatedBy string
}

type Result struct {
	Success    bool   `json:"success"`
	RefundID   string `json:"refund_id,omitempty"`
	GatewayRef string `json:"gateway_ref,omitempty"`
	Status     string `json:"status,omitempty"`
	Message    string `json:"message"`
}

func (o *Orchestrator) ProcessRefund(ctx context.Context, in ProcessInput) (Result, error) {
	if in.PaymentID == "" || in.TenantID == "" || in.InitiatedBy == "" {
		return Result{Message: "missing required fields"},
			apperr.InvalidErr("payment_id, tenant_id and initiated_by are required", nil)
	}

	// 1. rate limit, before any database work
	if !o.limiter.Allow(in.TenantID) {
		recordRejected("rate_limited")
		o.logger.WarnContext(ctx, "refund rate limit exceeded", "tenant_id", in.TenantID)
		return Result{Message: "rate limit exceeded, retry later"},
			apperr.RateLimitedErr("Too many refund requests; retry later.")
	}

	// 2. load payment
	p, err := o.payments.GetPayment(ctx, in.PaymentID)
	if err != nil {
		if errors.Is(err, payments.ErrPaymentNotFound) {
			recordRejected("payment_not_found")
			return Result{Message: "payment not found"}, apperr.NotFoundErr("Payment not found.")
		}
		return Result{Message: "internal error"}, apperr.Wrap(err)
	}
	if p.TenantID != in.TenantID {
		recordRejected("payment_not_found")
		return Result{Message: "payment not found"}, apperr.NotFoundErr("Payment not found.")
	}
	if p.Status != payments.StatusPaid {
		recordRejected("payment_not_paid")
		return Result{Message: "payment is not in paid status"},
			apperr.InvalidErr("Only paid payments can be refunded.", nil)
	}

	// 3. idempotency pre-check; the unique active-key index is the source
	// of truth under concurrency
	existing, err := o.refunds.BlockingRefund(ctx, p.ID)
	if err != nil {
		return Result{Message: "internal error"}, apperr.Wrap(err)
	}
	if existing != nil {
		recordRejected("already_refunded")
		return Result{RefundID: existing.ID, Status: existing.Status, Message: "a refund already exists for this payment"},
			apperr.ConflictErr("Payment already has a refund in progress or completed.")
	}

	// resolve the adapter before persisting anything: credential and
	// configuration failures stay synchronous, with no refund row
	adapter, err := o.gateways.CreateFromTenant(ctx, in.TenantID, p.Gateway)
	if err != nil {
		if apperr.IsKind(err, apperr.Decryption) {
			o.logger.ErrorContext(ctx, "credential decryption failed, operator attention required",
				"tenant_id", in.TenantID, "gateway", p.Gateway, "err", err)
		}
		return Result{Message: apperr.PublicMessage(err)}, err
	}

	// 4. create the pending refund row and the transient operation entry
	now := o.now()
	var reasonPtr *string
	if in.Reason != "" {
		r := in.Reason
		reasonPtr = &r
	}
	ref := payments.Refund{
		ID:               uuid.NewString(),
		PaymentID:        p.ID,
		OrderID:          in.OrderID,
		TenantID:         in.TenantID,
		Gateway:          p.Gateway,
		Status:           payments.RefundPending,
		AmountMinorUnits: p.AmountMinorUnits,
		Currency:         p.Currency,
		Reason:           reasonPtr,
		InitiatedBy:      in.InitiatedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := o.refunds.CreateRefund(ctx, &ref); err != nil {
		if errors.Is(err, payments.ErrDuplicateActiveRefund) {
			// lost the race: another writer inserted the blocking refund
			recordRejected("already_refunded")
			winner, berr := o.refunds.BlockingRefund(ctx, p.ID)
			res := Result{Message: "a refund already exists for this payment"}
			if berr == nil && winner != nil {
				res.RefundID = winner.ID
				res.Status = winner.Status
			}
			return res, apperr.ConflictErr("Payment already has a refund in progress or completed.")
		}
		return Result{Message: "internal error"}, apperr.Wrap(err)
	}
	o.tracker.Start(ref.ID, in.TenantID, p.Gateway, ref.AmountMinorUnits)

	// 5. invoke the gateway with a bounded timeout. The reference flow
	// always refunds the full payment amount; partial refunds are an
	// extension point the adapter contract already accepts.
	if err := o.refunds.MarkRefundProcessing(ctx, ref.ID); err != nil {
		return o.finalizeFailed(ctx, &ref, "internal error before gateway call: "+err.Error())
	}

	gwRef := ""
	if p.GatewayRef != nil {
		gwRef = *p.GatewayRef
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	resp, gerr := adapter.Refund(callCtx, gwRef, ref.AmountMinorUnits, in.Reason)
	cancel()

	// 6. persist the outcome
	if gerr != nil || !resp.Success {
		msg := resp.ErrorMessage
		if gerr != nil {
			msg = gerr.Error()
		}
		return o.finalizeFailed(ctx, &ref, msg)
	}

	switch resp.Status {
	case "processing":
		// async provider; the refund.completed webhook finalizes
		if err := o.refunds.FinalizeRefund(ctx, ref.ID, payments.RefundProcessing, &resp.Reference, nil); err != nil {
			o.logger.ErrorContext(ctx, "failed to persist refund gateway reference", "refund_id", ref.ID, "err", err)
		}
		o.tracker.Finish(ref.ID, "processing", "")
		recordProcessed(p.Gateway, "processing", o.now().Sub(now).Seconds())
		o.logger.InfoContext(ctx, "refund accepted by gateway",
			"refund_id", ref.ID, "gateway", p.Gateway, "gateway_ref", resp.Reference)
		return Result{
			Success:    true,
			RefundID:   ref.ID,
			GatewayRef: resp.Reference,
			Status:     payments.RefundProcessing,
			Message:    "refund accepted, awaiting gateway confirmation",
		}, nil

	default: // succeeded
		if err := o.refunds.FinalizeRefund(ctx, ref.ID, payments.RefundCompleted, &resp.Reference, nil); err != nil {
			// the provider refund went through; surface the persistence
			// failure loudly instead of reporting a failed refund
			o.logger.ErrorContext(ctx, "refund completed at gateway but persistence failed",
				"refund_id", ref.ID, "gateway_ref", resp.Reference, "err", err)
			return Result{Message: "internal error"}, apperr.Wrap(err)
		}
		o.tracker.Finish(ref.ID, "completed", "")
		recordProcessed(p.Gateway, "completed", o.now().Sub(now).Seconds())
		o.logger.InfoContext(ctx, "refund completed",
			"refund_id", ref.ID, "gateway", p.Gateway, "gateway_ref", resp.Reference,
			"amount_minor_units", ref.AmountMinorUnits, "initiated_by", in.InitiatedBy)
		return Result{
			Success:    true,
			RefundID:   ref.ID,
			GatewayRef: resp.Reference,
			Status:     payments.RefundCompleted,
			Message:    "refund completed",
		}, nil
	}
}

// finalizeFailed records a failed attempt. Gateway failures are not retried
// automatically; a new ProcessRefund call is allowed once this row is
// terminal. The provider error detail stays in the record for operators and
// is not exposed verbatim to callers.
func (o *Orchestrator) finalizeFailed(ctx context.Context, ref *payments.Refund, detail string) (Result, error) {
	msg := detail
	if len(msg) > 250 {
		msg = msg[:250]
	}
	if err := o.refunds.FinalizeRefund(ctx, ref.ID, payments.RefundFailed, nil, &msg); err != nil {
		o.logger.ErrorContext(ctx, "failed to persist refund failure", "refund_id", ref.ID, "err", err)
	}
	o.tracker.Finish(ref.ID, "failed", detail)
	recordProcessed(ref.Gateway, "failed", o.now().Sub(ref.CreatedAt).Seconds())
	o.logger.WarnContext(ctx, "refund failed",
		"refund_id", ref.ID, "gateway", ref.Gateway, "detail", detail)
	return Result{
		RefundID: ref.ID,
		Status:   payments.RefundFailed,
		Message:  "refund failed at the payment gateway",
	}, apperr.GatewayErr("The gateway could not process the refund.", errors.New(detail))
}

// Stats aggregates the transient operation tracker for dashboards.
func (o *Orchestrator) Stats() Stats { return o.tracker.Stats() }

type Health struct {
	Status      string  `json:"status"` // ok|degraded
	InFlight    int     `json:"in_flight"`
	FailureRate float64 `json:"failure_rate"`
	Sampled     int     `json:"sampled"`
}

// Health reports a best-effort view over the tracked window. Degraded when
// more than half of a meaningful sample failed.
func (o *Orchestrator) Health() Health {
	s := o.tracker.Stats()
	h := Health{Status: "ok", InFlight: s.InFlight, Sampled: s.Total}
	if done := s.Completed + s.Failed; done >= 10 {
		h.FailureRate = float64(s.Failed) / float64(done)
		if h.FailureRate > 0.5 {
			h.Status = "degraded"
		}
	}
	return h
}
