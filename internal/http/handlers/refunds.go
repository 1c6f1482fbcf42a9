package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"paygrid.io/app/internal/http/middleware"
	"paygrid.io/app/internal/http/validation"
	"paygrid.io/app/internal/modules/payments"
	"paygrid.io/app/internal/modules/refunds"
	"paygrid.io/app/internal/shared/apperr"
)

type RefundHandler struct {
	Logger       *slog.Logger
	Orchestrator *refunds.Orchestrator
	Store        *payments.Store
}

func NewRefundHandler(logger *slog.Logger, o *refunds.Orchestrator, store *payments.Store) *RefundHandler {
	return &RefundHandler{Logger: logger, Orchestrator: o, Store: store}
}

type createRefundRequest struct {
	TenantID    string `json:"tenant_id" binding:"required"`
	OrderID     string `json:"order_id"`
	PaymentID   string `json:"payment_id" binding:"required"`
	Reason      string `json:"reason" binding:"max=255"`
	InitiatedBy string `json:"initiated_by" binding:"required"`
}

// POST /api/refunds
func (h *RefundHandler) Create(c *gin.Context) {
	var req createRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	res, err := h.Orchestrator.ProcessRefund(c.Request.Context(), refunds.ProcessInput{
		OrderID:     req.OrderID,
		PaymentID:   req.PaymentID,
		TenantID:    req.TenantID,
		Reason:      req.Reason,
		InitiatedBy: req.InitiatedBy,
	})
	if err != nil {
		// conflicts and gateway failures still carry a refund reference the
		// caller needs; render those inline instead of the generic error body
		if res.RefundID != "" {
			c.JSON(apperr.HTTPStatus(err), gin.H{
				"error":      apperr.PublicMessage(err),
				"refund_id":  res.RefundID,
				"status":     res.Status,
				"request_id": middleware.GetRequestID(c),
			})
			return
		}
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// GET /api/refunds/:id
func (h *RefundHandler) Get(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		middleware.Fail(c, apperr.InvalidErr("tenant_id query parameter is required", nil))
		return
	}

	r, err := h.Store.GetRefund(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, payments.ErrRefundNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Refund not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	if r.TenantID != tenantID {
		middleware.Fail(c, apperr.NotFoundErr("Refund not found."))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"refund_id":          r.ID,
		"payment_id":         r.PaymentID,
		"order_id":           r.OrderID,
		"gateway":            r.Gateway,
		"gateway_ref":        r.GatewayRef,
		"status":             r.Status,
		"amount_minor_units": r.AmountMinorUnits,
		"currency":           r.Currency,
		"reason":             r.Reason,
		"initiated_by":       r.InitiatedBy,
		"created_at":         r.CreatedAt,
		"updated_at":         r.UpdatedAt,
	})
}

// GET /api/refunds/stats
func (h *RefundHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Orchestrator.Stats())
}
