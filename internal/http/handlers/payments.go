package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"paygrid.io/app/internal/gateway"
	"paygrid.io/app/internal/http/middleware"
	"paygrid.io/app/internal/http/validation"
	"paygrid.io/app/internal/modules/payments"
	"paygrid.io/app/internal/shared/apperr"
)

type PaymentHandler struct {
	Logger  *slog.Logger
	Charges *payments.ChargeService
}

func NewPaymentHandler(logger *slog.Logger, svc *payments.ChargeService) *PaymentHandler {
	return &PaymentHandler{Logger: logger, Charges: svc}
}

type chargeRequest struct {
	TenantID         string `json:"tenant_id" binding:"required"`
	OrderID          string `json:"order_id" binding:"required"`
	AmountMinorUnits int64  `json:"amount_minor_units" binding:"required,gt=0"`
	Currency         string `json:"currency" binding:"required,len=3"`
	MethodToken      string `json:"method_token" binding:"required"`
	MethodKind       string `json:"method_kind"`
}

// POST /api/payments/charge
func (h *PaymentHandler) Charge(c *gin.Context) {
	var req chargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	res, err := h.Charges.Charge(c.Request.Context(), payments.ChargeInput{
		TenantID:         req.TenantID,
		OrderID:          req.OrderID,
		AmountMinorUnits: req.AmountMinorUnits,
		Currency:         req.Currency,
		Method:           gateway.PaymentMethod{Token: req.MethodToken, Kind: req.MethodKind},
	})
	if err != nil {
		if res.PaymentID != "" {
			c.JSON(apperr.HTTPStatus(err), gin.H{
				"error":      apperr.PublicMessage(err),
				"payment_id": res.PaymentID,
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

// POST /api/payments/authorize
func (h *PaymentHandler) Authorize(c *gin.Context) {
	var req chargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	res, err := h.Charges.Authorize(c.Request.Context(), payments.AuthorizeInput{
		TenantID:         req.TenantID,
		OrderID:          req.OrderID,
		AmountMinorUnits: req.AmountMinorUnits,
		Currency:         req.Currency,
		Method:           gateway.PaymentMethod{Token: req.MethodToken, Kind: req.MethodKind},
	})
	if err != nil {
		if res.PaymentID != "" {
			c.JSON(apperr.HTTPStatus(err), gin.H{
				"error":      apperr.PublicMessage(err),
				"payment_id": res.PaymentID,
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

type captureRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
}

// POST /api/payments/:id/capture
func (h *PaymentHandler) Capture(c *gin.Context) {
	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	res, err := h.Charges.Capture(c.Request.Context(), req.TenantID, c.Param("id"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
