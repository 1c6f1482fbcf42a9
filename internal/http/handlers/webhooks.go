package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"paygrid.io/app/internal/gateway"
	"paygrid.io/app/internal/modules/payments"
)

// SignatureHeader carries the "t=<unix>,v1=<hex>" webhook signature.
const SignatureHeader = "X-Webhook-Signature"

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	Logger *slog.Logger
	// Secrets maps provider name to the platform webhook signing secret.
	Secrets map[string]string
	Svc     *payments.WebhookService
}

func NewWebhookHandler(logger *slog.Logger, secrets map[string]string, svc *payments.WebhookService) *WebhookHandler {
	return &WebhookHandler{Logger: logger, Secrets: secrets, Svc: svc}
}

// POST /webhooks/:provider
// Body is raw JSON; the signature is verified before anything is parsed.
func (h *WebhookHandler) Handle(c *gin.Context) {
	provider := c.Param("provider")
	secret, ok := h.Secrets[provider]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "unknown provider"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	if !gateway.VerifyPayload(secret, body, c.GetHeader(SignatureHeader)) {
		h.Logger.WarnContext(c.Request.Context(), "webhook signature rejected",
			"provider", provider, "client_ip", c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid signature"})
		return
	}

	ev, err := gateway.ParseWebhookEvent(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid payload"})
		return
	}

	if err := h.Svc.Handle(c.Request.Context(), provider, ev, body); err != nil {
		// 500 so the provider retries the delivery
		h.Logger.ErrorContext(c.Request.Context(), "webhook apply failed",
			"provider", provider, "event_id", ev.EventID, "type", ev.Type, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
