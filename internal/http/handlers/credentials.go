package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"paygrid.io/app/internal/gateway"
	"paygrid.io/app/internal/http/middleware"
	"paygrid.io/app/internal/http/validation"
	"paygrid.io/app/internal/modules/tenants"
	"paygrid.io/app/internal/shared/apperr"
	"paygrid.io/app/internal/vault"
)

// CredentialHandler onboards and rotates per-tenant gateway credentials.
// Plaintext secrets exist only inside the request scope; responses and logs
// never carry them.
type CredentialHandler struct {
	Logger  *slog.Logger
	Factory *gateway.Factory
	Vault   *vault.Vault
	Tenants *tenants.Store
}

func NewCredentialHandler(logger *slog.Logger, f *gateway.Factory, v *vault.Vault, ts *tenants.Store) *CredentialHandler {
	return &CredentialHandler{Logger: logger, Factory: f, Vault: v, Tenants: ts}
}

type credentialRequest struct {
	Provider      string `json:"provider" binding:"required"`
	APIKey        string `json:"api_key" binding:"required"`
	APISecret     string `json:"api_secret"`
	WebhookSecret string `json:"webhook_secret"`
	TestMode      bool   `json:"test_mode"`
}

// PUT /api/tenants/:id/credentials
// Validates against the provider before storing; a rotation reuses the same
// path and overwrites the prior bundle.
func (h *CredentialHandler) Upsert(c *gin.Context) {
	tenantID := c.Param("id")

	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	if _, err := h.Tenants.Get(c.Request.Context(), tenantID); err != nil {
		if errors.Is(err, tenants.ErrTenantNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Tenant not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	creds := gateway.Credentials{
		APIKey:        req.APIKey,
		APISecret:     req.APISecret,
		WebhookSecret: req.WebhookSecret,
	}

	vr := h.Factory.ValidateCredentials(c.Request.Context(), req.Provider, creds, req.TestMode)
	if !vr.Valid {
		middleware.Fail(c, apperr.InvalidErr("Credentials were rejected by the provider.", map[string]string{"provider": vr.Error}))
		return
	}

	enc, err := gateway.EncodeCredentials(h.Vault, creds)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	if err := h.Tenants.UpsertCredential(c.Request.Context(), tenantID, req.Provider, enc, req.TestMode); err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	h.Logger.InfoContext(c.Request.Context(), "gateway credentials stored",
		"tenant_id", tenantID, "provider", req.Provider, "test_mode", req.TestMode)

	c.JSON(http.StatusOK, gin.H{
		"tenant_id": tenantID,
		"provider":  req.Provider,
		"test_mode": req.TestMode,
		"status":    "stored",
	})
}

// POST /api/tenants/:id/credentials/validate
// Dry-run probe; nothing is persisted.
func (h *CredentialHandler) Validate(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	vr := h.Factory.ValidateCredentials(c.Request.Context(), req.Provider, gateway.Credentials{
		APIKey:        req.APIKey,
		APISecret:     req.APISecret,
		WebhookSecret: req.WebhookSecret,
	}, req.TestMode)

	c.JSON(http.StatusOK, gin.H{"valid": vr.Valid, "error": vr.Error})
}
