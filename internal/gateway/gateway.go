package gateway

import (
	"context"
)

// Credentials is the decrypted per-tenant secret bundle for one provider.
type Credentials struct {
	APIKey        string `json:"api_key"`
	APISecret     string `json:"api_secret"`
	WebhookSecret string `json:"webhook_secret"`
}

// PaymentMethod is the tokenized instrument passed to authorize/charge.
// Raw card data never enters this system; providers hand us opaque tokens.
type PaymentMethod struct {
	Token string
	Kind  string // card|wallet
}

// Normalized error codes. Adapters map provider-specific failures onto these
// so the orchestrator never depends on provider error shapes.
const (
	CodeDeclined        = "declined"
	CodeGatewayError    = "gateway_error"
	CodeNotFound        = "not_found"
	CodeAuthExpired     = "authorization_expired"
	CodeAlreadyCaptured = "already_captured"
)

type AuthorizationResult struct {
	Success         bool
	AuthorizationID string
	ErrorCode       string
	ErrorMessage    string
}

type PaymentResult struct {
	Success       bool
	Reference     string // provider-assigned transaction id
	FeeMinorUnits int64  // gateway fee (percentage + fixed, provider-specific)
	ErrorCode     string
	ErrorMessage  string
}

type RefundResult struct {
	Success      bool
	Reference    string // provider-assigned refund id
	Status       string // succeeded|processing|failed
	ErrorCode    string
	ErrorMessage string
}

type StatusResult struct {
	Reference string
	Status    string
}

// Adapter is the common contract every payment provider implementation
// satisfies. Adapters are constructed with decrypted credentials and a
// test/live mode flag, hold no cross-tenant state, and are cheap to build
// per call. Refund is NOT required to deduplicate; exactly-once is the
// orchestrator's job.
type Adapter interface {
	Name() string

	Authorize(ctx context.Context, amountMinorUnits int64, currency string, method PaymentMethod) (AuthorizationResult, error)
	Capture(ctx context.Context, authorizationID string) (PaymentResult, error)
	Charge(ctx context.Context, amountMinorUnits int64, currency string, method PaymentMethod) (PaymentResult, error)
	Refund(ctx context.Context, gatewayTransactionID string, amountMinorUnits int64, reason string) (RefundResult, error)
	GetStatus(ctx context.Context, transactionID string) (StatusResult, error)

	// ValidateWebhook verifies provider-signed event authenticity over the
	// raw request body using a constant-time comparison.
	ValidateWebhook(rawPayload []byte, signatureHeader string) bool
}
