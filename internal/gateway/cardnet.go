package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"paygrid.io/app/internal/shared/apperr"
)

const CardnetName = "cardnet"

const (
	cardnetLiveURL = "https://api.cardnet.example.com/v1"
	cardnetTestURL = "https://sandbox.cardnet.example.com/v1"

	cardnetFeeBps   = 290 // 2.9%
	cardnetFeeFixed = 30
)

// Cardnet is the card-network processor adapter.
type Cardnet struct {
	creds    Credentials
	testMode bool
	hc       *http.Client

	// BaseURL is derived from testMode; tests point it at a local server.
	BaseURL string
}

func NewCardnet(creds Credentials, testMode bool) (Adapter, error) {
	if creds.APIKey == "" {
		return nil, errors.New("cardnet: api key required")
	}
	base := cardnetLiveURL
	if testMode {
		base = cardnetTestURL
	}
	return &Cardnet{creds: creds, testMode: testMode, hc: newHTTPClient(), BaseURL: base}, nil
}

func (c *Cardnet) Name() string { return CardnetName }

type cardnetTxnResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"` // approved|declined|failed|refunded|refund_pending
	DeclineCode string `json:"decline_code"`
	Message     string `json:"message"`
}

func (c *Cardnet) Authorize(ctx context.Context, amount int64, currency string, method PaymentMethod) (AuthorizationResult, error) {
	req := map[string]any{
		"amount":   amount,
		"currency": currency,
		"source":   method.Token,
		"capture":  false,
	}
	var resp cardnetTxnResponse
	status, err := postJSON(ctx, c.hc, c.BaseURL+"/charges", c.creds.APIKey, req, &resp)
	if err != nil {
		return AuthorizationResult{Success: false, ErrorCode: CodeGatewayError, ErrorMessage: err.Error()},
			apperr.GatewayErr("Payment gateway is unavailable.", err)
	}
	if status == http.StatusPaymentRequired || resp.Status == "declined" {
		return AuthorizationResult{Success: false, ErrorCode: CodeDeclined, ErrorMessage: resp.DeclineCode},
			apperr.DeclinedErr("The card was declined.")
	}
	if status >= 400 || resp.Status != "approved" {
		return AuthorizationResult{Success: false, ErrorCode: CodeGatewayError, ErrorMessage: resp.Message},
			apperr.GatewayErr("Payment gateway rejected the request.", fmt.Errorf("cardnet status %d: %s", status, resp.Message))
	}
	return AuthorizationResult{Success: true, AuthorizationID: resp.ID}, nil
}

func (c *Cardnet) Capture(ctx context.Context, authorizationID string) (PaymentResult, error) {
	var resp cardnetTxnResponse
	status, err := postJSON(ctx, c.hc, c.BaseURL+"/charges/"+authorizationID+"/capture", c.creds.APIKey, map[string]any{}, &resp)
	if err != nil {
		return PaymentResult{Success: false, ErrorCode: CodeGatewayError, ErrorMessage: err.Error()},
			apperr.GatewayErr("Payment gateway is unavailable.", err)
	}
	switch {
	case status == http.StatusNotFound:
		return PaymentResult{Success: false, ErrorCode: CodeNotFound, ErrorMessage: resp.Message},
			apperr.GatewayErr("Authorization not found.", fmt.Errorf("cardnet: %s", resp.Message))
	case status == http.StatusConflict:
		code := CodeAlreadyCaptured
		if resp.Status == "expired" {
			code = CodeAuthExpired
		}
		return PaymentResult{Success: false, ErrorCode: code, ErrorMessage: resp.Message},
			apperr.ConflictErr("Authorization can no longer be captured.")
	case status >= 400 || resp.Status != "approved":
		return PaymentResult{Success: false, ErrorCode: CodeGatewayError, ErrorMessage: resp.Message},
			apperr.GatewayErr("Payment gateway rejected the request.", fmt.Errorf("cardnet status %d: %s", status, resp.Message))
	}
	return PaymentResult{Success: true, Reference: resp.ID}, nil
}

func (c *Cardnet) Charge(ctx context.Context, amount int64, currency string, method PaymentMethod) (PaymentResult, error) {
	req := map[string]any{
		"amount":   amount,
		"currency": currency,
		"source":   method.Token,
		"capture":  true,
	}
	var resp cardnetTxnResponse
	status, err := postJSON(ctx, c.hc, c.BaseURL+"/charges", c.creds.APIKey, req, &resp)
	if err != nil {
		return PaymentResult{Success: false, ErrorCode: CodeGatewayError, ErrorMessage: err.Error()},
			apperr.GatewayErr("Payment gateway is unavailable.", err)
	}
	if status == http.StatusPaymentRequired || resp.Status == "declined" {
		return PaymentResult{Success: false, ErrorCode: CodeDeclined, ErrorMessage: resp.DeclineCode},
			apperr.DeclinedErr("The card was declined.")
	}
	if status >= 400 || resp.Status != "approved" {
		return PaymentResult{Success: false, ErrorCode: CodeGatewayError, ErrorMessage: resp.Message},
			apperr.GatewayErr("Payment gateway rejected the request.", fmt.Errorf("cardnet status %d: %s", status, resp.Message))
	}
	return PaymentResult{
		Success:       true,
		Reference:     resp.ID,
		FeeMinorUnits: feeFor(amount, cardnetFeeBps, cardnetFeeFixed),
	}, nil
}

func (c *Cardnet) Refund(ctx context.Context, gatewayTransactionID string, amount int64, reason string) (RefundResult, error) {
	req := map[string]any{
		"charge": gatewayTransactionID,
		"amount": amount,
		"reason": reason,
	}
	var resp cardnetTxnResponse
	status, err := postJSON(ctx, c.hc, c.BaseURL+"/refunds", c.creds.APIKey, req, &resp)
	if err != nil {
		return RefundResult{Success: false, Status: "failed", ErrorCode: CodeGatewayError, ErrorMessage: err.Error()},
			apperr.GatewayErr("Payment gateway is unavailable.", err)
	}
	switch {
	case status == http.StatusNotFound:
		return RefundResult{Success: false, Status: "failed", ErrorCode: CodeNotFound, ErrorMessage: resp.Message},
			apperr.GatewayErr("Original charge not found at the gateway.", fmt.Errorf("cardnet: %s", resp.Message))
	case status >= 400:
		return RefundResult{Success: false, Status: "failed", ErrorCode: CodeGatewayError, ErrorMessage: resp.Message},
			apperr.GatewayErr("Payment gateway rejected the refund.", fmt.Errorf("cardnet status %d: %s", status, resp.Message))
	}

	switch resp.Status {
	case "refunded":
		return RefundResult{Success: true, Reference: resp.ID, Status: "succeeded"}, nil
	case "refund_pending":
		return RefundResult{Success: true, Reference: resp.ID, Status: "processing"}, nil
	default:
		return RefundResult{Success: false, Reference: resp.ID, Status: "failed", ErrorCode: CodeGatewayError, ErrorMessage: resp.Message},
			apperr.GatewayErr("Gateway reported refund failure.", fmt.Errorf("cardnet refund status %q", resp.Status))
	}
}

func (c *Cardnet) GetStatus(ctx context.Context, transactionID string) (StatusResult, error) {
	var resp cardnetTxnResponse
	status, err := getJSON(ctx, c.hc, c.BaseURL+"/charges/"+transactionID, c.creds.APIKey, &resp)
	if err != nil {
		return StatusResult{}, apperr.GatewayErr("Payment gateway is unavailable.", err)
	}
	if status == http.StatusNotFound {
		return StatusResult{}, apperr.NotFoundErr("Transaction not found at the gateway.")
	}
	if status >= 400 {
		return StatusResult{}, apperr.GatewayErr("Payment gateway rejected the request.", fmt.Errorf("cardnet status %d", status))
	}
	return StatusResult{Reference: resp.ID, Status: resp.Status}, nil
}

func (c *Cardnet) ValidateWebhook(rawPayload []byte, signatureHeader string) bool {
	return verifySignature(c.creds.WebhookSecret, rawPayload, signatureHeader)
}
