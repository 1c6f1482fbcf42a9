package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"paygrid.io/app/internal/shared/apperr"
)

const WalletpayName = "walletpay"

const (
	walletpayLiveURL = "https://gateway.walletpay.example.com/api"
	walletpayTestURL = "https://gateway.test.walletpay.example.com/api"

	walletpayFeeBps   = 200 // 2.0%
	walletpayFeeFixed = 0
)

// Walletpay is the wallet-based processor adapter. Its API speaks in holds
// (authorizations) and commits (captures); the wire shape differs from
// cardnet but both normalize to the common result types.
type Walletpay struct {
	creds    Credentials
	testMode bool
	hc       *http.Client

	BaseURL string
}

func NewWalletpay(creds Credentials, testMode bool) (Adapter, error) {
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, errors.New("walletpay: api key and secret required")
	}
	base := walletpayLiveURL
	if testMode {
		base = walletpayTestURL
	}
	return &Walletpay{creds: creds, testMode: testMode, hc: newHTTPClient(), BaseURL: base}, nil
}

func (w *Walletpay) Name() string { return WalletpayName }

type walletpayResponse struct {
	Transaction struct {
		Ref   string `json:"ref"`
		State string `json:"state"` // held|completed|rejected|refunded|refund_queued|expired
	} `json:"transaction"`
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (w *Walletpay) call(ctx context.Context, path string, req map[string]any, resp *walletpayResponse) (int, error) {
	req["merchant_key"] = w.creds.APIKey
	return postJSON(ctx, w.hc, w.BaseURL+path, w.creds.APISecret, req, resp)
}

func (w *Walletpay) Authorize(ctx context.Context, amount int64, currency string, method PaymentMethod) (AuthorizationResult, error) {
	var resp walletpayResponse
	status, err := w.call(ctx, "/holds", map[string]any{
		"amount_minor": amount,
		"currency":     currency,
		"wallet_token": method.Token,
	}, &resp)
	if err != nil {
		return AuthorizationResult{Success: false, ErrorCode: CodeGatewayError, ErrorMessage: err.Error()},
			apperr.GatewayErr("Payment gateway is unavailable.", err)
	}
	if resp.Transaction.State == "rejected" {
		return AuthorizationResult{Success: false, ErrorCode: CodeDeclined, ErrorMessage: resp.Error.Code},
			apperr.DeclinedErr("The wallet payment was rejected.")
	}
	if status >= 400 || resp.Transaction.State != "held" {
		return AuthorizationResult{Success: false, ErrorCode: CodeGatewayError, ErrorMessage: resp.Error.Description},
			apperr.GatewayErr("Payment gateway rejected the request.", fmt.Errorf("walletpay status %d: %s", status, resp.Error.Description))
	}
	return AuthorizationResult{Success: true, AuthorizationID: resp.Transaction.Ref}, nil
}

func (w *Walletpay) Capture(ctx context.Context, authorizationID string) (PaymentResult, error) {
	var resp walletpayResponse
	status, err := w.call(ctx, "/holds/"+authorizationID+"/commit", map[string]any{}, &resp)
	if err != nil {
		return PaymentResult{Success: false, ErrorCode: CodeGatewayError, ErrorMessage: err.Error()},
			apperr.GatewayErr("Payment gateway is unavailable.", err)
	}
	switch {
	case status == http.StatusNotFound:
		return PaymentResult{Success: false, ErrorCode: CodeNotFound, ErrorMessage: resp.Error.Description},
			apperr.GatewayErr("Hold not found.", fmt.Errorf("walletpay: %s", resp.Error.Description))
	case resp.Transaction.State == "expired":
		return PaymentResult{Success: false, ErrorCode: CodeAuthExpired, ErrorMessage: resp.Error.Description},
			apperr.ConflictErr("The hold has expired.")
	case resp.Transaction.State == "completed" && status == http.StatusConflict:
		return PaymentResult{Success: false, ErrorCode: CodeAlreadyCaptured, ErrorMessage: resp.Error.Description},
			apperr.ConflictErr("The hold was already committed.")
	case status >= 400 || resp.Transaction.State != "completed":
		return PaymentResult{Success: false, ErrorCode: CodeGatewayError, ErrorMessage: resp.Error.Description},
			apperr.GatewayErr("Payment gateway rejected the request.", fmt.Errorf("walletpay status %d: %s", status, resp.Error.Description))
	}
	return PaymentResult{Success: true, Reference: resp.Transaction.Ref}, nil
}

func (w *Walletpay) Charge(ctx context.Context, amount int64, currency string, method PaymentMethod) (PaymentResult, error) {
	var resp walletpayResponse
	status, err := w.call(ctx, "/payments", map[string]any{
		"amount_minor": amount,
		"currency":     currency,
		"wallet_token": method.Token,
	}, &resp)
	if err != nil {
		return PaymentResult{Success: false, ErrorCode: CodeGatewayError, ErrorMessage: err.Error()},
			apperr.GatewayErr("Payment gateway is unavailable.", err)
	}
	if resp.Transaction.State == "rejected" {
		return PaymentResult{Success: false, ErrorCode: CodeDeclined, ErrorMessage: resp.Error.Code},
			apperr.DeclinedErr("The wallet payment was rejected.")
	}
	if status >= 400 || resp.Transaction.State != "completed" {
		return PaymentResult{Success: false, ErrorCode: CodeGatewayError, ErrorMessage: resp.Error.Description},
			apperr.GatewayErr("Payment gateway rejected the request.", fmt.Errorf("walletpay status %d: %s", status, resp.Error.Description))
	}
	return PaymentResult{
		Success:       true,
		Reference:     resp.Transaction.Ref,
		FeeMinorUnits: feeFor(amount, walletpayFeeBps, walletpayFeeFixed),
	}, nil
}

func (w *Walletpay) Refund(ctx context.Context, gatewayTransactionID string, amount int64, reason string) (RefundResult, error) {
	var resp walletpayResponse
	status, err := w.call(ctx, "/refunds", map[string]any{
		"payment_ref":  gatewayTransactionID,
		"amount_minor": amount,
		"note":         reason,
	}, &resp)
	if err != nil {
		return RefundResult{Success: false, Status: "failed", ErrorCode: CodeGatewayError, ErrorMessage: err.Error()},
			apperr.GatewayErr("Payment gateway is unavailable.", err)
	}
	switch {
	case status == http.StatusNotFound:
		return RefundResult{Success: false, Status: "failed", ErrorCode: CodeNotFound, ErrorMessage: resp.Error.Description},
			apperr.GatewayErr("Original payment not found at the gateway.", fmt.Errorf("walletpay: %s", resp.Error.Description))
	case status >= 400:
		return RefundResult{Success: false, Status: "failed", ErrorCode: CodeGatewayError, ErrorMessage: resp.Error.Description},
			apperr.GatewayErr("Payment gateway rejected the refund.", fmt.Errorf("walletpay status %d: %s", status, resp.Error.Description))
	}

	switch resp.Transaction.State {
	case "refunded":
		return RefundResult{Success: true, Reference: resp.Transaction.Ref, Status: "succeeded"}, nil
	case "refund_queued":
		return RefundResult{Success: true, Reference: resp.Transaction.Ref, Status: "processing"}, nil
	default:
		return RefundResult{Success: false, Reference: resp.Transaction.Ref, Status: "failed", ErrorCode: CodeGatewayError, ErrorMessage: resp.Error.Description},
			apperr.GatewayErr("Gateway reported refund failure.", fmt.Errorf("walletpay refund state %q", resp.Transaction.State))
	}
}

func (w *Walletpay) GetStatus(ctx context.Context, transactionID string) (StatusResult, error) {
	var resp walletpayResponse
	status, err := getJSON(ctx, w.hc, w.BaseURL+"/transactions/"+transactionID, w.creds.APISecret, &resp)
	if err != nil {
		return StatusResult{}, apperr.GatewayErr("Payment gateway is unavailable.", err)
	}
	if status == http.StatusNotFound {
		return StatusResult{}, apperr.NotFoundErr("Transaction not found at the gateway.")
	}
	if status >= 400 {
		return StatusResult{}, apperr.GatewayErr("Payment gateway rejected the request.", fmt.Errorf("walletpay status %d", status))
	}
	return StatusResult{Reference: resp.Transaction.Ref, Status: resp.Transaction.State}, nil
}

func (w *Walletpay) ValidateWebhook(rawPayload []byte, signatureHeader string) bool {
	return verifySignature(w.creds.WebhookSecret, rawPayload, signatureHeader)
}
