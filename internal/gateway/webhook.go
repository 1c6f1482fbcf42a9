package gateway

import (
	"encoding/json"
	"errors"
)

// WebhookEvent is the normalized shape of a provider push event. Both
// built-in providers deliver the same JSON envelope; ValidateWebhook must be
// called on the raw body before this is trusted.
type WebhookEvent struct {
	EventID string
	Type    string // charge.succeeded|charge.failed|refund.completed|refund.failed|chargeback.created

	PaymentRef string // provider reference of the original charge
	RefundRef  string // provider reference of the refund

	AmountMinorUnits int64
	Currency         string
}

type webhookEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		PaymentRef  string `json:"payment_ref"`
		RefundRef   string `json:"refund_ref"`
		AmountMinor int64  `json:"amount_minor"`
		Currency    string `json:"currency"`
	} `json:"data"`
}

func ParseWebhookEvent(raw []byte) (WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return WebhookEvent{}, err
	}
	if env.ID == "" || env.Type == "" {
		return WebhookEvent{}, errors.New("webhook event missing id or type")
	}
	return WebhookEvent{
		EventID:          env.ID,
		Type:             env.Type,
		PaymentRef:       env.Data.PaymentRef,
		RefundRef:        env.Data.RefundRef,
		AmountMinorUnits: env.Data.AmountMinor,
		Currency:         env.Data.Currency,
	}, nil
}
