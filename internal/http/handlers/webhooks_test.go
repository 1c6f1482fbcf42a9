package handlers

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"paygrid.io/app/internal/gateway"
)

func webhookRouter(h *WebhookHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/:provider", h.Handle)
	return r
}

func TestWebhookHandler_RejectsBeforeProcessing(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// Svc stays nil: every case below must be rejected before the service
	// would be touched.
	h := NewWebhookHandler(logger, map[string]string{"cardnet": "whsec_test"}, nil)
	r := webhookRouter(h)

	body := []byte(`{"id":"evt_1","type":"refund.completed","data":{"refund_ref":"re_1"}}`)
	goodSig := gateway.SignPayload("whsec_test", time.Now().Unix(), body)

	cases := []struct {
		name       string
		path       string
		body       []byte
		sig        string
		wantStatus int
	}{
		{"unknown provider", "/webhooks/legacy", body, goodSig, http.StatusNotFound},
		{"missing signature", "/webhooks/cardnet", body, "", http.StatusBadRequest},
		{"wrong secret", "/webhooks/cardnet", body, gateway.SignPayload("other", time.Now().Unix(), body), http.StatusBadRequest},
		{"tampered body", "/webhooks/cardnet", []byte(`{"id":"evt_1","type":"x"}`), goodSig, http.StatusBadRequest},
		{"payload missing id", "/webhooks/cardnet",
			[]byte(`{"type":"refund.completed"}`),
			gateway.SignPayload("whsec_test", time.Now().Unix(), []byte(`{"type":"refund.completed"}`)),
			http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.path, bytes.NewReader(tc.body))
			if tc.sig != "" {
				req.Header.Set(SignatureHeader, tc.sig)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tc.wantStatus, w.Body.String())
			}
		})
	}
}
