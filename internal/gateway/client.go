package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// callTimeout bounds every provider round trip. A timeout is reported as a
// gateway failure; the provider-side outcome must be reconciled via
// GetStatus, since refunds cannot be cancelled once submitted.
const callTimeout = 5 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: callTimeout}
}

// postJSON sends an authenticated JSON request and decodes the response body
// into out. Non-2xx statuses are returned alongside the decoded body so
// adapters can normalize provider decline shapes.
func postJSON(ctx context.Context, hc *http.Client, url, bearer string, in, out any) (int, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if len(raw) > 0 && out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode provider response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func getJSON(ctx context.Context, hc *http.Client, url, bearer string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if len(raw) > 0 && out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode provider response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// feeFor computes a provider fee in minor units from basis points plus a
// fixed component, rounding half-up at the minor-unit boundary.
func feeFor(amountMinorUnits int64, bps int64, fixed int64) int64 {
	return (amountMinorUnits*bps+5000)/10000 + fixed
}
