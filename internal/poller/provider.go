package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultFetchTimeout = 10 * time.Second

// HTTPProvider pulls device status from a cloud gateway exposing
// GET {base}/devices/{device_id}/status → {"measurements": {...}}.
type HTTPProvider struct {
	baseURL string
	http    *http.Client
}

var _ Provider = (*HTTPProvider)(nil)

func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &HTTPProvider{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type statusResponse struct {
	Measurements map[string]float64 `json:"measurements"`
}

func (p *HTTPProvider) Fetch(ctx context.Context, deviceID string) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/devices/"+deviceID+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("build status request for %q: %w", deviceID, err)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch device %q: %w", deviceID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch device %q: gateway returned %d: %s", deviceID, resp.StatusCode, b)
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode status for %q: %w", deviceID, err)
	}
	return out.Measurements, nil
}
