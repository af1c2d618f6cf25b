package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transaction states reported by the ledger gateway.
const (
	StatePending   = "pending"
	StateConfirmed = "confirmed"
	StateNotFound  = "not_found"
)

// TxStatus is the ledger-side view of a submitted transaction.
type TxStatus struct {
	State       string `json:"state"`
	BlockNumber int64  `json:"block_number,omitempty"`
}

// Client is the external ledger collaborator. Submit propagates one domain
// event and returns its transaction handle; CheckStatus reports whether a
// previously submitted transaction reached a block.
type Client interface {
	Submit(ctx context.Context, entityType string, entityID int64, payload string) (string, error)
	CheckStatus(ctx context.Context, txHash string) (TxStatus, error)
}

const defaultTimeout = 15 * time.Second

// HTTPClient talks JSON to a ledger gateway.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type submitRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
	Payload    string `json:"payload"`
}

type submitResponse struct {
	TransactionHash string `json:"transaction_hash"`
}

// Submit posts the event to the gateway. A non-2xx response or transport
// error yields an error; the caller decides between retry and status check.
func (c *HTTPClient) Submit(ctx context.Context, entityType string, entityID int64, payload string) (string, error) {
	body, err := json.Marshal(submitRequest{EntityType: entityType, EntityID: entityID, Payload: payload})
	if err != nil {
		return "", fmt.Errorf("marshal submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit %s/%d: %w", entityType, entityID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("submit %s/%d: gateway returned %d: %s", entityType, entityID, resp.StatusCode, b)
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if out.TransactionHash == "" {
		return "", fmt.Errorf("submit %s/%d: gateway returned empty transaction hash", entityType, entityID)
	}
	return out.TransactionHash, nil
}

// CheckStatus fetches the current state of a transaction. A gateway 404 maps
// to StateNotFound rather than an error: an unknown hash is an answer, the
// caller resubmits.
func (c *HTTPClient) CheckStatus(ctx context.Context, txHash string) (TxStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transactions/"+txHash, nil)
	if err != nil {
		return TxStatus{}, fmt.Errorf("build status request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return TxStatus{}, fmt.Errorf("check status %s: %w", txHash, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return TxStatus{State: StateNotFound}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return TxStatus{}, fmt.Errorf("check status %s: gateway returned %d: %s", txHash, resp.StatusCode, b)
	}

	var out TxStatus
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return TxStatus{}, fmt.Errorf("decode status response: %w", err)
	}
	return out, nil
}
