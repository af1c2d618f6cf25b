package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClient_Submit(t *testing.T) {
	var gotBody submitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transactions" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(submitResponse{TransactionHash: "0xabc"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	hash, err := c.Submit(context.Background(), "harvest", 9, `{"lot_id":3}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash != "0xabc" {
		t.Fatalf("unexpected hash: %q", hash)
	}
	if gotBody.EntityType != "harvest" || gotBody.EntityID != 9 {
		t.Fatalf("request body not forwarded: %+v", gotBody)
	}
}

func TestHTTPClient_SubmitGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "over capacity", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	if _, err := c.Submit(context.Background(), "lot", 1, "{}"); err == nil {
		t.Fatal("expected error for a 503 response")
	}
}

func TestHTTPClient_SubmitEmptyHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(submitResponse{})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	if _, err := c.Submit(context.Background(), "lot", 1, "{}"); err == nil {
		t.Fatal("expected error for an empty transaction hash")
	}
}

func TestHTTPClient_CheckStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/transactions/0xabc":
			_ = json.NewEncoder(w).Encode(TxStatus{State: StateConfirmed, BlockNumber: 1042})
		case "/transactions/0xgone":
			http.NotFound(w, r)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)

	st, err := c.CheckStatus(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.State != StateConfirmed || st.BlockNumber != 1042 {
		t.Fatalf("unexpected status: %+v", st)
	}

	// 404 is an answer, not an error
	st, err = c.CheckStatus(context.Background(), "0xgone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.State != StateNotFound {
		t.Fatalf("expected not_found, got %+v", st)
	}
}
