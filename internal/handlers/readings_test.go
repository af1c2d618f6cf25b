package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"agrotrace/internal/service"
)

func TestPostReading_Accepted(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	ing := &mockIngestor{}
	s := &service.Service{Authorization: auth, Ingestor: ing}
	r := newTestRouter(s)

	body := bytes.NewBufferString(`{"device_id":"greenhouse-7","measurements":{"temperature":23.5,"ph":6.8}}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/readings", body)
	req.Header = authHeader("tok")
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	if ing.calls != 1 {
		t.Fatalf("expected one ingest call, got %d", ing.calls)
	}
	if ing.lastRaw.DeviceID != "greenhouse-7" {
		t.Fatalf("device id not forwarded: %q", ing.lastRaw.DeviceID)
	}
	if ing.lastRaw.Measurements["temperature"] != 23.5 {
		t.Fatalf("measurements not forwarded: %v", ing.lastRaw.Measurements)
	}
}

func TestPostReading_UnknownSensor(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	ing := &mockIngestor{err: service.ErrUnknownSensor}
	s := &service.Service{Authorization: auth, Ingestor: ing}
	r := newTestRouter(s)

	body := bytes.NewBufferString(`{"device_id":"ghost","measurements":{"ph":7}}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/readings", body)
	req.Header = authHeader("tok")
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown device, got %d", w.Code)
	}
}

func TestPostReading_MissingBody(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	ing := &mockIngestor{}
	s := &service.Service{Authorization: auth, Ingestor: ing}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/readings", bytes.NewBufferString(`{}`))
	req.Header = authHeader("tok")
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if ing.calls != 0 {
		t.Fatalf("ingest should not be called on bad body")
	}
}
