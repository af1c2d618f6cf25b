package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"agrotrace/internal/service"
)

func TestPutThreshold_Upserts(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	ev := &mockEvaluator{}
	s := &service.Service{Authorization: auth, Evaluator: ev}
	r := newTestRouter(s)

	body := bytes.NewBufferString(`{"sensor_id":7,"parameter":"ph","min":5.5,"max":7.5,"critical":true}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/thresholds", body)
	req.Header = authHeader("tok")
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	if ev.lastCfg.SensorID != 7 || ev.lastCfg.Parameter != "ph" {
		t.Fatalf("config not forwarded: %+v", ev.lastCfg)
	}
	if !ev.lastCfg.Active {
		t.Fatal("active should default to true when omitted")
	}
	if !ev.lastCfg.Critical {
		t.Fatal("critical flag not forwarded")
	}
	if ev.lastCfg.Min == nil || *ev.lastCfg.Min != 5.5 {
		t.Fatalf("min not forwarded: %v", ev.lastCfg.Min)
	}
}

func TestPutThreshold_MissingParameter(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	ev := &mockEvaluator{}
	s := &service.Service{Authorization: auth, Evaluator: ev}
	r := newTestRouter(s)

	body := bytes.NewBufferString(`{"sensor_id":7,"min":5.5}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/thresholds", body)
	req.Header = authHeader("tok")
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing parameter, got %d", w.Code)
	}
}

func TestPutThreshold_ServiceRejects(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	ev := &mockEvaluator{setErr: errBoom}
	s := &service.Service{Authorization: auth, Evaluator: ev}
	r := newTestRouter(s)

	body := bytes.NewBufferString(`{"sensor_id":7,"parameter":"ph"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/thresholds", body)
	req.Header = authHeader("tok")
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when the service rejects, got %d", w.Code)
	}
}
