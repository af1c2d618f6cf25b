package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"agrotrace/internal/hub"
	"agrotrace/internal/models"
	"agrotrace/internal/repository"
	"agrotrace/internal/service"

	"github.com/gin-gonic/gin"
)

var errBoom = errors.New("boom")

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error
	scope         hub.Scope
	scopeErr      error

	lastSignUpUsername string
	lastSignUpCompany  int
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username string, companyID int, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpCompany = companyID
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}
func (m *mockAuth) ScopeFor(userID int) (hub.Scope, error) {
	return m.scope, m.scopeErr
}

type mockIngestor struct {
	err     error
	calls   int
	lastRaw models.RawReading
}

func (m *mockIngestor) Ingest(ctx context.Context, raw models.RawReading) error {
	m.calls++
	m.lastRaw = raw
	return m.err
}

type mockAlertLog struct {
	alerts     []models.Alert
	listErr    error
	resolveErr error

	lastFilter     repository.AlertFilter
	lastResolveID  int64
	lastResolution string
}

func (m *mockAlertLog) List(ctx context.Context, f repository.AlertFilter) ([]models.Alert, error) {
	m.lastFilter = f
	return m.alerts, m.listErr
}
func (m *mockAlertLog) Resolve(ctx context.Context, id int64, resolution string) error {
	m.lastResolveID = id
	m.lastResolution = resolution
	return m.resolveErr
}

type mockTracer struct {
	eventID    int64
	jobID      int64
	recordErr  error
	history    []models.TraceEvent
	historyErr error

	lastEvent models.TraceEvent
	lastLotID int64
}

func (m *mockTracer) Record(ctx context.Context, ev models.TraceEvent) (int64, int64, error) {
	m.lastEvent = ev
	return m.eventID, m.jobID, m.recordErr
}
func (m *mockTracer) History(ctx context.Context, lotID int64) ([]models.TraceEvent, error) {
	m.lastLotID = lotID
	return m.history, m.historyErr
}

type mockLedgerSync struct {
	status    models.SyncStatus
	statusErr error
	jobs      []models.SyncJob
	jobsErr   error
	retryErr  error

	lastJobsFilter repository.SyncFilter
	lastRetryID    int64
}

func (m *mockLedgerSync) Run(ctx context.Context) {}
func (m *mockLedgerSync) Status(ctx context.Context) (models.SyncStatus, error) {
	return m.status, m.statusErr
}
func (m *mockLedgerSync) Jobs(ctx context.Context, f repository.SyncFilter) ([]models.SyncJob, error) {
	m.lastJobsFilter = f
	return m.jobs, m.jobsErr
}
func (m *mockLedgerSync) Retry(ctx context.Context, id int64) error {
	m.lastRetryID = id
	return m.retryErr
}

type mockEvaluator struct {
	setErr  error
	lastCfg models.ThresholdConfig
}

func (m *mockEvaluator) Evaluate(ctx context.Context, sensor models.Sensor, reading models.Reading) ([]models.Alert, error) {
	return nil, nil
}
func (m *mockEvaluator) RaiseOffline(ctx context.Context, sensor models.Sensor, silentFor time.Duration) (*models.Alert, error) {
	return nil, nil
}
func (m *mockEvaluator) SetThreshold(ctx context.Context, cfg models.ThresholdConfig) error {
	m.lastCfg = cfg
	return m.setErr
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, hub.New(8, nil), nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
