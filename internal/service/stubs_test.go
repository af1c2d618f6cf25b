package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"agrotrace/internal/ledger"
	"agrotrace/internal/models"
	"agrotrace/internal/repository"
)

// In-memory repository stubs shared across the service tests.

type sensorRepoStub struct {
	byDevice map[string]*models.Sensor
	active   []models.Sensor
	touched  []int
	getErr   error
	listErr  error
	touchErr error
}

func (s *sensorRepoStub) GetByDeviceID(ctx context.Context, deviceID string) (*models.Sensor, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.byDevice[deviceID], nil
}

func (s *sensorRepoStub) ListActive(ctx context.Context) ([]models.Sensor, error) {
	return s.active, s.listErr
}

func (s *sensorRepoStub) TouchLastSeen(ctx context.Context, sensorID int, t time.Time) error {
	s.touched = append(s.touched, sensorID)
	return s.touchErr
}

type readingRepoStub struct {
	appended []models.Reading
	failures int // first N Append calls fail
	calls    int
	nextID   int64
}

func (s *readingRepoStub) Append(ctx context.Context, r models.Reading) (int64, error) {
	s.calls++
	if s.calls <= s.failures {
		return 0, errors.New("store unavailable")
	}
	s.nextID++
	r.ID = s.nextID
	s.appended = append(s.appended, r)
	return s.nextID, nil
}

type thresholdRepoStub struct {
	configs []models.ThresholdConfig
	err     error
}

func (s *thresholdRepoStub) ListActive(ctx context.Context, sensorID int) ([]models.ThresholdConfig, error) {
	return s.configs, s.err
}

func (s *thresholdRepoStub) Upsert(ctx context.Context, cfg models.ThresholdConfig) error {
	s.configs = append(s.configs, cfg)
	return nil
}

type alertRepoStub struct {
	created    []models.Alert
	suppress   bool
	createErr  error
	lastWindow time.Duration
	nextID     int64

	resolved []int64
}

func (s *alertRepoStub) CreateIfNoRecent(ctx context.Context, a models.Alert, window time.Duration) (*models.Alert, error) {
	s.lastWindow = window
	if s.createErr != nil {
		return nil, s.createErr
	}
	if s.suppress {
		return nil, nil
	}
	s.nextID++
	a.ID = s.nextID
	s.created = append(s.created, a)
	return &a, nil
}

func (s *alertRepoStub) List(ctx context.Context, f repository.AlertFilter) ([]models.Alert, error) {
	return s.created, nil
}

func (s *alertRepoStub) Resolve(ctx context.Context, id int64, status string, at time.Time) error {
	s.resolved = append(s.resolved, id)
	return nil
}

// syncRepoStub mimics the SQLite claim semantics: Claim only succeeds for a
// pending or failed job and bumps attempts.
type syncRepoStub struct {
	mu   sync.Mutex
	jobs map[int64]*models.SyncJob
}

func newSyncRepoStub(jobs ...models.SyncJob) *syncRepoStub {
	s := &syncRepoStub{jobs: make(map[int64]*models.SyncJob)}
	for i := range jobs {
		j := jobs[i]
		s.jobs[j.ID] = &j
	}
	return s
}

func (s *syncRepoStub) get(id int64) models.SyncJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.jobs[id]
}

func (s *syncRepoStub) Get(ctx context.Context, id int64) (*models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (s *syncRepoStub) List(ctx context.Context, f repository.SyncFilter) ([]models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SyncJob
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	return out, nil
}

func (s *syncRepoStub) ListRetryable(ctx context.Context, maxAttempts, limit int) ([]models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SyncJob
	for _, j := range s.jobs {
		if j.Status == models.SyncPending || (j.Status == models.SyncFailed && j.Attempts < maxAttempts) {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (s *syncRepoStub) ListAwaitingConfirmation(ctx context.Context, limit int) ([]models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SyncJob
	for _, j := range s.jobs {
		if j.Status == models.SyncProcessing && j.TransactionHash != nil {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (s *syncRepoStub) Claim(ctx context.Context, id int64, now time.Time) (*models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	if j.Status != models.SyncPending && j.Status != models.SyncFailed {
		return nil, nil
	}
	j.Status = models.SyncProcessing
	j.Attempts++
	j.LastAttemptAt = &now
	cp := *j
	return &cp, nil
}

func (s *syncRepoStub) MarkSubmitted(ctx context.Context, id int64, txHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id].TransactionHash = &txHash
	return nil
}

func (s *syncRepoStub) MarkConfirmed(ctx context.Context, id int64, blockNumber int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.jobs[id]
	j.Status = models.SyncConfirmed
	j.BlockNumber = &blockNumber
	j.SyncedAt = &at
	j.ErrorMessage = nil
	return nil
}

func (s *syncRepoStub) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.jobs[id]
	j.Status = models.SyncFailed
	j.ErrorMessage = &errMsg
	return nil
}

func (s *syncRepoStub) Requeue(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return errors.New("job not found")
	}
	j.Status = models.SyncPending
	return nil
}

func (s *syncRepoStub) Status(ctx context.Context) (models.SyncStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st models.SyncStatus
	for _, j := range s.jobs {
		st.Total++
		switch j.Status {
		case models.SyncPending:
			st.Pending++
		case models.SyncProcessing:
			st.Processing++
		case models.SyncConfirmed:
			st.Confirmed++
		case models.SyncFailed:
			st.Failed++
		}
	}
	return st, nil
}

// evaluatorStub records calls without touching storage.
type evaluatorStub struct {
	evaluated  []models.Reading
	offline    []int
	offlineFor []time.Duration
}

func (s *evaluatorStub) Evaluate(ctx context.Context, sensor models.Sensor, reading models.Reading) ([]models.Alert, error) {
	s.evaluated = append(s.evaluated, reading)
	return nil, nil
}

func (s *evaluatorStub) RaiseOffline(ctx context.Context, sensor models.Sensor, silentFor time.Duration) (*models.Alert, error) {
	s.offline = append(s.offline, sensor.ID)
	s.offlineFor = append(s.offlineFor, silentFor)
	return &models.Alert{SensorID: sensor.ID, Parameter: models.KindOffline}, nil
}

func (s *evaluatorStub) SetThreshold(ctx context.Context, cfg models.ThresholdConfig) error {
	return nil
}

// ledgerClientStub scripts ledger responses per call.
type ledgerClientStub struct {
	mu sync.Mutex

	submitHash string
	submitErr  error
	submits    []int64 // entity ids submitted, in order

	statuses  map[string]ledger.TxStatus
	statusErr error
	checks    []string
}

func (c *ledgerClientStub) Submit(ctx context.Context, entityType string, entityID int64, payload string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submits = append(c.submits, entityID)
	return c.submitHash, c.submitErr
}

func (c *ledgerClientStub) CheckStatus(ctx context.Context, txHash string) (ledger.TxStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, txHash)
	if c.statusErr != nil {
		return ledger.TxStatus{}, c.statusErr
	}
	return c.statuses[txHash], nil
}
