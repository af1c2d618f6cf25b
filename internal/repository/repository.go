package repository

import (
	"context"
	"database/sql"
	"time"

	"agrotrace/internal/models"
)

type Authorization interface {
	Create(username string, companyID int, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
	GetByID(id int) (*models.User, error)
}

// SensorRepo is the sensor registry consumed by the validator and watchdog.
type SensorRepo interface {
	GetByDeviceID(ctx context.Context, deviceID string) (*models.Sensor, error)
	ListActive(ctx context.Context) ([]models.Sensor, error)
	TouchLastSeen(ctx context.Context, sensorID int, t time.Time) error
}

// ReadingRepo stores canonical readings. Append-only.
type ReadingRepo interface {
	Append(ctx context.Context, r models.Reading) (int64, error)
}

// ThresholdRepo serves the active threshold configuration per sensor.
type ThresholdRepo interface {
	ListActive(ctx context.Context, sensorID int) ([]models.ThresholdConfig, error)
	Upsert(ctx context.Context, cfg models.ThresholdConfig) error
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	SensorID int
	Status   string
	Limit    int
}

// AlertRepo persists the alert lifecycle. CreateIfNoRecent is the atomic
// check-and-create: it returns (nil, nil) when an unresolved alert for the
// same (sensor, parameter) tuple is younger than the window.
type AlertRepo interface {
	CreateIfNoRecent(ctx context.Context, a models.Alert, window time.Duration) (*models.Alert, error)
	List(ctx context.Context, f AlertFilter) ([]models.Alert, error)
	Resolve(ctx context.Context, id int64, status string, at time.Time) error
}

// SyncFilter narrows ledger sync job listings.
type SyncFilter struct {
	Status     string
	EntityType string
	Limit      int
}

// SyncRepo owns the ledger sync job rows. Claim is the per-job mutual
// exclusion point: it transitions pending|failed → processing and bumps the
// attempts counter in one conditional statement, returning (nil, nil) when
// some other worker already holds the job.
type SyncRepo interface {
	Get(ctx context.Context, id int64) (*models.SyncJob, error)
	List(ctx context.Context, f SyncFilter) ([]models.SyncJob, error)
	ListRetryable(ctx context.Context, maxAttempts, limit int) ([]models.SyncJob, error)
	ListAwaitingConfirmation(ctx context.Context, limit int) ([]models.SyncJob, error)
	Claim(ctx context.Context, id int64, now time.Time) (*models.SyncJob, error)
	MarkSubmitted(ctx context.Context, id int64, txHash string) error
	MarkConfirmed(ctx context.Context, id int64, blockNumber int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	Requeue(ctx context.Context, id int64) error
	Status(ctx context.Context) (models.SyncStatus, error)
}

// TraceRepo records supply-chain events. RecordEvent creates the event row
// and its sync job in one transaction so a committed domain event always has
// exactly one job.
type TraceRepo interface {
	RecordEvent(ctx context.Context, ev models.TraceEvent, payload string) (eventID, jobID int64, err error)
	ListByLot(ctx context.Context, lotID int64) ([]models.TraceEvent, error)
}

type Repository struct {
	Sensors    SensorRepo
	Readings   ReadingRepo
	Thresholds ThresholdRepo
	Alerts     AlertRepo
	Sync       SyncRepo
	Trace      TraceRepo
	Auth       Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Sensors:    NewSensorSQLite(db),
		Readings:   NewReadingSQLite(db),
		Thresholds: NewThresholdSQLite(db),
		Alerts:     NewAlertSQLite(db),
		Sync:       NewSyncSQLite(db),
		Trace:      NewTraceSQLite(db),
		Auth:       NewUserRepository(db),
	}
}
