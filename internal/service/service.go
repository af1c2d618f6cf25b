package service

import (
	"context"
	"time"

	"agrotrace/internal/hub"
	"agrotrace/internal/ledger"
	"agrotrace/internal/logger"
	"agrotrace/internal/models"
	"agrotrace/internal/repository"
)

type Authorization interface {
	SignUp(username string, companyID int, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
	ScopeFor(userID int) (hub.Scope, error)
}

// Ingestor is the single entry point for telemetry, whatever the producer.
type Ingestor interface {
	Ingest(ctx context.Context, raw models.RawReading) error
}

// Evaluator checks readings against thresholds and raises alerts.
type Evaluator interface {
	Evaluate(ctx context.Context, sensor models.Sensor, reading models.Reading) ([]models.Alert, error)
	RaiseOffline(ctx context.Context, sensor models.Sensor, silentFor time.Duration) (*models.Alert, error)
	SetThreshold(ctx context.Context, cfg models.ThresholdConfig) error
}

// AlertLog exposes the persisted alerts and their resolution.
type AlertLog interface {
	List(ctx context.Context, f repository.AlertFilter) ([]models.Alert, error)
	Resolve(ctx context.Context, id int64, resolution string) error
}

// Tracer records supply-chain events and serves their history.
type Tracer interface {
	Record(ctx context.Context, ev models.TraceEvent) (eventID, jobID int64, err error)
	History(ctx context.Context, lotID int64) ([]models.TraceEvent, error)
}

// LedgerSync runs the sync queue and exposes its operator surface.
// Stop via context cancellation in main() for graceful shutdown.
type LedgerSync interface {
	Run(ctx context.Context)
	Status(ctx context.Context) (models.SyncStatus, error)
	Jobs(ctx context.Context, f repository.SyncFilter) ([]models.SyncJob, error)
	Retry(ctx context.Context, id int64) error
}

// Watchdog raises offline alerts for silent sensors on a schedule.
type Watchdog interface {
	Run(ctx context.Context, tick time.Duration)
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Ingestor
	Evaluator
	AlertLog
	Tracer
	LedgerSync
	Watchdog
	Authorization
}

// Config carries the tunables main() reads from viper.
type Config struct {
	DedupWindow time.Duration
	Ingest      IngestConfig
	Sync        SyncConfig
	SigningKey  string
	TokenTTL    time.Duration
}

// NewService wires the repository layer, the hub and the ledger client into
// concrete services.
func NewService(repos *repository.Repository, h *hub.Hub, client ledger.Client, cfg Config, log *logger.Logger) *Service {
	evaluator := NewEvaluatorService(repos.Thresholds, repos.Alerts, h, cfg.DedupWindow, log)
	validator := NewValidator(repos.Sensors)
	return &Service{
		Ingestor:      NewIngestService(validator, repos.Readings, repos.Sensors, evaluator, h, cfg.Ingest, log),
		Evaluator:     evaluator,
		AlertLog:      NewAlertLogService(repos.Alerts),
		Tracer:        NewTraceService(repos.Trace, log),
		LedgerSync:    NewLedgerSyncService(repos.Sync, client, cfg.Sync, log),
		Watchdog:      NewWatchdogService(repos.Sensors, evaluator, log),
		Authorization: NewAuthService(repos.Auth, cfg.SigningKey, cfg.TokenTTL),
	}
}
