package poller

import (
	"context"
	"time"

	"agrotrace/internal/logger"
	"agrotrace/internal/models"
	"agrotrace/internal/repository"
	"agrotrace/internal/service"
)

// Provider is the pull-based telemetry collaborator (a third-party cloud
// API). Fetch returns the device's current measurements; implementations
// live outside the core.
type Provider interface {
	Fetch(ctx context.Context, deviceID string) (map[string]float64, error)
}

// Poller periodically pulls every active sensor through the Provider and
// feeds the results to the same ingestion contract the push producers use.
type Poller struct {
	provider Provider
	sensors  repository.SensorRepo
	ingestor service.Ingestor
	log      *logger.Logger
}

func New(provider Provider, sensors repository.SensorRepo, ingestor service.Ingestor, log *logger.Logger) *Poller {
	return &Poller{provider: provider, sensors: sensors, ingestor: ingestor, log: log}
}

// Run ticks at the given interval until ctx is canceled.
func (p *Poller) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.pollAll(ctx)
		}
	}
}

// pollAll fetches each active sensor once. A failing device is logged and
// skipped; it never stops the sweep.
func (p *Poller) pollAll(ctx context.Context) {
	sensors, err := p.sensors.ListActive(ctx)
	if err != nil {
		if p.log != nil {
			p.log.Errorw("poll_list_sensors_failed", "err", err)
		}
		return
	}

	for _, sensor := range sensors {
		measurements, err := p.provider.Fetch(ctx, sensor.DeviceID)
		if err != nil {
			if p.log != nil {
				p.log.Warnw("poll_fetch_failed", "device", sensor.DeviceID, "err", err)
			}
			continue
		}
		if len(measurements) == 0 {
			continue
		}
		raw := models.RawReading{
			DeviceID:     sensor.DeviceID,
			Measurements: measurements,
		}
		if err := p.ingestor.Ingest(ctx, raw); err != nil && p.log != nil {
			p.log.Warnw("poll_ingest_failed", "device", sensor.DeviceID, "err", err)
		}
	}
}
