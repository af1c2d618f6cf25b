package service

import (
	"context"
	"time"

	"agrotrace/internal/logger"
	"agrotrace/internal/models"
	"agrotrace/internal/repository"
)

// A sensor is considered silent after missing this many expected intervals.
const offlineGraceFactor = 2

// WatchdogService periodically scans the registry for sensors that stopped
// reporting and raises offline alerts through the evaluator. Silence cannot
// surface through the payload path, so a scheduler drives it.
type WatchdogService struct {
	sensors   repository.SensorRepo
	evaluator Evaluator
	log       *logger.Logger
}

func NewWatchdogService(sensors repository.SensorRepo, evaluator Evaluator, log *logger.Logger) *WatchdogService {
	return &WatchdogService{sensors: sensors, evaluator: evaluator, log: log}
}

// Run ticks at the given interval until ctx is canceled.
func (s *WatchdogService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.sweep(ctx, now.UTC())
		}
	}
}

// sweep checks every active sensor once.
func (s *WatchdogService) sweep(ctx context.Context, now time.Time) {
	sensors, err := s.sensors.ListActive(ctx)
	if err != nil {
		if s.log != nil {
			s.log.Errorw("watchdog_list_sensors_failed", "err", err)
		}
		return
	}

	for _, sensor := range sensors {
		silentFor, offline := silence(sensor, now)
		if !offline {
			continue
		}
		if _, err := s.evaluator.RaiseOffline(ctx, sensor, silentFor); err != nil && s.log != nil {
			s.log.Errorw("offline_alert_failed", "sensor", sensor.ID, "err", err)
		}
	}
}

// silence returns how long the sensor has been quiet and whether that
// exceeds its expected reporting interval with grace. A sensor that never
// reported is measured from nothing; it only trips once last_seen exists,
// since install time is not tracked here.
func silence(sensor models.Sensor, now time.Time) (time.Duration, bool) {
	if sensor.LastSeen == nil || sensor.ReportIntervalS <= 0 {
		return 0, false
	}
	silentFor := now.Sub(*sensor.LastSeen)
	limit := time.Duration(sensor.ReportIntervalS) * time.Second * offlineGraceFactor
	return silentFor, silentFor > limit
}
