package service

import (
	"context"
	"testing"
	"time"

	"agrotrace/internal/models"
)

func TestSilence(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seen := func(ago time.Duration) *time.Time {
		ts := now.Add(-ago)
		return &ts
	}

	cases := []struct {
		name    string
		sensor  models.Sensor
		offline bool
	}{
		{
			name:    "recent report",
			sensor:  models.Sensor{ReportIntervalS: 300, LastSeen: seen(4 * time.Minute)},
			offline: false,
		},
		{
			name:    "inside grace",
			sensor:  models.Sensor{ReportIntervalS: 300, LastSeen: seen(9 * time.Minute)},
			offline: false, // 2x300s grace not exceeded yet
		},
		{
			name:    "past grace",
			sensor:  models.Sensor{ReportIntervalS: 300, LastSeen: seen(11 * time.Minute)},
			offline: true,
		},
		{
			name:    "never reported",
			sensor:  models.Sensor{ReportIntervalS: 300},
			offline: false,
		},
		{
			name:    "no expected interval",
			sensor:  models.Sensor{ReportIntervalS: 0, LastSeen: seen(24 * time.Hour)},
			offline: false,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, offline := silence(tc.sensor, now)
			if offline != tc.offline {
				t.Fatalf("offline=%v, want %v", offline, tc.offline)
			}
		})
	}
}

func TestWatchdog_SweepRaisesOfflineOnlyForSilentSensors(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-2 * time.Minute)
	stale := now.Add(-30 * time.Minute)

	sensors := &sensorRepoStub{active: []models.Sensor{
		{ID: 1, DeviceID: "a", ReportIntervalS: 300, LastSeen: &fresh},
		{ID: 2, DeviceID: "b", ReportIntervalS: 300, LastSeen: &stale},
		{ID: 3, DeviceID: "c", ReportIntervalS: 300}, // never reported
	}}
	eval := &evaluatorStub{}

	w := NewWatchdogService(sensors, eval, nil)
	w.sweep(context.Background(), now)

	if len(eval.offline) != 1 || eval.offline[0] != 2 {
		t.Fatalf("expected only sensor 2 to go offline, got %v", eval.offline)
	}
	if eval.offlineFor[0] != 30*time.Minute {
		t.Fatalf("silence duration not forwarded: %v", eval.offlineFor[0])
	}
}

func TestWatchdog_RunStopsOnCancel(t *testing.T) {
	sensors := &sensorRepoStub{}
	w := NewWatchdogService(sensors, &evaluatorStub{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not stop on context cancel")
	}
}
