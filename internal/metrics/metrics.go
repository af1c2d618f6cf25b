package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	ReadingsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrotrace_readings_ingested_total",
			Help: "Telemetry payloads processed, by outcome",
		},
		[]string{"outcome"}, // stored, rejected, failed
	)

	MeasurementsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agrotrace_measurements_dropped_total",
			Help: "Individual measurements dropped for being outside physical range",
		},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agrotrace_ingest_duration_seconds",
			Help:    "End-to-end latency of one payload through the pipeline",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// Alert metrics
	AlertsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrotrace_alerts_generated_total",
			Help: "Alerts created by the threshold evaluator",
		},
		[]string{"severity"},
	)

	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agrotrace_alerts_suppressed_total",
			Help: "Alerts suppressed by the dedup cooldown window",
		},
	)

	// Broadcast metrics
	BroadcastDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agrotrace_broadcast_delivered_total",
			Help: "Events delivered to subscriber buffers",
		},
	)

	BroadcastDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agrotrace_broadcast_dropped_total",
			Help: "Events shed from full subscriber buffers",
		},
	)

	// Ledger sync metrics
	SyncAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrotrace_ledger_sync_attempts_total",
			Help: "Ledger sync attempts, by result",
		},
		[]string{"result"}, // submitted, confirmed, failed
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agrotrace_ledger_submit_duration_seconds",
			Help:    "Ledger submission round-trip time",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)
