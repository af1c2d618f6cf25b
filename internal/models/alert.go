package models

import "time"

// Alert severities, ordered weakest to strongest.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert lifecycle states.
const (
	AlertPending    = "pending"
	AlertInProgress = "in_progress"
	AlertResolved   = "resolved"
	AlertIgnored    = "ignored"
)

// Alert kinds beyond plain threshold violations.
const (
	KindOffline = "offline"
)

// Alert records one threshold violation or silence detection.
// ResolvedAt is set iff Status is resolved or ignored.
type Alert struct {
	ID             int64      `json:"id"`
	SensorID       int        `json:"sensor_id"`
	Parameter      string     `json:"parameter"`
	Severity       string     `json:"severity"`
	Message        string     `json:"message"`
	ObservedValue  float64    `json:"observed_value"`
	ThresholdValue float64    `json:"threshold_value"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

// Unresolved reports whether the alert still counts against the dedup window.
func (a Alert) Unresolved() bool {
	return a.Status == AlertPending || a.Status == AlertInProgress
}
