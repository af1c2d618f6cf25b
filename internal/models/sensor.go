package models

import "time"

// Sensor is one registered field device.
type Sensor struct {
	ID               int        `json:"id"`
	DeviceID         string     `json:"device_id"`
	CompanyID        int        `json:"company_id"`
	Name             string     `json:"name"`
	Active           bool       `json:"active"`
	ReportIntervalS  int        `json:"report_interval_s"` // expected seconds between readings
	LastSeen         *time.Time `json:"last_seen,omitempty"`
}
