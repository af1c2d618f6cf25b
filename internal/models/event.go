package models

// Live event types pushed to WebSocket subscribers.
const (
	EventSensorUpdate = "sensor_update"
	EventAlertCreated = "alert_created"
)

// Event is the broadcast contract: a typed envelope scoped to the sensor
// (and its company) the data came from. The hub uses SensorID/CompanyID for
// authorization filtering; only Type, DeviceID and Data go over the wire.
type Event struct {
	Type      string `json:"type"`
	DeviceID  string `json:"device_id"`
	SensorID  int    `json:"-"`
	CompanyID int    `json:"-"`
	Data      any    `json:"data"`
}
