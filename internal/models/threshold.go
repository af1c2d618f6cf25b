package models

// ThresholdConfig is the operator-defined acceptable range for one sensor
// parameter. Min/Max may each be nil, meaning unbounded on that side.
// Critical escalates any violation of this parameter straight to critical.
type ThresholdConfig struct {
	ID        int      `json:"id"`
	SensorID  int      `json:"sensor_id"`
	Parameter string   `json:"parameter"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Active    bool     `json:"active"`
	Critical  bool     `json:"critical"`
}
