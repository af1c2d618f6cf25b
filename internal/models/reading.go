package models

import "time"

// Measurement parameter names shared across the pipeline. Producers may send
// any subset; anything else in the payload is ignored.
const (
	ParamTemperature  = "temperature"
	ParamAirHumidity  = "air_humidity"
	ParamSoilHumidity = "soil_humidity"
	ParamPH           = "ph"
	ParamConductivity = "conductivity"
	ParamNitrogen     = "nitrogen"
	ParamPhosphorus   = "phosphorus"
	ParamPotassium    = "potassium"
	ParamSolarRad     = "solar_radiation"
)

// Reading is one timestamped set of measurements from a sensor.
// Rows are append-only; a reading is never mutated after storage.
type Reading struct {
	ID           int64              `json:"id"`
	SensorID     int                `json:"sensor_id"`
	Timestamp    time.Time          `json:"timestamp"`
	Measurements map[string]float64 `json:"measurements"`
}

// RawReading is the ingestion contract as delivered by any producer
// (MQTT push, HTTP push or scheduled pull). Timestamp is optional and
// defaults to arrival time.
type RawReading struct {
	DeviceID     string             `json:"device_id"`
	Measurements map[string]float64 `json:"measurements"`
	Timestamp    time.Time          `json:"timestamp,omitempty"`
}
