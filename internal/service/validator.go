package service

import (
	"context"
	"fmt"
	"time"

	"agrotrace/internal/models"
	"agrotrace/internal/repository"
)

// physicalRange is the hard bound a measurement can physically take,
// independent of any operator threshold. Values outside it are sensor
// glitches, not field conditions.
type physicalRange struct {
	min, max float64
}

var physicalRanges = map[string]physicalRange{
	models.ParamTemperature:  {-40, 85},
	models.ParamAirHumidity:  {0, 100},
	models.ParamSoilHumidity: {0, 100},
	models.ParamPH:           {0, 14},
	models.ParamConductivity: {0, 20000},
	models.ParamNitrogen:     {0, 2000},
	models.ParamPhosphorus:   {0, 2000},
	models.ParamPotassium:    {0, 2000},
	models.ParamSolarRad:     {0, 2000},
}

// Validator normalizes a raw payload into a canonical reading. It is a pure
// transform plus a registry lookup; it writes nothing.
type Validator struct {
	sensors repository.SensorRepo
}

func NewValidator(sensors repository.SensorRepo) *Validator {
	return &Validator{sensors: sensors}
}

// Validate resolves the device against the registry and bounds-checks every
// measurement. Unknown or inactive devices reject the whole payload with
// ErrUnknownSensor. A measurement outside its physical range (or with an
// unknown parameter name) is dropped and reported in the returned slice;
// the rest of the payload still proceeds.
func (v *Validator) Validate(ctx context.Context, raw models.RawReading) (*models.Sensor, models.Reading, []error, error) {
	sensor, err := v.sensors.GetByDeviceID(ctx, raw.DeviceID)
	if err != nil {
		return nil, models.Reading{}, nil, fmt.Errorf("lookup device %q: %w", raw.DeviceID, err)
	}
	if sensor == nil || !sensor.Active {
		return nil, models.Reading{}, nil, fmt.Errorf("device %q: %w", raw.DeviceID, ErrUnknownSensor)
	}

	ts := raw.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	var dropped []error
	clean := make(map[string]float64, len(raw.Measurements))
	for param, value := range raw.Measurements {
		bounds, known := physicalRanges[param]
		if !known {
			dropped = append(dropped, fmt.Errorf("unknown parameter %q", param))
			continue
		}
		if value < bounds.min || value > bounds.max {
			dropped = append(dropped, &OutOfRangeError{
				Parameter: param, Value: value, Min: bounds.min, Max: bounds.max,
			})
			continue
		}
		clean[param] = value
	}

	return sensor, models.Reading{
		SensorID:     sensor.ID,
		Timestamp:    ts,
		Measurements: clean,
	}, dropped, nil
}
