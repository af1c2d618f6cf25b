package service

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. UnknownSensor rejects a whole payload;
// OutOfRange drops one measurement and lets its siblings proceed.
var (
	ErrUnknownSensor      = errors.New("unknown or inactive sensor")
	ErrPersistenceFailure = errors.New("persistence failure")

	errInvalidThreshold = errors.New("threshold config needs a sensor, a parameter and at least one ordered bound")
)

// OutOfRangeError marks a measurement outside its physically valid range.
type OutOfRangeError struct {
	Parameter string
	Value     float64
	Min       float64
	Max       float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s=%v outside physical range [%v, %v]", e.Parameter, e.Value, e.Min, e.Max)
}
