package reading

import (
	"errors"

	"github.com/nerrad567/sensorspace/internal/bounded"
)

// Domain-specific errors for readings.
var (
	// ErrCapacityExceeded is returned when a Reading already holds MaxMeasurements.
	ErrCapacityExceeded = bounded.ErrCapacityExceeded

	// ErrNoMatch is returned when a lookup finds no measurement.
	ErrNoMatch = errors.New("reading: no match")

	// ErrInvalidDevice is reported by Validate when the device id is zero.
	ErrInvalidDevice = errors.New("reading: invalid device id")

	// ErrInvalidSensor is reported by Validate when a measurement sensor id is zero.
	ErrInvalidSensor = errors.New("reading: invalid measurement sensor id")

	// ErrInvalidValue is reported by Validate when a measurement value is empty or too long.
	ErrInvalidValue = errors.New("reading: invalid measurement value")

	// ErrInvalidName is reported by Validate when a name exceeds MaxNameLen.
	ErrInvalidName = errors.New("reading: name too long")

	// ErrInvalidDate is returned by ParseDate for malformed date text.
	ErrInvalidDate = errors.New("reading: invalid date")
)
