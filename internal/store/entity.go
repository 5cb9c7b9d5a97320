package store

import (
	"time"

	"github.com/nerrad567/sensorspace/internal/reading"
)

// Kind identifies which entity a Query serializes.
type Kind int

// Payload kinds.
const (
	KindReading Kind = iota + 1
	KindDevice
	KindSensor
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindReading:
		return "reading"
	case KindDevice:
		return "device"
	case KindSensor:
		return "sensor"
	default:
		return "unknown"
	}
}

// Device is a configured device row.
type Device struct {
	ID          uint32
	Name        string
	Description string
}

// Sensor is a configured sensor row.
type Sensor struct {
	ID       uint32
	DeviceID uint32
	Name     string
	Type     reading.MeasType
}

// ReadingSelector filters stored readings. Zero fields do not filter.
type ReadingSelector struct {
	SensorID uint32
	DeviceID uint32
	Since    time.Time
	Limit    int
}

// DeviceSelector filters devices. A zero ID selects every device.
type DeviceSelector struct {
	ID uint32
}

// SensorSelector filters sensors. Zero fields do not filter.
type SensorSelector struct {
	ID       uint32
	DeviceID uint32
}
