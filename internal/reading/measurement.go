package reading

import "strings"

// Field limits carried over from the wire formats.
const (
	// MaxValueLen is the longest raw measurement value accepted.
	MaxValueLen = 31

	// MaxNameLen is the longest sensor or device name accepted.
	MaxNameLen = 127
)

// MeasType tags what physical quantity a Measurement represents.
type MeasType int

// Measurement types.
const (
	MeasUnknown MeasType = iota
	MeasTemperature
	MeasCurrent
	MeasVoltage
	MeasPower
	MeasFlow
)

var measTypeNames = [...]string{
	MeasUnknown:     "unknown",
	MeasTemperature: "temperature",
	MeasCurrent:     "current",
	MeasVoltage:     "voltage",
	MeasPower:       "power",
	MeasFlow:        "flow",
}

// String returns the lower-case name of the type.
func (t MeasType) String() string {
	if t < 0 || int(t) >= len(measTypeNames) {
		return measTypeNames[MeasUnknown]
	}
	return measTypeNames[t]
}

// ParseMeasType maps a type name back to its MeasType.
// Unrecognised names yield MeasUnknown and false.
func ParseMeasType(s string) (MeasType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range measTypeNames {
		if name == s {
			return MeasType(i), true
		}
	}
	return MeasUnknown, false
}

// Measurement is one sensor's value within a Reading.
//
// Value is kept as raw text: its unit and numeric format depend on the
// sensor and on whichever backend eventually consumes it.
type Measurement struct {
	SensorID uint32
	Type     MeasType
	Name     string
	Value    string
}
