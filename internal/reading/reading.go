package reading

import (
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/sensorspace/internal/bounded"
)

// MaxMeasurements is the most measurements one Reading can hold.
const MaxMeasurements = 64

// Reading is one sampled snapshot of a device's measurements.
//
// A Reading exclusively owns its measurements. It is not safe for
// concurrent use; ownership passes between components by convention.
// The zero value is an empty reading ready for use.
type Reading struct {
	// ID is assigned by the store when the reading is inserted.
	ID int64

	// Time is when the reading was sampled. The zero value means unset.
	Time time.Time

	// DeviceID identifies the reporting device. Zero means unset.
	DeviceID uint32

	// Name is the device name, optional.
	Name string

	meas *bounded.List[*Measurement]
}

// New creates an empty Reading.
func New() *Reading {
	return &Reading{meas: bounded.New[*Measurement](MaxMeasurements)}
}

func (r *Reading) list() *bounded.List[*Measurement] {
	if r.meas == nil {
		r.meas = bounded.New[*Measurement](MaxMeasurements)
	}
	return r.meas
}

// Append adds a copy of m to the reading and returns the stored measurement
// so callers can keep filling it in.
//
// Returns:
//   - *Measurement: the stored measurement
//   - error: ErrCapacityExceeded if the reading already holds MaxMeasurements;
//     the reading is unchanged in that case
func (r *Reading) Append(m Measurement) (*Measurement, error) {
	stored := &m
	if err := r.list().TryAppend(stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Count returns the number of measurements held.
func (r *Reading) Count() int {
	if r == nil {
		return 0
	}
	return r.meas.Len()
}

// Measurements returns the held measurements in insertion order.
func (r *Reading) Measurements() []*Measurement {
	if r == nil {
		return nil
	}
	return r.meas.Items()
}

// Measurement returns the measurement at index i.
func (r *Reading) Measurement(i int) *Measurement {
	return r.meas.At(i)
}

// Release drops every measurement the reading owns and clears its fields.
// It is safe to call on a nil Reading and safe to call more than once.
func (r *Reading) Release() {
	if r == nil {
		return
	}
	r.meas.Reset()
	r.ID = 0
	r.Time = time.Time{}
	r.DeviceID = 0
	r.Name = ""
}

// Validate checks the reading and normalises its timestamp.
//
// The timestamp is reset to the current time when it is unset or falls
// outside the current month and year. Every problem found is reported;
// an empty result means the reading is valid.
//
// Returns:
//   - []error: validation failures, each wrapping one of the ErrInvalid* sentinels
func (r *Reading) Validate() []error {
	return r.validateAt(time.Now())
}

func (r *Reading) validateAt(now time.Time) []error {
	if r.Time.IsZero() || r.Time.Year() != now.Year() || r.Time.Month() != now.Month() {
		r.Time = now.Truncate(time.Second)
	}

	var errs []error

	if r.DeviceID == 0 {
		errs = append(errs, ErrInvalidDevice)
	}
	if len(r.Name) > MaxNameLen {
		errs = append(errs, fmt.Errorf("device name: %w", ErrInvalidName))
	}

	for i, m := range r.Measurements() {
		if m.SensorID == 0 {
			errs = append(errs, fmt.Errorf("measurement %d: %w", i, ErrInvalidSensor))
		}
		if m.Value == "" || len(m.Value) > MaxValueLen {
			errs = append(errs, fmt.Errorf("measurement %d: %w", i, ErrInvalidValue))
		}
		if len(m.Name) > MaxNameLen {
			errs = append(errs, fmt.Errorf("measurement %d: %w", i, ErrInvalidName))
		}
	}

	return errs
}

// IndexBySensorID returns the position of the first measurement from sensor id.
func (r *Reading) IndexBySensorID(id uint32) (int, error) {
	for i, m := range r.Measurements() {
		if m.SensorID == id {
			return i, nil
		}
	}
	return -1, ErrNoMatch
}

// IndexByName returns the position of the first measurement called name.
func (r *Reading) IndexByName(name string) (int, error) {
	for i, m := range r.Measurements() {
		if m.Name == name {
			return i, nil
		}
	}
	return -1, ErrNoMatch
}

// MeasurementBySensorID returns the first measurement from sensor id.
func (r *Reading) MeasurementBySensorID(id uint32) (*Measurement, error) {
	i, err := r.IndexBySensorID(id)
	if err != nil {
		return nil, err
	}
	return r.Measurement(i), nil
}

// MeasurementByName returns the first measurement called name.
func (r *Reading) MeasurementByName(name string) (*Measurement, error) {
	i, err := r.IndexByName(name)
	if err != nil {
		return nil, err
	}
	return r.Measurement(i), nil
}

// String renders the reading for humans, one field per line.
func (r *Reading) String() string {
	if r == nil {
		return "<nil reading>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Reading %d\n", r.ID)
	fmt.Fprintf(&b, "  Device: %d", r.DeviceID)
	if r.Name != "" {
		fmt.Fprintf(&b, " (%s)", r.Name)
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "  Date: %s\n", FormatDate(r.Time))
	fmt.Fprintf(&b, "  Measurements: %d\n", r.Count())
	for _, m := range r.Measurements() {
		fmt.Fprintf(&b, "    sensor=%d type=%s name=%q value=%q\n", m.SensorID, m.Type, m.Name, m.Value)
	}
	return b.String()
}
