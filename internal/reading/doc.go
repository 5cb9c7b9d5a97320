// Package reading defines the canonical sensor reading model.
//
// A Reading is one snapshot of a device: a timestamp, the device identity
// and an ordered list of at most MaxMeasurements Measurements. Every codec,
// store and exporter in sensorspace speaks this model.
//
// # Lifecycle
//
//	r := reading.New()
//	if _, err := r.Append(reading.Measurement{SensorID: 1, Value: "21.5"}); err != nil {
//	    // reading.ErrCapacityExceeded
//	}
//	if errs := r.Validate(); len(errs) > 0 {
//	    // reject
//	}
//	r.Release()
//
// Validation is explicit: construction never rejects a reading, Validate
// reports every problem at once and normalises stale timestamps.
//
// # Dates
//
// FormatDate and ParseDate implement the fixed YYYY-MM-DD HH:MM:SS layout
// used by the stores and the wire formats. Dates are interpreted in local time.
package reading
