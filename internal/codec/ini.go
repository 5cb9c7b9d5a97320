package codec

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/sensorspace/internal/reading"
)

// INI keys.
const (
	iniDeviceKey = "DID"
	iniDateKey   = "DATE"
	iniMeasKey   = "MEAS"
	iniMeasDelim = ";"
	iniSection   = "[reading]"
)

// DecodeINI fills r from a single-record INI buffer:
//
//	[reading]
//	DID=7
//	DATE=2014-01-02 03:04:05
//	MEAS=1;21.5
//
// A second section header, a MEAS line without its delimiter, an
// unparsable identity or too many measurements abort the decode and
// release r. An unparsable DATE leaves the timestamp unset.
//
// Returns:
//   - error: ErrMultipleReadings, ErrMalformed or ErrCapacityExceeded
func DecodeINI(r *reading.Reading, buf []byte) error {
	sections := 0
	lineNo := 0

	for len(buf) > 0 {
		var line []byte
		line, buf, _ = bytes.Cut(buf, []byte{'\n'})
		lineNo++

		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' || line[0] == ';' {
			continue
		}

		if line[0] == '[' {
			sections++
			if sections > 1 {
				r.Release()
				return fmt.Errorf("line %d: %w", lineNo, ErrMultipleReadings)
			}
			continue
		}

		key, val, ok := strings.Cut(string(line), "=")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)

		if err := applyINI(r, strings.ToUpper(strings.TrimSpace(key)), val); err != nil {
			r.Release()
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}

	return nil
}

func applyINI(r *reading.Reading, key, val string) error {
	switch key {
	case iniDeviceKey:
		id, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: device id %q", ErrMalformed, val)
		}
		r.DeviceID = uint32(id)

	case iniDateKey:
		if t, err := reading.ParseDate(val); err == nil {
			r.Time = t
		}

	case iniMeasKey:
		sid, value, ok := strings.Cut(val, iniMeasDelim)
		if !ok {
			return fmt.Errorf("%w: measurement %q missing %q", ErrMalformed, val, iniMeasDelim)
		}
		id, err := strconv.ParseUint(strings.TrimSpace(sid), 10, 32)
		if err != nil {
			return fmt.Errorf("%w: sensor id %q", ErrMalformed, sid)
		}
		if _, err := r.Append(reading.Measurement{
			SensorID: uint32(id),
			Value:    strings.TrimSpace(value),
		}); err != nil {
			return err
		}
	}
	return nil
}

// AppendINI appends the INI encoding of r to dst. Measurement names and
// types have no INI representation and are dropped.
func AppendINI(dst []byte, r *reading.Reading) []byte {
	dst = append(dst, iniSection...)
	dst = append(dst, '\n')

	if r.DeviceID != 0 {
		dst = append(dst, iniDeviceKey+"="...)
		dst = strconv.AppendUint(dst, uint64(r.DeviceID), 10)
		dst = append(dst, '\n')
	}
	if !r.Time.IsZero() {
		dst = append(dst, iniDateKey+"="...)
		dst = append(dst, reading.FormatDate(r.Time)...)
		dst = append(dst, '\n')
	}
	for _, m := range r.Measurements() {
		dst = append(dst, iniMeasKey+"="...)
		dst = strconv.AppendUint(dst, uint64(m.SensorID), 10)
		dst = append(dst, iniMeasDelim...)
		dst = append(dst, m.Value...)
		dst = append(dst, '\n')
	}
	return dst
}

// EncodeINI writes r into buf in INI form.
//
// Returns:
//   - int: number of bytes written
//   - error: ErrWrite if buf is too small
func EncodeINI(r *reading.Reading, buf []byte) (int, error) {
	out := AppendINI(nil, r)
	if len(out) > len(buf) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrWrite, len(out), len(buf))
	}
	return copy(buf, out), nil
}
