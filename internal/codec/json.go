package codec

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/nerrad567/sensorspace/internal/reading"
)

// fieldPolicy says how a decoder treats an absent key.
type fieldPolicy int

const (
	// optional keys that are absent leave the target unset.
	optional fieldPolicy = iota
	// required keys that are absent fail the decode.
	required
)

// jsonField binds one object key to the code that applies its value.
// A present key whose value cannot be applied always fails the decode,
// whatever its policy.
type jsonField[T any] struct {
	key    string
	policy fieldPolicy
	apply  func(dst T, v Value) error
}

var readingFields = []jsonField[*reading.Reading]{
	{key: "date", policy: optional, apply: applyDate},
	{key: "device", policy: optional, apply: applyDevice},
	{key: "sensors", policy: optional, apply: applySensors},
}

var deviceFields = []jsonField[*reading.Reading]{
	{key: "id", policy: optional, apply: func(r *reading.Reading, v Value) error {
		id, err := parseID(v)
		r.DeviceID = id
		return err
	}},
	{key: "name", policy: optional, apply: func(r *reading.Reading, v Value) error {
		s, err := v.Text()
		r.Name = s
		return err
	}},
}

var sensorFields = []jsonField[*reading.Measurement]{
	{key: "id", policy: optional, apply: func(m *reading.Measurement, v Value) error {
		id, err := parseID(v)
		m.SensorID = id
		return err
	}},
	{key: "name", policy: optional, apply: func(m *reading.Measurement, v Value) error {
		s, err := v.Text()
		m.Name = s
		return err
	}},
	{key: "meas", policy: optional, apply: applyMeas},
	{key: "type", policy: optional, apply: func(m *reading.Measurement, v Value) error {
		s, err := v.Text()
		if err != nil {
			return err
		}
		// Unrecognised type names stay MeasUnknown.
		m.Type, _ = reading.ParseMeasType(s)
		return nil
	}},
}

func decodeFields[T any](obj []byte, dst T, fields []jsonField[T]) error {
	for _, f := range fields {
		v, err := KeyValue(obj, f.key)
		if errors.Is(err, ErrNoMatch) {
			if f.policy == required {
				return fmt.Errorf("%w: missing %q", ErrMalformed, f.key)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		if err := f.apply(dst, v); err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
	}
	return nil
}

// DecodeJSON fills r from a JSON reading.
//
// The decode order is date, device, then each element of sensors, which
// appends one Measurement per element. Missing keys leave fields unset;
// any present value that is malformed fails the whole decode. An object
// wrapped as {"reading":{...}} is unwrapped first.
//
// On failure r may be partially filled; callers must Release it.
//
// Returns:
//   - error: ErrMalformed, or ErrCapacityExceeded for too many sensors
func DecodeJSON(r *reading.Reading, buf []byte) error {
	inner, err := KeyValue(buf, "reading")
	switch {
	case err == nil && inner.Kind == KindObject:
		buf = inner.Raw
	case err == nil:
		return fmt.Errorf("reading: %w: expected object, got %s", ErrMalformed, inner.Kind)
	case !errors.Is(err, ErrNoMatch):
		return err
	}

	return decodeFields(buf, r, readingFields)
}

func applyDate(r *reading.Reading, v Value) error {
	s, err := v.Text()
	if err != nil {
		return err
	}
	t, err := reading.ParseDate(s)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	r.Time = t
	return nil
}

func applyDevice(r *reading.Reading, v Value) error {
	if v.Kind != KindObject {
		return fmt.Errorf("%w: expected object, got %s", ErrMalformed, v.Kind)
	}
	return decodeFields(v.Raw, r, deviceFields)
}

func applySensors(r *reading.Reading, v Value) error {
	if v.Kind != KindArray {
		return fmt.Errorf("%w: expected array, got %s", ErrMalformed, v.Kind)
	}
	elems, err := ArrayElements(v.Raw)
	if err != nil {
		return err
	}

	for i, elem := range elems {
		if classify(elem[0]) != KindObject {
			return fmt.Errorf("[%d]: %w: expected object", i, ErrMalformed)
		}
		var m reading.Measurement
		if err := decodeFields(elem, &m, sensorFields); err != nil {
			return fmt.Errorf("[%d].%w", i, err)
		}
		if _, err := r.Append(m); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

// applyMeas accepts a string value or keeps a nested container as raw text.
func applyMeas(m *reading.Measurement, v Value) error {
	if v.Kind == KindString {
		s, err := v.Text()
		m.Value = s
		return err
	}
	m.Value = string(v.Raw)
	return nil
}

func parseID(v Value) (uint32, error) {
	s, err := v.Text()
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q is not numeric", ErrMalformed, s)
	}
	return uint32(id), nil
}

// EncodeJSON writes r into buf as compact JSON.
//
// No NUL terminator is written or counted: the returned length is exactly
// the JSON text, and buf[:n] is the complete payload.
//
// Returns:
//   - int: number of bytes written
//   - error: ErrWrite if buf is too small; nothing is written in that case
func EncodeJSON(r *reading.Reading, buf []byte) (int, error) {
	out := AppendJSON(nil, r)
	if len(out) > len(buf) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrWrite, len(out), len(buf))
	}
	return copy(buf, out), nil
}

// MarshalJSON returns the compact JSON encoding of r.
func MarshalJSON(r *reading.Reading) []byte {
	return AppendJSON(nil, r)
}

// AppendJSON appends the compact JSON encoding of r to dst.
//
// Fields are emitted in a fixed order: date, device, sensors. Within each
// sensor element id, name and meas come first, each omitted when zero or
// empty, followed by type when it is known.
func AppendJSON(dst []byte, r *reading.Reading) []byte {
	var obj jsonObject
	dst = obj.open(dst)

	if !r.Time.IsZero() {
		dst = obj.key(dst, "date")
		dst = appendJSONString(dst, reading.FormatDate(r.Time))
	}

	if r.DeviceID != 0 {
		dst = obj.key(dst, "device")
		var dev jsonObject
		dst = dev.open(dst)
		dst = dev.key(dst, "id")
		dst = appendJSONID(dst, r.DeviceID)
		if r.Name != "" {
			dst = dev.key(dst, "name")
			dst = appendJSONString(dst, r.Name)
		}
		dst = dev.close(dst)
	}

	dst = obj.key(dst, "sensors")
	dst = append(dst, '[')
	for i, m := range r.Measurements() {
		if i > 0 {
			dst = append(dst, ',')
		}
		var el jsonObject
		dst = el.open(dst)
		if m.SensorID != 0 {
			dst = el.key(dst, "id")
			dst = appendJSONID(dst, m.SensorID)
		}
		if m.Name != "" {
			dst = el.key(dst, "name")
			dst = appendJSONString(dst, m.Name)
		}
		if m.Value != "" {
			dst = el.key(dst, "meas")
			dst = appendJSONString(dst, m.Value)
		}
		if m.Type != reading.MeasUnknown {
			dst = el.key(dst, "type")
			dst = appendJSONString(dst, m.Type.String())
		}
		dst = el.close(dst)
	}
	dst = append(dst, ']')

	return obj.close(dst)
}

// jsonObject tracks member separators while an object is written.
type jsonObject struct {
	members int
}

func (o *jsonObject) open(dst []byte) []byte { return append(dst, '{') }

func (o *jsonObject) close(dst []byte) []byte { return append(dst, '}') }

func (o *jsonObject) key(dst []byte, k string) []byte {
	if o.members > 0 {
		dst = append(dst, ',')
	}
	o.members++
	dst = appendJSONString(dst, k)
	return append(dst, ':')
}

func appendJSONID(dst []byte, id uint32) []byte {
	dst = append(dst, '"')
	dst = strconv.AppendUint(dst, uint64(id), 10)
	return append(dst, '"')
}

const hexDigits = "0123456789abcdef"

// appendJSONString appends s as a quoted JSON string.
func appendJSONString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"' || c == '\\':
				dst = append(dst, '\\', c)
			case c == '\n':
				dst = append(dst, '\\', 'n')
			case c == '\r':
				dst = append(dst, '\\', 'r')
			case c == '\t':
				dst = append(dst, '\\', 't')
			case c < 0x20:
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			default:
				dst = append(dst, c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, `�`...)
		} else {
			dst = append(dst, s[i:i+size]...)
		}
		i += size
	}
	return append(dst, '"')
}
