package reading

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestAppend_CapacityExceeded(t *testing.T) {
	r := New()
	for i := 0; i < MaxMeasurements; i++ {
		if _, err := r.Append(Measurement{SensorID: uint32(i + 1), Value: "1"}); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}

	_, err := r.Append(Measurement{SensorID: 65, Value: "1"})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("Append() 65th error = %v, want ErrCapacityExceeded", err)
	}
	if r.Count() != MaxMeasurements {
		t.Errorf("Count() = %d, want %d", r.Count(), MaxMeasurements)
	}
}

func TestAppend_ZeroValueReading(t *testing.T) {
	var r Reading
	m, err := r.Append(Measurement{SensorID: 3})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	m.Value = "12"

	if got := r.Measurement(0).Value; got != "12" {
		t.Errorf("stored Value = %q, want %q", got, "12")
	}
}

func TestValidate(t *testing.T) {
	now := time.Date(2014, time.January, 15, 12, 0, 0, 0, time.Local)

	tests := []struct {
		name    string
		build   func() *Reading
		wantErr []error
	}{
		{
			name: "valid",
			build: func() *Reading {
				r := New()
				r.DeviceID = 7
				r.Time = time.Date(2014, time.January, 2, 3, 4, 5, 0, time.Local)
				_, _ = r.Append(Measurement{SensorID: 1, Value: "21.5"})
				return r
			},
		},
		{
			name: "missing device",
			build: func() *Reading {
				return New()
			},
			wantErr: []error{ErrInvalidDevice},
		},
		{
			name: "bad measurements",
			build: func() *Reading {
				r := New()
				r.DeviceID = 1
				_, _ = r.Append(Measurement{SensorID: 0, Value: "1"})
				_, _ = r.Append(Measurement{SensorID: 2})
				_, _ = r.Append(Measurement{SensorID: 3, Value: strings.Repeat("9", MaxValueLen+1)})
				return r
			},
			wantErr: []error{ErrInvalidSensor, ErrInvalidValue, ErrInvalidValue},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.build().validateAt(now)
			if len(errs) != len(tt.wantErr) {
				t.Fatalf("validateAt() returned %d errors (%v), want %d", len(errs), errs, len(tt.wantErr))
			}
			for i, want := range tt.wantErr {
				if !errors.Is(errs[i], want) {
					t.Errorf("error[%d] = %v, want %v", i, errs[i], want)
				}
			}
		})
	}
}

func TestValidate_NormalisesTimestamp(t *testing.T) {
	now := time.Date(2014, time.January, 15, 12, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"unset", time.Time{}, now},
		{"previous month", time.Date(2013, time.December, 31, 23, 0, 0, 0, time.Local), now},
		{"same month kept", time.Date(2014, time.January, 2, 3, 4, 5, 0, time.Local), time.Date(2014, time.January, 2, 3, 4, 5, 0, time.Local)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			r.DeviceID = 1
			r.Time = tt.in
			r.validateAt(now)
			if !r.Time.Equal(tt.want) {
				t.Errorf("Time = %v, want %v", r.Time, tt.want)
			}
		})
	}
}

func TestRelease_Idempotent(t *testing.T) {
	r := New()
	r.DeviceID = 9
	_, _ = r.Append(Measurement{SensorID: 1, Value: "1"})

	r.Release()
	r.Release()

	if r.Count() != 0 || r.DeviceID != 0 {
		t.Errorf("after Release: Count=%d DeviceID=%d, want 0, 0", r.Count(), r.DeviceID)
	}

	var nilReading *Reading
	nilReading.Release()
}

func TestLookups(t *testing.T) {
	r := New()
	_, _ = r.Append(Measurement{SensorID: 4, Name: "Hall", Value: "19.0"})
	_, _ = r.Append(Measurement{SensorID: 5, Name: "Loft", Value: "12.5"})

	m, err := r.MeasurementBySensorID(5)
	if err != nil {
		t.Fatalf("MeasurementBySensorID() error = %v", err)
	}
	if m.Name != "Loft" {
		t.Errorf("Name = %q, want Loft", m.Name)
	}

	i, err := r.IndexByName("Hall")
	if err != nil || i != 0 {
		t.Errorf("IndexByName(Hall) = %d, %v; want 0, nil", i, err)
	}

	if _, err := r.MeasurementByName("Garage"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("MeasurementByName(Garage) error = %v, want ErrNoMatch", err)
	}
}

func TestString(t *testing.T) {
	r := New()
	r.DeviceID = 7
	r.Name = "boiler"
	_, _ = r.Append(Measurement{SensorID: 1, Type: MeasTemperature, Name: "T", Value: "21.5"})

	s := r.String()
	for _, want := range []string{"Device: 7 (boiler)", "type=temperature", `value="21.5"`} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q in:\n%s", want, s)
		}
	}
}

func TestMeasType(t *testing.T) {
	if got := MeasPower.String(); got != "power" {
		t.Errorf("MeasPower.String() = %q", got)
	}
	if got, ok := ParseMeasType("Flow"); !ok || got != MeasFlow {
		t.Errorf("ParseMeasType(Flow) = %v, %v", got, ok)
	}
	if got, ok := ParseMeasType("pressure"); ok || got != MeasUnknown {
		t.Errorf("ParseMeasType(pressure) = %v, %v", got, ok)
	}
	if got := MeasType(42).String(); got != "unknown" {
		t.Errorf("MeasType(42).String() = %q", got)
	}
}
