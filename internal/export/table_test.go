package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/sensorspace/internal/infrastructure/config"
	"github.com/nerrad567/sensorspace/internal/infrastructure/logging"
	"github.com/nerrad567/sensorspace/internal/reading"
)

type update struct {
	target string
	sample string
}

type recordingSink struct {
	mu      sync.Mutex
	updates []update
	fail    map[string]bool
}

func (s *recordingSink) Update(_ context.Context, target string, sample Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[target] {
		return errors.New("target unavailable")
	}
	s.updates = append(s.updates, update{target, sample.String()})
	return nil
}

func testReading(t *testing.T) *reading.Reading {
	t.Helper()
	r := reading.New()
	r.DeviceID = 7
	r.Time = time.Unix(1388631845, 0)
	for _, m := range []reading.Measurement{
		{SensorID: 1, Name: "flow", Value: "21.5"},
		{SensorID: 2, Name: "return", Value: "18.0"},
		{SensorID: 3, Value: "230"},
	} {
		_, err := r.Append(m)
		require.NoError(t, err)
	}
	return r
}

func TestExport_FansOutPerBinding(t *testing.T) {
	sink := &recordingSink{}
	table := NewTable(sink, logging.Nop())

	require.NoError(t, table.Bind(Binding{Target: "flow.rrd", SensorID: 1}))
	require.NoError(t, table.Bind(Binding{Target: "return.rrd", SensorName: "return"}))
	require.NoError(t, table.Bind(Binding{Target: "missing.rrd", SensorID: 99}))

	sent := table.Export(context.Background(), testReading(t))

	assert.Equal(t, 2, sent)
	assert.Equal(t, []update{
		{"flow.rrd", "1388631845:21.5"},
		{"return.rrd", "1388631845:18.0"},
	}, sink.updates)
}

func TestExport_SameSensorManyTargets(t *testing.T) {
	sink := &recordingSink{}
	table := NewTable(sink, logging.Nop())
	require.NoError(t, table.Bind(Binding{Target: "a", SensorID: 3}))
	require.NoError(t, table.Bind(Binding{Target: "b", SensorID: 3}))

	assert.Equal(t, 2, table.Export(context.Background(), testReading(t)))
}

func TestExport_IDFirstThenName(t *testing.T) {
	sink := &recordingSink{}
	table := NewTable(sink, logging.Nop())

	// Id 2 exists, so the name is never consulted.
	require.NoError(t, table.Bind(Binding{Target: "by-id", SensorID: 2, SensorName: "flow"}))
	// Id 42 misses; the name matches sensor 1.
	require.NoError(t, table.Bind(Binding{Target: "by-name", SensorID: 42, SensorName: "flow"}))

	table.Export(context.Background(), testReading(t))

	// Updates follow measurement order.
	assert.Equal(t, []update{
		{"by-name", "1388631845:21.5"},
		{"by-id", "1388631845:18.0"},
	}, sink.updates)
}

func TestExport_EveryMatchingMeasurement(t *testing.T) {
	sink := &recordingSink{}
	table := NewTable(sink, logging.Nop())
	require.NoError(t, table.Bind(Binding{Target: "power.rrd", SensorID: 5}))
	require.NoError(t, table.Bind(Binding{Target: "named.rrd", SensorName: "ch"}))

	r := reading.New()
	defer r.Release()
	r.Time = time.Unix(1000, 0)
	for _, m := range []reading.Measurement{
		{SensorID: 5, Name: "ch", Value: "100"},
		{SensorID: 6, Value: "1"},
		{SensorID: 5, Name: "ch", Value: "200"},
	} {
		_, err := r.Append(m)
		require.NoError(t, err)
	}

	assert.Equal(t, 4, table.Export(context.Background(), r))
	assert.Equal(t, []update{
		{"power.rrd", "1000:100"},
		{"named.rrd", "1000:100"},
		{"power.rrd", "1000:200"},
		{"named.rrd", "1000:200"},
	}, sink.updates)
}

func TestExport_FailureDoesNotStopOthers(t *testing.T) {
	sink := &recordingSink{fail: map[string]bool{"first": true}}
	table := NewTable(sink, logging.Nop())
	require.NoError(t, table.Bind(Binding{Target: "first", SensorID: 1}))
	require.NoError(t, table.Bind(Binding{Target: "second", SensorID: 2}))

	assert.Equal(t, 1, table.Export(context.Background(), testReading(t)))
	assert.Equal(t, []update{{"second", "1388631845:18.0"}}, sink.updates)
}

func TestBind_Capacity(t *testing.T) {
	table := NewTable(&recordingSink{}, nil)
	for i := 0; i < MaxBindings; i++ {
		require.NoError(t, table.Bind(Binding{Target: fmt.Sprintf("t%d", i), SensorID: uint32(i + 1)}))
	}

	err := table.Bind(Binding{Target: "overflow", SensorID: 1})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, MaxBindings, table.Len())
}

func TestBind_Invalid(t *testing.T) {
	table := NewTable(&recordingSink{}, nil)
	assert.ErrorIs(t, table.Bind(Binding{SensorID: 1}), ErrInvalidBinding)
	assert.ErrorIs(t, table.Bind(Binding{Target: "x"}), ErrInvalidBinding)
	assert.Zero(t, table.Len())
}

func TestParseBinding(t *testing.T) {
	tests := []struct {
		input   string
		want    Binding
		wantErr bool
	}{
		{"/var/lib/rrd/boiler.rrd=3", Binding{Target: "/var/lib/rrd/boiler.rrd", SensorID: 3}, false},
		{"flow.log = flow", Binding{Target: "flow.log", SensorName: "flow"}, false},
		{"flow.log", Binding{}, true},
		{"=3", Binding{}, true},
		{"x=", Binding{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBinding(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidBinding)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := ParseBinding(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestNewTableFromConfig(t *testing.T) {
	table, err := NewTableFromConfig([]config.BindingConfig{
		{Target: "a.rrd", SensorID: 1},
		{Target: "b.rrd", SensorName: "return"},
	}, &recordingSink{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	_, err = NewTableFromConfig([]config.BindingConfig{{Target: "a.rrd"}}, &recordingSink{}, nil)
	assert.ErrorIs(t, err, ErrInvalidBinding)
}

func TestFileSink_Appends(t *testing.T) {
	target := filepath.Join(t.TempDir(), "flow.log")
	table := NewTable(&FileSink{}, nil)
	require.NoError(t, table.Bind(Binding{Target: target, SensorID: 1}))

	r := testReading(t)
	table.Export(context.Background(), r)
	r.Time = r.Time.Add(time.Minute)
	table.Export(context.Background(), r)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "1388631845:21.5\n1388631905:21.5\n", string(data))
}

func TestFileSink_BadPath(t *testing.T) {
	sink := &FileSink{}
	err := sink.Update(context.Background(), filepath.Join(t.TempDir(), "missing", "x.log"), Sample{Value: "1"})
	assert.Error(t, err)
}

func TestRRDToolSink_Arguments(t *testing.T) {
	var got []string
	sink := NewRRDToolSink("/usr/bin/rrdtool")
	sink.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		got = append([]string{name}, args...)
		return nil, nil
	}

	err := sink.Update(context.Background(), "boiler.rrd", Sample{Time: time.Unix(100, 0), Value: "55"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/bin/rrdtool", "update", "boiler.rrd", "100:55"}, got)
}

func TestRRDToolSink_ErrorIncludesOutput(t *testing.T) {
	sink := NewRRDToolSink("")
	sink.run = func(_ context.Context, name string, _ ...string) ([]byte, error) {
		assert.Equal(t, "rrdtool", name)
		return []byte("ERROR: opening 'boiler.rrd': No such file\n"), errors.New("exit status 1")
	}

	err := sink.Update(context.Background(), "boiler.rrd", Sample{Value: "1"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "No such file"), err.Error())
}

type recordingWriter struct {
	target string
	tags   map[string]string
	value  string
	at     time.Time
}

func (w *recordingWriter) WriteSample(target string, tags map[string]string, value string, at time.Time) {
	w.target, w.tags, w.value, w.at = target, tags, value, at
}

func TestInfluxSink(t *testing.T) {
	w := &recordingWriter{}
	sink := &InfluxSink{Writer: w}

	at := time.Unix(100, 0)
	require.NoError(t, sink.Update(context.Background(), "boiler_flow", Sample{Time: at, Value: "21.5", SensorID: 1, SensorName: "flow"}))

	assert.Equal(t, "boiler_flow", w.target)
	assert.Equal(t, map[string]string{"sensor_id": "1", "sensor_name": "flow"}, w.tags)
	assert.Equal(t, "21.5", w.value)
	assert.True(t, w.at.Equal(at))

	assert.Error(t, (&InfluxSink{}).Update(context.Background(), "x", Sample{}))
}

func TestNewSink(t *testing.T) {
	tests := []struct {
		name    string
		sink    string
		writer  SampleWriter
		want    any
		wantErr bool
	}{
		{"disabled", "", nil, nil, false},
		{"file", "file", nil, &FileSink{}, false},
		{"rrdtool", "RRDTOOL", nil, &RRDToolSink{}, false},
		{"influxdb", "influxdb", &recordingWriter{}, &InfluxSink{}, false},
		{"influxdb without client", "influxdb", nil, nil, true},
		{"unknown", "graphite", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewSink(config.ExportConfig{Sink: tt.sink, RRDToolBinary: "rrdtool"}, tt.writer)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownSink)
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.IsType(t, tt.want, got)
		})
	}
}
