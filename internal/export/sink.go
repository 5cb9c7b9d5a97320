package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/sensorspace/internal/infrastructure/config"
)

// ErrUnknownSink is returned by NewSink for an unrecognised sink name.
var ErrUnknownSink = errors.New("export: unknown sink")

// filePermissions is the mode of files created by FileSink.
const filePermissions = 0o644

// FileSink appends "epoch:value\n" to the target file, creating it if
// needed.
type FileSink struct {
	mu sync.Mutex
}

// Update appends s to the file at target.
func (f *FileSink) Update(_ context.Context, target string, s Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermissions)
	if err != nil {
		return fmt.Errorf("opening %s: %w", target, err)
	}
	if _, err := file.WriteString(s.String() + "\n"); err != nil {
		file.Close() //nolint:errcheck // Write error takes precedence
		return fmt.Errorf("appending to %s: %w", target, err)
	}
	return file.Close()
}

// RRDToolSink runs "rrdtool update <target> <epoch:value>" per sample.
type RRDToolSink struct {
	// Binary is the rrdtool executable; "rrdtool" when empty.
	Binary string

	// run executes the command and returns its combined output.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewRRDToolSink creates a sink invoking binary.
func NewRRDToolSink(binary string) *RRDToolSink {
	return &RRDToolSink{Binary: binary}
}

// Update runs rrdtool for s. The command's output is included in the
// error when it fails.
func (r *RRDToolSink) Update(ctx context.Context, target string, s Sample) error {
	binary := r.Binary
	if binary == "" {
		binary = "rrdtool"
	}
	run := r.run
	if run == nil {
		run = runCommand
	}

	out, err := run(ctx, binary, "update", target, s.String())
	if err != nil {
		return fmt.Errorf("rrdtool update %s: %w: %s", target, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// SampleWriter is satisfied by *influxdb.Client.
type SampleWriter interface {
	WriteSample(target string, tags map[string]string, value string, at time.Time)
}

// InfluxSink writes each sample as a point whose measurement is the
// target, tagged with sensor_id and, when known, sensor_name.
type InfluxSink struct {
	Writer SampleWriter
}

// Update queues s on the InfluxDB write API. Delivery errors surface
// asynchronously through the client's error callback.
func (i *InfluxSink) Update(_ context.Context, target string, s Sample) error {
	if i.Writer == nil {
		return fmt.Errorf("influx sink for %s: no writer", target)
	}
	tags := map[string]string{"sensor_id": strconv.FormatUint(uint64(s.SensorID), 10)}
	if s.SensorName != "" {
		tags["sensor_name"] = s.SensorName
	}
	i.Writer.WriteSample(target, tags, s.Value, s.Time)
	return nil
}

// NewSink builds the sink named by cfg.Sink. The writer is required for
// the influxdb sink only. An empty name yields a nil Sink.
func NewSink(cfg config.ExportConfig, writer SampleWriter) (Sink, error) {
	switch strings.ToLower(cfg.Sink) {
	case "":
		return nil, nil
	case "file":
		return &FileSink{}, nil
	case "rrdtool":
		return NewRRDToolSink(cfg.RRDToolBinary), nil
	case "influxdb":
		if writer == nil {
			return nil, fmt.Errorf("%w: influxdb sink needs a connected client", ErrUnknownSink)
		}
		return &InfluxSink{Writer: writer}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSink, cfg.Sink)
	}
}
