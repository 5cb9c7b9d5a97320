package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/nerrad567/sensorspace/internal/codec"
	"github.com/nerrad567/sensorspace/internal/infrastructure/logging"
	"github.com/nerrad567/sensorspace/internal/infrastructure/metrics"
	"github.com/nerrad567/sensorspace/internal/infrastructure/mqtt"
	"github.com/nerrad567/sensorspace/internal/reading"
	"github.com/nerrad567/sensorspace/internal/store"
)

var (
	// ErrInvalidReading wraps every validation failure of a decoded reading.
	ErrInvalidReading = errors.New("ingest: invalid reading")

	// ErrNoThermometer is returned by New for the cc128 format without a
	// thermometer sensor id.
	ErrNoThermometer = errors.New("ingest: cc128 format needs a thermometer sensor id")
)

// Poster persists entities; *store.Transport implements it.
type Poster interface {
	Post(ctx context.Context, kind store.Kind, entity any) (store.Status, error)
}

// Exporter fans a reading out to time-series targets; *export.Table
// implements it.
type Exporter interface {
	Export(ctx context.Context, r *reading.Reading) int
}

// ReadingWriter mirrors whole readings; *influxdb.Client implements it.
type ReadingWriter interface {
	WriteReading(r *reading.Reading)
}

// Options configures a Pipeline. Store, Export, Mirror and Metrics are
// optional.
type Options struct {
	Format codec.Format

	// CC128 decodes cc128 payloads. Its TempSensorID must be set when
	// Format is cc128.
	CC128 codec.CC128

	Store   Poster
	Export  Exporter
	Mirror  ReadingWriter
	Metrics *metrics.Metrics
	Logger  *logging.Logger
}

// Stats counts pipeline outcomes since start.
type Stats struct {
	Received  uint64
	Rejected  uint64
	Stored    uint64
	Exported  uint64
	StoreErrs uint64
}

// Pipeline turns inbound payloads into stored and exported readings.
//
// Thread Safety:
//   - Handle may be called concurrently when Store, Export and Mirror
//     allow it.
type Pipeline struct {
	format  codec.Format
	cc128   codec.CC128
	store   Poster
	export  Exporter
	mirror  ReadingWriter
	metrics *metrics.Metrics
	log     *logging.Logger

	received, rejected, stored, exported, storeErrs atomic.Uint64
}

// New creates a pipeline.
//
// Returns:
//   - error: codec.ErrUnknownFormat for formats other than json, ini or
//     cc128; ErrNoThermometer for cc128 without CC128.TempSensorID
func New(opts Options) (*Pipeline, error) {
	format, err := codec.ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	if format == codec.FormatCC128 && opts.CC128.TempSensorID == 0 {
		return nil, ErrNoThermometer
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Pipeline{
		format:  format,
		cc128:   opts.CC128,
		store:   opts.Store,
		export:  opts.Export,
		mirror:  opts.Mirror,
		metrics: opts.Metrics,
		log:     log.With("component", "ingest"),
	}, nil
}

func (p *Pipeline) decode(r *reading.Reading, payload []byte) error {
	if p.format == codec.FormatCC128 {
		return p.cc128.Decode(r, payload)
	}
	return codec.Decode(p.format, r, payload)
}

// Handler adapts the pipeline to an MQTT subscription bound to ctx.
func (p *Pipeline) Handler(ctx context.Context) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		return p.Handle(ctx, topic, payload)
	}
}

// Handle decodes payload, validates it and hands the reading to the store,
// the export table and the mirror.
//
// A device id or name missing from the payload is taken from the topic
// when it follows the sensorspace/reading/{location}/{id}/{name} layout.
//
// Returns:
//   - error: decode errors, ErrInvalidReading, or the store error. Export
//     and mirror failures are logged only.
func (p *Pipeline) Handle(ctx context.Context, topic string, payload []byte) error {
	start := time.Now()
	defer func() { p.metrics.ObserveHandle(time.Since(start)) }()
	p.received.Add(1)
	p.metrics.Received()

	r := reading.New()
	defer r.Release()

	if err := p.decode(r, payload); err != nil {
		p.reject()
		return fmt.Errorf("decoding %s payload from %s: %w", p.format, topic, err)
	}
	fillFromTopic(r, topic)

	if errs := r.Validate(); len(errs) > 0 {
		p.reject()
		return fmt.Errorf("%w from %s: %w", ErrInvalidReading, topic, errors.Join(errs...))
	}

	var storeErr error
	if p.store != nil {
		status, err := p.store.Post(ctx, store.KindReading, r)
		switch {
		case err != nil:
			p.storeErrs.Add(1)
			p.metrics.StoreFailed()
			storeErr = fmt.Errorf("storing reading from device %d: %w", r.DeviceID, err)
		default:
			p.stored.Add(1)
			p.metrics.Stored(status == store.StatusReconnected)
			if status == store.StatusReconnected {
				p.log.Info("reading stored after reconnect", "device_id", r.DeviceID, "reading_id", r.ID)
			}
		}
	}

	if p.export != nil {
		n := p.export.Export(ctx, r)
		p.exported.Add(uint64(n)) // #nosec G115 -- n is a non-negative count
		p.metrics.Exported(n)
	}
	if p.mirror != nil {
		p.mirror.WriteReading(r)
	}

	p.log.Debug("reading processed", "topic", topic, "device_id", r.DeviceID, "measurements", r.Count())
	return storeErr
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Received:  p.received.Load(),
		Rejected:  p.rejected.Load(),
		Stored:    p.stored.Load(),
		Exported:  p.exported.Load(),
		StoreErrs: p.storeErrs.Load(),
	}
}

func (p *Pipeline) reject() {
	p.rejected.Add(1)
	p.metrics.Rejected()
}

func fillFromTopic(r *reading.Reading, topic string) {
	rt, ok := mqtt.ParseReadingTopic(topic)
	if !ok {
		return
	}
	if r.DeviceID == 0 {
		if id, err := strconv.ParseUint(rt.DeviceID, 10, 32); err == nil {
			r.DeviceID = uint32(id)
		}
	}
	if r.Name == "" && rt.DeviceName != "" && rt.DeviceName != "unknown" {
		r.Name = rt.DeviceName
	}
}
