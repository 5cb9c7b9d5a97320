package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/sensorspace/internal/infrastructure/logging"
	"github.com/nerrad567/sensorspace/internal/reading"
)

// SQL statements shared by both engines. Placeholders are "?" for both drivers.
const (
	insertReadingSQL     = "INSERT INTO sensors_reading (deviceID, date) VALUES (?, ?)"
	insertMeasurementSQL = "INSERT INTO sensors_measurement (readingID, sensorID, measurement) VALUES (?, ?, ?)"
	insertDeviceSQL      = "INSERT INTO devices (deviceID, name, description) VALUES (?, ?, ?)"
	insertSensorSQL      = "INSERT INTO sensors (sensorID, deviceID, name, type) VALUES (?, ?, ?, ?)"

	selectReadingsSQL = "SELECT r.readingID, r.deviceID, r.date, m.sensorID, m.measurement " +
		"FROM sensors_reading r LEFT JOIN sensors_measurement m ON m.readingID = r.readingID"
	selectDevicesSQL = "SELECT deviceID, name, description FROM devices"
	selectSensorsSQL = "SELECT sensorID, deviceID, name, type FROM sensors"
)

// Transport persists readings, devices and sensors through one Engine.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Engine calls are
//     serialized behind a single lock.
type Transport struct {
	mu     sync.Mutex
	engine Engine
	log    *logging.Logger
	closed bool
}

// New creates a Transport for the engine selected in cfg.
//
// Returns:
//   - *Transport: unconnected transport; call Connect before use
//   - error: ErrConfig when no engine is selected
func New(cfg Config, log *logging.Logger) (*Transport, error) {
	var e Engine
	switch cfg.Engine {
	case EngineMySQL:
		e = newMySQLEngine(cfg)
	case EngineSQLite:
		if cfg.DB == "" {
			return nil, fmt.Errorf("%w: sqlite engine needs a database path", ErrConfig)
		}
		e = newSQLiteEngine(cfg)
	default:
		return nil, fmt.Errorf("%w: no engine selected", ErrConfig)
	}
	return NewWithEngine(e, log), nil
}

// NewWithEngine creates a Transport driving e.
func NewWithEngine(e Engine, log *logging.Logger) *Transport {
	if log == nil {
		log = logging.Nop()
	}
	name := "none"
	if e != nil {
		name = e.Name()
	}
	return &Transport{engine: e, log: log.With("component", "store", "engine", name)}
}

// Connect opens the engine.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.engine == nil {
		return fmt.Errorf("%w: no engine selected", ErrConfig)
	}
	if t.closed {
		return ErrClosed
	}
	if err := t.engine.Open(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInit, t.engine.Name(), err)
	}
	t.log.Info("store connected")
	return nil
}

// HealthCheck pings the engine under the transport lock. It never
// reconnects; a failed ping is reported as ErrConnection.
func (t *Transport) HealthCheck(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.engine == nil {
		return fmt.Errorf("%w: no engine selected", ErrConfig)
	}
	if t.closed {
		return ErrClosed
	}
	if err := t.engine.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnection, t.engine.Name(), err)
	}
	return nil
}

// Execute runs q. A failed statement triggers one reconnect and exactly
// one retry.
//
// Returns:
//   - Status: StatusReconnected when the retry ran on a new connection
//   - error: ErrConnection if the reconnect failed, ErrPost or ErrGet if
//     the retry failed, or the context error
func (t *Transport) Execute(ctx context.Context, q *Query) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.execute(ctx, q)
}

func (t *Transport) execute(ctx context.Context, q *Query) (Status, error) {
	if t.engine == nil {
		return StatusOK, fmt.Errorf("%w: no engine selected", ErrConfig)
	}
	if t.closed {
		return StatusOK, ErrClosed
	}

	err := t.engine.Exec(ctx, q)
	if err == nil {
		return StatusOK, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return StatusOK, fmt.Errorf("%w: %w", opError(q), ctxErr)
	}

	t.log.Warn("statement failed, reconnecting", "op", q.Op.String(), "kind", q.Kind.String(), "error", err)

	status, rerr := t.engine.Reconnect(ctx)
	if rerr != nil {
		return status, fmt.Errorf("%w: %w", ErrConnection, rerr)
	}
	if status == StatusReconnected {
		t.log.Info("store reconnected")
	}

	q.resetResult()
	if err := t.engine.Exec(ctx, q); err != nil {
		return status, fmt.Errorf("%w: %w", opError(q), err)
	}
	return status, nil
}

func opError(q *Query) error {
	if q.Op == OpSelect {
		return ErrGet
	}
	return ErrPost
}

// Post inserts entity, which must be a *reading.Reading for KindReading,
// a *Device for KindDevice or a *Sensor for KindSensor.
//
// A reading is written as one row plus one row per measurement, each its
// own statement. A failed measurement does not stop the others or undo
// the reading row; the failures are joined into the returned error.
// The store-assigned identity is written back into the entity.
//
// Returns:
//   - Status: StatusReconnected if any statement needed a new connection
//   - error: ErrPayloadMismatch, or an Execute error
func (t *Transport) Post(ctx context.Context, kind Kind, entity any) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q := &Query{Kind: kind}

	switch kind {
	case KindReading:
		r, ok := entity.(*reading.Reading)
		if !ok || r == nil {
			return StatusOK, fmt.Errorf("%w: %s wants *reading.Reading, got %T", ErrPayloadMismatch, kind, entity)
		}
		return t.postReading(ctx, q, r)

	case KindDevice:
		d, ok := entity.(*Device)
		if !ok || d == nil {
			return StatusOK, fmt.Errorf("%w: %s wants *Device, got %T", ErrPayloadMismatch, kind, entity)
		}
		q.set(OpInsert, insertDeviceSQL, idArg(d.ID), d.Name, d.Description)
		status, err := t.execute(ctx, q)
		if err == nil && d.ID == 0 {
			d.ID = uint32(q.InsertID)
		}
		return status, err

	case KindSensor:
		s, ok := entity.(*Sensor)
		if !ok || s == nil {
			return StatusOK, fmt.Errorf("%w: %s wants *Sensor, got %T", ErrPayloadMismatch, kind, entity)
		}
		q.set(OpInsert, insertSensorSQL, idArg(s.ID), s.DeviceID, s.Name, int(s.Type))
		status, err := t.execute(ctx, q)
		if err == nil && s.ID == 0 {
			s.ID = uint32(q.InsertID)
		}
		return status, err

	default:
		return StatusOK, fmt.Errorf("%w: unknown kind %d", ErrPayloadMismatch, kind)
	}
}

// idArg binds a zero id as NULL so the engine assigns the key.
func idArg(id uint32) any {
	if id == 0 {
		return nil
	}
	return id
}

func (t *Transport) postReading(ctx context.Context, q *Query, r *reading.Reading) (Status, error) {
	q.set(OpInsert, insertReadingSQL, r.DeviceID, reading.FormatDate(r.Time))
	status, err := t.execute(ctx, q)
	if err != nil {
		return status, err
	}
	r.ID = q.InsertID

	var errs []error
	for i, m := range r.Measurements() {
		q.set(OpInsert, insertMeasurementSQL, r.ID, m.SensorID, m.Value)
		st, err := t.execute(ctx, q)
		if st == StatusReconnected {
			status = st
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("measurement %d (sensor %d): %w", i, m.SensorID, err))
		}
	}
	return status, errors.Join(errs...)
}

// Get selects the entities of kind matching selector, which must be a
// ReadingSelector, DeviceSelector or SensorSelector respectively.
//
// Returns:
//   - Rows: a *ReadingResult, *DeviceResult or *SensorResult owning the
//     decoded entities; the caller must Close it
//   - error: ErrEmptyResult when nothing matched, ErrPayloadMismatch, or
//     an Execute error
func (t *Transport) Get(ctx context.Context, kind Kind, selector any) (Rows, error) {
	switch kind {
	case KindReading:
		sel, ok := selector.(ReadingSelector)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants ReadingSelector, got %T", ErrPayloadMismatch, kind, selector)
		}
		return t.GetReadings(ctx, sel)
	case KindDevice:
		sel, ok := selector.(DeviceSelector)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants DeviceSelector, got %T", ErrPayloadMismatch, kind, selector)
		}
		return t.GetDevices(ctx, sel)
	case KindSensor:
		sel, ok := selector.(SensorSelector)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants SensorSelector, got %T", ErrPayloadMismatch, kind, selector)
		}
		return t.GetSensors(ctx, sel)
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrPayloadMismatch, kind)
	}
}

// GetReadings selects stored readings with their measurements, oldest first.
func (t *Transport) GetReadings(ctx context.Context, sel ReadingSelector) (*ReadingResult, error) {
	var (
		where []string
		args  []any
	)
	if sel.DeviceID != 0 {
		where = append(where, "r.deviceID = ?")
		args = append(args, sel.DeviceID)
	}
	if sel.SensorID != 0 {
		where = append(where, "m.sensorID = ?")
		args = append(args, sel.SensorID)
	}
	if !sel.Since.IsZero() {
		where = append(where, "r.date >= ?")
		args = append(args, reading.FormatDate(sel.Since))
	}

	sink := newReadingSink(sel.Limit)
	q := &Query{Kind: KindReading, sink: sink}
	q.set(OpSelect, selectSQL(selectReadingsSQL, where, "r.readingID, m.measurementID"), args...)

	if err := t.get(ctx, q, sink.res); err != nil {
		return nil, err
	}
	return sink.res, nil
}

// GetDevices selects configured devices.
func (t *Transport) GetDevices(ctx context.Context, sel DeviceSelector) (*DeviceResult, error) {
	var (
		where []string
		args  []any
	)
	if sel.ID != 0 {
		where = append(where, "deviceID = ?")
		args = append(args, sel.ID)
	}

	sink := &deviceSink{res: newResult[*Device](nil)}
	q := &Query{Kind: KindDevice, sink: sink}
	q.set(OpSelect, selectSQL(selectDevicesSQL, where, "deviceID"), args...)

	if err := t.get(ctx, q, sink.res); err != nil {
		return nil, err
	}
	return sink.res, nil
}

// GetSensors selects configured sensors.
func (t *Transport) GetSensors(ctx context.Context, sel SensorSelector) (*SensorResult, error) {
	var (
		where []string
		args  []any
	)
	if sel.ID != 0 {
		where = append(where, "sensorID = ?")
		args = append(args, sel.ID)
	}
	if sel.DeviceID != 0 {
		where = append(where, "deviceID = ?")
		args = append(args, sel.DeviceID)
	}

	sink := &sensorSink{res: newResult[*Sensor](nil)}
	q := &Query{Kind: KindSensor, sink: sink}
	q.set(OpSelect, selectSQL(selectSensorsSQL, where, "sensorID"), args...)

	if err := t.get(ctx, q, sink.res); err != nil {
		return nil, err
	}
	return sink.res, nil
}

func (t *Transport) get(ctx context.Context, q *Query, res Rows) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.execute(ctx, q); err != nil {
		res.Close()
		return err
	}
	if res.Dropped() > 0 {
		t.log.Warn("result truncated", "kind", q.Kind.String(), "kept", res.Len(), "dropped", res.Dropped())
	}
	if res.Len() == 0 {
		return ErrEmptyResult
	}
	return nil
}

func selectSQL(base string, where []string, order string) string {
	var b strings.Builder
	b.WriteString(base)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(order)
	return b.String()
}

// Close closes the engine. Later calls return nil.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.engine == nil {
		t.closed = true
		return nil
	}
	t.closed = true
	if err := t.engine.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", t.engine.Name(), err)
	}
	t.log.Info("store closed")
	return nil
}
