package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/sensorspace/internal/bounded"
	"github.com/nerrad567/sensorspace/internal/infrastructure/config"
	"github.com/nerrad567/sensorspace/internal/infrastructure/logging"
	"github.com/nerrad567/sensorspace/internal/reading"
)

// MaxBindings is the most bindings one Table holds.
const MaxBindings = 32

var (
	// ErrCapacityExceeded is returned by Bind on a full table.
	ErrCapacityExceeded = bounded.ErrCapacityExceeded

	// ErrInvalidBinding is returned for bindings without a target or
	// without any sensor reference.
	ErrInvalidBinding = errors.New("export: invalid binding")
)

// Binding routes one sensor's measurements to one target.
//
// SensorID is matched first. SensorName is consulted only when no
// measurement carries the id (or SensorID is zero).
type Binding struct {
	Target     string
	SensorID   uint32
	SensorName string
}

// String renders the binding as accepted by ParseBinding.
func (b Binding) String() string {
	ref := b.SensorName
	if b.SensorID != 0 {
		ref = strconv.FormatUint(uint64(b.SensorID), 10)
	}
	return b.Target + "=" + ref
}

// ParseBinding parses "target=sensor", where sensor is a numeric id or a
// measurement name.
//
// Example: "/var/lib/rrd/boiler.rrd=3"
func ParseBinding(s string) (Binding, error) {
	target, ref, ok := strings.Cut(s, "=")
	target, ref = strings.TrimSpace(target), strings.TrimSpace(ref)
	if !ok || target == "" || ref == "" {
		return Binding{}, fmt.Errorf("%w: %q is not target=sensor", ErrInvalidBinding, s)
	}

	b := Binding{Target: target}
	if id, err := strconv.ParseUint(ref, 10, 32); err == nil {
		b.SensorID = uint32(id)
	} else {
		b.SensorName = ref
	}
	return b, nil
}

// Sample is one value sent to a target.
type Sample struct {
	Time       time.Time
	Value      string
	SensorID   uint32
	SensorName string
}

// String returns the update text "epoch-seconds:value".
func (s Sample) String() string {
	return strconv.FormatInt(s.Time.Unix(), 10) + ":" + s.Value
}

// Sink delivers samples to targets.
type Sink interface {
	Update(ctx context.Context, target string, s Sample) error
}

// Table fans readings out to bound targets.
//
// Bind everything before the first Export; Export may then run from
// several goroutines if the Sink allows it.
type Table struct {
	bindings *bounded.List[Binding]
	sink     Sink
	log      *logging.Logger
}

// NewTable creates an empty table delivering to sink.
func NewTable(sink Sink, log *logging.Logger) *Table {
	if log == nil {
		log = logging.Nop()
	}
	return &Table{
		bindings: bounded.New[Binding](MaxBindings),
		sink:     sink,
		log:      log.With("component", "export"),
	}
}

// NewTableFromConfig creates a table with every binding in cfg.
func NewTableFromConfig(cfg []config.BindingConfig, sink Sink, log *logging.Logger) (*Table, error) {
	t := NewTable(sink, log)
	for i, bc := range cfg {
		if err := t.Bind(Binding{Target: bc.Target, SensorID: bc.SensorID, SensorName: bc.SensorName}); err != nil {
			return nil, fmt.Errorf("binding %d: %w", i, err)
		}
	}
	return t, nil
}

// Bind adds b to the table.
//
// Returns:
//   - error: ErrInvalidBinding, or ErrCapacityExceeded once MaxBindings
//     are held
func (t *Table) Bind(b Binding) error {
	if b.Target == "" || (b.SensorID == 0 && b.SensorName == "") {
		return fmt.Errorf("%w: %+v", ErrInvalidBinding, b)
	}
	return t.bindings.TryAppend(b)
}

// Len returns the number of bindings.
func (t *Table) Len() int { return t.bindings.Len() }

// Bindings returns the bindings in insertion order.
func (t *Table) Bindings() []Binding { return t.bindings.Items() }

// Export issues one update for every measurement of r that matches a
// binding. One measurement may reach several targets, and one binding may
// receive several measurements. A failed update is logged and the
// remaining updates still run. A reading without a time is exported at the
// current time.
//
// Returns:
//   - int: number of successful updates
func (t *Table) Export(ctx context.Context, r *reading.Reading) int {
	if r == nil || t.sink == nil {
		return 0
	}

	at := r.Time
	if at.IsZero() {
		at = time.Now()
	}

	bindings := t.bindings.Items()
	byName := make([]bool, len(bindings))
	for i, b := range bindings {
		byName[i] = b.SensorName != "" && (b.SensorID == 0 || !hasSensor(r, b.SensorID))
	}

	sent := 0
	for _, m := range r.Measurements() {
		for i, b := range bindings {
			if !matches(m, b, byName[i]) {
				continue
			}

			s := Sample{Time: at, Value: m.Value, SensorID: m.SensorID, SensorName: m.Name}
			if err := t.sink.Update(ctx, b.Target, s); err != nil {
				t.log.Warn("export update failed", "target", b.Target, "sensor_id", m.SensorID, "error", err)
				continue
			}
			t.log.Debug("exported", "target", b.Target, "sample", s.String())
			sent++
		}
	}
	return sent
}

// matches reports whether m belongs to b. byName is set when b falls back
// to its sensor name for this reading.
func matches(m *reading.Measurement, b Binding, byName bool) bool {
	if byName {
		return m.Name == b.SensorName
	}
	return b.SensorID != 0 && m.SensorID == b.SensorID
}

func hasSensor(r *reading.Reading, id uint32) bool {
	_, err := r.IndexBySensorID(id)
	return err == nil
}
