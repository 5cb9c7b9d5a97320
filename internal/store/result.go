package store

import (
	"database/sql"

	"github.com/nerrad567/sensorspace/internal/bounded"
	"github.com/nerrad567/sensorspace/internal/reading"
)

// MaxResults is the most entities one result holds. Further rows are
// dropped and counted.
const MaxResults = 2048

// Rows is the kind-independent view of a result.
type Rows interface {
	Len() int
	Dropped() int
	Close()
}

// Result owns the entities decoded by a select. Close releases them.
type Result[T any] struct {
	items   *bounded.List[T]
	dropped int
	release func(T)
}

// Result aliases for each payload kind.
type (
	ReadingResult = Result[*reading.Reading]
	DeviceResult  = Result[*Device]
	SensorResult  = Result[*Sensor]
)

func newResult[T any](release func(T)) *Result[T] {
	return &Result[T]{items: bounded.New[T](MaxResults), release: release}
}

// add stores v, or drops it when the result is full.
func (r *Result[T]) add(v T) bool {
	if err := r.items.TryAppend(v); err != nil {
		r.dropped++
		if r.release != nil {
			r.release(v)
		}
		return false
	}
	return true
}

// Len returns the number of entities held.
func (r *Result[T]) Len() int { return r.items.Len() }

// Items returns the held entities in row order.
func (r *Result[T]) Items() []T { return r.items.Items() }

// Dropped returns how many entities did not fit. For readings it also
// counts measurements beyond reading.MaxMeasurements.
func (r *Result[T]) Dropped() int { return r.dropped }

// Close releases every held entity. The result is empty afterwards and
// Close may be called again.
func (r *Result[T]) Close() {
	if r == nil {
		return
	}
	if r.release != nil {
		for _, v := range r.items.Items() {
			r.release(v)
		}
	}
	r.items.Reset()
	r.dropped = 0
}

// readingSink groups joined reading/measurement rows by readingID.
// Rows must arrive ordered by readingID.
type readingSink struct {
	res   *ReadingResult
	limit int

	lastID  int64
	current *reading.Reading
	skip    bool
	seen    int
}

func newReadingSink(limit int) *readingSink {
	return &readingSink{
		res:   newResult(func(r *reading.Reading) { r.Release() }),
		limit: limit,
	}
}

func (s *readingSink) scan(rows *sql.Rows) error {
	for rows.Next() {
		var (
			id       int64
			deviceID uint32
			date     string
			sensorID sql.NullInt64
			value    sql.NullString
		)
		if err := rows.Scan(&id, &deviceID, &date, &sensorID, &value); err != nil {
			return err
		}

		if s.current == nil || id != s.lastID {
			s.lastID = id
			s.seen++
			s.current = nil
			s.skip = s.limit > 0 && s.seen > s.limit
			if s.skip {
				continue
			}

			r := reading.New()
			r.ID = id
			r.DeviceID = deviceID
			r.Time, _ = reading.ParseDate(date) //nolint:errcheck // Unparseable dates stay unset
			if !s.res.add(r) {
				s.skip = true
				continue
			}
			s.current = r
		}
		if s.skip || s.current == nil || !sensorID.Valid {
			continue
		}

		m := reading.Measurement{SensorID: uint32(sensorID.Int64), Value: value.String}
		if _, err := s.current.Append(m); err != nil {
			s.res.dropped++
		}
	}
	return nil
}

func (s *readingSink) reset() {
	s.res.Close()
	s.lastID, s.current, s.skip, s.seen = 0, nil, false, 0
}

type deviceSink struct{ res *DeviceResult }

func (s *deviceSink) scan(rows *sql.Rows) error {
	for rows.Next() {
		d := &Device{}
		if err := rows.Scan(&d.ID, &d.Name, &d.Description); err != nil {
			return err
		}
		s.res.add(d)
	}
	return nil
}

func (s *deviceSink) reset() { s.res.Close() }

type sensorSink struct{ res *SensorResult }

func (s *sensorSink) scan(rows *sql.Rows) error {
	for rows.Next() {
		var typ int
		sn := &Sensor{}
		if err := rows.Scan(&sn.ID, &sn.DeviceID, &sn.Name, &typ); err != nil {
			return err
		}
		sn.Type = reading.MeasType(typ)
		s.res.add(sn)
	}
	return nil
}

func (s *sensorSink) reset() { s.res.Close() }
