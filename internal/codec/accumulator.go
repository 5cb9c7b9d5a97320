package codec

import "bytes"

// DefaultAccumulatorLimit bounds the bytes an Accumulator buffers.
const DefaultAccumulatorLimit = 4096

// Accumulator buffers partial reads from a byte stream and yields
// complete frames delimited by a start and an end marker.
//
// It is not safe for concurrent use. The zero value is unusable; create
// one with NewAccumulator or NewCC128Accumulator.
type Accumulator struct {
	start, end []byte
	limit      int
	buf        []byte
	dropped    int
}

// NewAccumulator creates an Accumulator for frames that begin with start
// and finish with end. At most limit bytes are buffered; older bytes are
// dropped when a frame never completes.
func NewAccumulator(start, end []byte, limit int) *Accumulator {
	if limit <= 0 {
		limit = DefaultAccumulatorLimit
	}
	return &Accumulator{start: start, end: end, limit: limit}
}

// NewCC128Accumulator creates an Accumulator for CurrentCost <msg>
// frames. A limit of zero or less selects DefaultAccumulatorLimit.
func NewCC128Accumulator(limit int) *Accumulator {
	return NewAccumulator([]byte("<msg>"), []byte("</msg>"), limit)
}

// Write appends p to the buffer. It never fails, so an Accumulator can
// sit behind io.Copy.
func (a *Accumulator) Write(p []byte) (int, error) {
	a.buf = append(a.buf, p...)
	if over := len(a.buf) - a.limit; over > 0 {
		a.buf = append(a.buf[:0], a.buf[over:]...)
		a.dropped += over
	}
	return len(p), nil
}

// Next removes and returns the next complete frame, end marker included.
// Bytes before a frame's start marker are discarded.
func (a *Accumulator) Next() ([]byte, bool) {
	i := bytes.Index(a.buf, a.start)
	if i < 0 {
		// Keep a tail that could be the beginning of a split start marker.
		if keep := len(a.start) - 1; len(a.buf) > keep {
			a.dropped += len(a.buf) - keep
			a.buf = append(a.buf[:0], a.buf[len(a.buf)-keep:]...)
		}
		return nil, false
	}
	if i > 0 {
		a.dropped += i
		a.buf = append(a.buf[:0], a.buf[i:]...)
	}

	j := bytes.Index(a.buf[len(a.start):], a.end)
	if j < 0 {
		return nil, false
	}
	n := len(a.start) + j + len(a.end)

	frame := bytes.Clone(a.buf[:n])
	a.buf = append(a.buf[:0], a.buf[n:]...)
	return frame, true
}

// Buffered returns the number of bytes waiting for a complete frame.
func (a *Accumulator) Buffered() int { return len(a.buf) }

// Dropped returns the number of bytes discarded so far.
func (a *Accumulator) Dropped() int { return a.dropped }

// Reset discards any buffered bytes.
func (a *Accumulator) Reset() {
	a.buf = a.buf[:0]
}
