package reading

import (
	"fmt"
	"time"
)

// DateLayout is the canonical text form of a reading timestamp, shared by
// the relational stores and the JSON and INI wire formats.
const DateLayout = "2006-01-02 15:04:05"

// FormatDate renders t in DateLayout using t's own location.
// A zero time renders as an empty string.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseDate parses text in the YYYY-MM-DD HH:MM:SS layout as local time.
//
// The text is scanned as six delimiter-bounded integers and each field is
// range checked. On any failure the zero time is returned, never a
// partially filled date.
//
// Returns:
//   - time.Time: parsed date in time.Local
//   - error: ErrInvalidDate wrapped with the offending field
func ParseDate(s string) (time.Time, error) {
	type field struct {
		name     string
		delim    byte
		min, max int
	}
	fields := [...]field{
		{"year", '-', 1, 9999},
		{"month", '-', 1, 12},
		{"day", ' ', 1, 31},
		{"hour", ':', 0, 23},
		{"minute", ':', 0, 59},
		{"second", 0, 0, 59},
	}

	var vals [len(fields)]int
	pos := 0
	for i, f := range fields {
		v, next, ok := scanInt(s, pos)
		if !ok {
			return time.Time{}, fmt.Errorf("%w: %s in %q", ErrInvalidDate, f.name, s)
		}
		if v < f.min || v > f.max {
			return time.Time{}, fmt.Errorf("%w: %s %d out of range", ErrInvalidDate, f.name, v)
		}
		vals[i] = v
		pos = next

		if f.delim == 0 {
			break
		}
		if pos >= len(s) || s[pos] != f.delim {
			return time.Time{}, fmt.Errorf("%w: expected %q after %s", ErrInvalidDate, f.delim, f.name)
		}
		pos++
	}
	if pos != len(s) {
		return time.Time{}, fmt.Errorf("%w: trailing text in %q", ErrInvalidDate, s)
	}

	t := time.Date(vals[0], time.Month(vals[1]), vals[2], vals[3], vals[4], vals[5], 0, time.Local)
	if t.Day() != vals[2] {
		// time.Date normalises Feb 30 into March.
		return time.Time{}, fmt.Errorf("%w: day %d out of range", ErrInvalidDate, vals[2])
	}
	return t, nil
}

// scanInt reads a run of ASCII digits starting at pos.
func scanInt(s string, pos int) (v, next int, ok bool) {
	start := pos
	for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' && pos-start < 9 {
		v = v*10 + int(s[pos]-'0')
		pos++
	}
	return v, pos, pos > start
}
