package codec

import (
	"fmt"
	"strings"

	"github.com/nerrad567/sensorspace/internal/reading"
)

// Format names a wire format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatINI   Format = "ini"
	FormatCC128 Format = "cc128"
)

// ParseFormat maps a case-insensitive format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatINI, FormatCC128:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Decode fills r from buf using format f. CC128 frames are decoded with
// a zero-valued CC128 decoder.
func Decode(f Format, r *reading.Reading, buf []byte) error {
	switch f {
	case FormatJSON:
		return DecodeJSON(r, buf)
	case FormatINI:
		return DecodeINI(r, buf)
	case FormatCC128:
		return CC128{}.Decode(r, buf)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// Append appends the encoding of r in format f to dst.
func Append(f Format, dst []byte, r *reading.Reading) ([]byte, error) {
	switch f {
	case FormatJSON:
		return AppendJSON(dst, r), nil
	case FormatINI:
		return AppendINI(dst, r), nil
	default:
		return dst, fmt.Errorf("%w: cannot encode %q", ErrUnknownFormat, f)
	}
}
