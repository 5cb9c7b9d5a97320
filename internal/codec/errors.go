package codec

import "errors"

// Codec errors. Decoders wrap these with position or field detail.
var (
	// ErrMalformed is returned when input cannot be parsed.
	ErrMalformed = errors.New("codec: malformed input")

	// ErrNoMatch is returned when a key, element or message is not present.
	ErrNoMatch = errors.New("codec: no match")

	// ErrIndexOutOfRange is returned when an array element past the end is requested.
	ErrIndexOutOfRange = errors.New("codec: array index out of range")

	// ErrMultipleReadings is returned when one INI buffer holds more than one record.
	ErrMultipleReadings = errors.New("codec: multiple readings unsupported")

	// ErrWrite is returned when an encoded reading does not fit the caller's buffer.
	ErrWrite = errors.New("codec: write error")

	// ErrUnknownFormat is returned for a format name with no codec.
	ErrUnknownFormat = errors.New("codec: unknown format")
)
