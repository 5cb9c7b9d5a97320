package store

import (
	"errors"

	"github.com/nerrad567/sensorspace/internal/bounded"
)

// Transport errors.
//
// Allocation failure has no counterpart: the Go runtime treats it as fatal.
var (
	// ErrInit is returned when an engine cannot be opened.
	ErrInit = errors.New("store: init error")

	// ErrConnection is returned when an engine is unreachable and the
	// reconnect attempt also failed.
	ErrConnection = errors.New("store: connection error")

	// ErrPost is returned when a write fails after its single retry.
	ErrPost = errors.New("store: post error")

	// ErrGet is returned when a read fails after its single retry.
	ErrGet = errors.New("store: get error")

	// ErrConfig is returned when no engine is selected or a config value is invalid.
	ErrConfig = errors.New("store: config error")

	// ErrEmptyResult is returned by Get when the query matched no rows.
	// It is not an execution failure.
	ErrEmptyResult = errors.New("store: empty result")

	// ErrNoMatch is returned by ParseConfigLine for keys it does not handle.
	ErrNoMatch = errors.New("store: no match")

	// ErrPayloadMismatch is returned when an entity does not suit the payload kind.
	ErrPayloadMismatch = errors.New("store: payload does not match kind")

	// ErrClosed is returned when a closed Transport is used.
	ErrClosed = errors.New("store: transport closed")

	// ErrCapacityExceeded marks a full result table.
	ErrCapacityExceeded = bounded.ErrCapacityExceeded
)
