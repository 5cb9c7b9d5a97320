package store

import "context"

// Status qualifies a successful Execute.
type Status int

const (
	// StatusOK means the statement ran on the existing connection.
	StatusOK Status = iota

	// StatusReconnected means the connection was re-established before
	// the statement succeeded. Session state from earlier calls is gone.
	StatusReconnected
)

// String returns the status name.
func (s Status) String() string {
	if s == StatusReconnected {
		return "reconnected"
	}
	return "ok"
}

// Engine is a relational backend driven by a Transport.
//
// Implementations need not be safe for concurrent use; the Transport
// serializes every call.
type Engine interface {
	// Name identifies the engine in logs.
	Name() string

	// Open establishes the connection.
	Open(ctx context.Context) error

	// Exec runs q, filling its outcome fields or its result.
	Exec(ctx context.Context, q *Query) error

	// Reconnect restores a usable connection after a failed Exec.
	Reconnect(ctx context.Context) (Status, error)

	// Ping checks the connection without reconnecting.
	Ping(ctx context.Context) error

	// Close releases the connection. It is safe to call more than once.
	Close() error
}
