package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Op is the statement class of a Query.
type Op int

// Statement classes.
const (
	OpSelect Op = iota + 1
	OpInsert
	OpUpdate
	OpDelete
)

// String returns the SQL verb.
func (o Op) String() string {
	switch o {
	case OpSelect:
		return "select"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Query is one statement plus everything needed to run it and collect
// its outcome. A Query may be reused for several statements in sequence.
//
// Query is not safe for concurrent use.
type Query struct {
	Statement string
	Args      []any
	Op        Op
	Kind      Kind

	// InsertID is the identity assigned by the last successful insert.
	InsertID int64

	// RowsAffected is reported by the last successful non-select.
	RowsAffected int64

	// sink receives selected rows. Nil discards them.
	sink rowSink
}

// rowSink decodes selected rows into a result.
type rowSink interface {
	scan(rows *sql.Rows) error

	// reset discards rows gathered by a failed attempt.
	reset()
}

// set replaces the statement and arguments, keeping kind and sink.
func (q *Query) set(op Op, stmt string, args ...any) {
	q.Op = op
	q.Statement = stmt
	q.Args = args
	q.InsertID = 0
	q.RowsAffected = 0
}

func (q *Query) resetResult() {
	q.InsertID = 0
	q.RowsAffected = 0
	if q.sink != nil {
		q.sink.reset()
	}
}

// querier is satisfied by *sql.DB.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// runQuery executes q on db. Rows are always closed before it returns.
func runQuery(ctx context.Context, db querier, q *Query) error {
	if q.Op == OpSelect {
		rows, err := db.QueryContext(ctx, q.Statement, q.Args...)
		if err != nil {
			return fmt.Errorf("querying %s: %w", q.Kind, err)
		}
		defer rows.Close()

		if q.sink != nil {
			if err := q.sink.scan(rows); err != nil {
				return fmt.Errorf("scanning %s: %w", q.Kind, err)
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating %s: %w", q.Kind, err)
		}
		return nil
	}

	res, err := db.ExecContext(ctx, q.Statement, q.Args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", q.Op, q.Kind, err)
	}
	if q.Op == OpInsert {
		if id, err := res.LastInsertId(); err == nil {
			q.InsertID = id
		}
	}
	if n, err := res.RowsAffected(); err == nil {
		q.RowsAffected = n
	}
	return nil
}
