package store

import (
	"context"
	"fmt"

	"github.com/nerrad567/sensorspace/internal/infrastructure/database"
	"github.com/nerrad567/sensorspace/migrations"
)

// sqliteEngine is the SQLite engine, a file-backed database.
type sqliteEngine struct {
	cfg Config
	db  *database.DB
}

func newSQLiteEngine(cfg Config) *sqliteEngine {
	return &sqliteEngine{cfg: cfg}
}

func (e *sqliteEngine) Name() string { return EngineSQLite.String() }

func (e *sqliteEngine) Open(ctx context.Context) error {
	db, err := database.Open(database.Config{
		Path:        e.cfg.DB,
		WALMode:     e.cfg.WALMode,
		BusyTimeout: e.cfg.BusyTimeout,
	})
	if err != nil {
		return err
	}
	if e.cfg.Migrate {
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			db.Close() //nolint:errcheck // Best effort cleanup on error path
			return fmt.Errorf("migrating %s: %w", db.Path(), err)
		}
	}
	e.db = db
	return nil
}

func (e *sqliteEngine) Exec(ctx context.Context, q *Query) error {
	if e.db == nil || e.db.DB == nil {
		return errNotOpen
	}
	return runQuery(ctx, e.db.DB, q)
}

// Reconnect always reopens the file.
func (e *sqliteEngine) Reconnect(ctx context.Context) (Status, error) {
	if err := e.Close(); err != nil {
		return StatusOK, err
	}
	if err := e.Open(ctx); err != nil {
		return StatusOK, err
	}
	return StatusReconnected, nil
}

func (e *sqliteEngine) Ping(ctx context.Context) error {
	if e.db == nil || e.db.DB == nil {
		return errNotOpen
	}
	return e.db.HealthCheck(ctx)
}

func (e *sqliteEngine) Close() error {
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}
