package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlDefaultPort = "3306"
	mysqlDialTimeout = 10 * time.Second
)

var errNotOpen = errors.New("engine not open")

// mysqlEngine is the MySQL engine. database/sql re-dials dropped connections on
// its own, so a reconnect is detected by the server connection id
// (the epoch) changing between probes.
type mysqlEngine struct {
	cfg   Config
	open  func(driverName, dsn string) (*sql.DB, error)
	db    *sql.DB
	epoch int64
}

func newMySQLEngine(cfg Config) *mysqlEngine {
	return &mysqlEngine{cfg: cfg, open: sql.Open}
}

func (e *mysqlEngine) Name() string { return EngineMySQL.String() }

// dsn builds the driver connection string. A Host starting with "/" is a
// unix socket; otherwise the default port is added when none is given.
func (e *mysqlEngine) dsn() string {
	mc := mysql.NewConfig()
	mc.User = e.cfg.User
	mc.Passwd = e.cfg.Pass
	mc.DBName = e.cfg.DB
	mc.Timeout = mysqlDialTimeout

	host := e.cfg.Host
	if host == "" {
		host = "localhost"
	}
	if strings.HasPrefix(host, "/") {
		mc.Net = "unix"
		mc.Addr = host
	} else {
		mc.Net = "tcp"
		if _, _, err := net.SplitHostPort(host); err != nil {
			host = net.JoinHostPort(host, mysqlDefaultPort)
		}
		mc.Addr = host
	}
	return mc.FormatDSN()
}

func (e *mysqlEngine) Open(ctx context.Context) error {
	db, err := e.open("mysql", e.dsn())
	if err != nil {
		return fmt.Errorf("opening mysql: %w", err)
	}
	// One connection, so CONNECTION_ID() describes the session every
	// statement runs on.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("pinging mysql: %w", err)
	}
	epoch, err := probeEpoch(ctx, db)
	if err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return err
	}

	e.db = db
	e.epoch = epoch
	return nil
}

func (e *mysqlEngine) Exec(ctx context.Context, q *Query) error {
	if e.db == nil {
		return errNotOpen
	}
	return runQuery(ctx, e.db, q)
}

// Reconnect pings, letting the pool re-dial, then compares epochs.
func (e *mysqlEngine) Reconnect(ctx context.Context) (Status, error) {
	if e.db == nil {
		if err := e.Open(ctx); err != nil {
			return StatusOK, err
		}
		return StatusReconnected, nil
	}
	if err := e.db.PingContext(ctx); err != nil {
		return StatusOK, fmt.Errorf("pinging mysql: %w", err)
	}
	epoch, err := probeEpoch(ctx, e.db)
	if err != nil {
		return StatusOK, err
	}
	if epoch != e.epoch {
		e.epoch = epoch
		return StatusReconnected, nil
	}
	return StatusOK, nil
}

func (e *mysqlEngine) Ping(ctx context.Context) error {
	if e.db == nil {
		return errNotOpen
	}
	return e.db.PingContext(ctx)
}

func (e *mysqlEngine) Close() error {
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	if err != nil {
		return fmt.Errorf("closing mysql: %w", err)
	}
	return nil
}

func probeEpoch(ctx context.Context, db *sql.DB) (int64, error) {
	var id int64
	if err := db.QueryRowContext(ctx, "SELECT CONNECTION_ID()").Scan(&id); err != nil {
		return 0, fmt.Errorf("probing mysql connection id: %w", err)
	}
	return id, nil
}
