package store

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// EngineKind selects a relational engine.
type EngineKind int

// Engines.
const (
	EngineNone EngineKind = iota
	EngineMySQL
	EngineSQLite
)

// String returns the configuration name of the engine.
func (k EngineKind) String() string {
	switch k {
	case EngineMySQL:
		return "mysql"
	case EngineSQLite:
		return "sqlite"
	default:
		return "none"
	}
}

// ParseEngine maps "MYSQL", "SQLITE" or "NONE" (any case) to an EngineKind.
func ParseEngine(s string) (EngineKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql":
		return EngineMySQL, nil
	case "sqlite", "sqlite3":
		return EngineSQLite, nil
	case "", "none":
		return EngineNone, nil
	default:
		return EngineNone, fmt.Errorf("%w: unknown engine %q", ErrConfig, s)
	}
}

// Config holds the connection settings of a Transport.
type Config struct {
	Engine EngineKind

	// DB is the MySQL database name or the SQLite file path.
	DB string

	// Host, User and Pass are used by MySQL. Host may carry a :port
	// suffix or be a unix socket path.
	Host string
	User string
	Pass string

	// WALMode, BusyTimeout (seconds) and Migrate are used by SQLite.
	WALMode     bool
	BusyTimeout int
	Migrate     bool
}

// ParseConfigLine applies one key=value line to cfg.
//
// Recognised keys are db, engine, host, user and pass. Any other key
// yields ErrNoMatch so the caller can offer the line to another handler.
//
// Returns:
//   - error: ErrNoMatch for unhandled lines, ErrConfig for a bad engine name
func ParseConfigLine(cfg *Config, line string) error {
	key, val, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return ErrNoMatch
	}
	val = strings.TrimSpace(val)

	switch strings.ToLower(strings.TrimSpace(key)) {
	case "db":
		cfg.DB = val
	case "engine":
		engine, err := ParseEngine(val)
		if err != nil {
			return err
		}
		cfg.Engine = engine
	case "host":
		cfg.Host = val
	case "user":
		cfg.User = val
	case "pass":
		cfg.Pass = val
	default:
		return ErrNoMatch
	}
	return nil
}

// LoadConfigLines applies every key=value line read from r to cfg.
// Blank lines and lines starting with # are skipped.
//
// Returns:
//   - []string: lines no handler matched, for the caller to route elsewhere
//   - error: read failures or ErrConfig
func LoadConfigLines(cfg *Config, r io.Reader) ([]string, error) {
	var unmatched []string

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch err := ParseConfigLine(cfg, line); {
		case err == ErrNoMatch:
			unmatched = append(unmatched, line)
		case err != nil:
			return unmatched, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return unmatched, fmt.Errorf("reading transport config: %w", err)
	}
	return unmatched, nil
}
