// Package database provides the SQLite handle behind the file-backed
// reading store.
//
// It manages:
//   - Opening the database file with WAL mode and a busy timeout
//   - A single-connection pool (SQLite has one writer)
//   - Schema migrations loaded from an fs.FS
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/sensorspace.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// All statements use ? placeholders; never build SQL from reading text.
package database
