// Package migrations embeds the SQLite schema for sensorspace.
//
// Files follow the YYYYMMDD_HHMMSS_name.{up,down}.sql convention read by
// database.LoadMigrations and sit at the root of FS.
package migrations

import "embed"

// FS holds every migration file.
//
//go:embed *.sql
var FS embed.FS
