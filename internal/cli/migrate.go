package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/sensorspace/internal/infrastructure/config"
	"github.com/nerrad567/sensorspace/internal/infrastructure/database"
	"github.com/nerrad567/sensorspace/migrations"
)

type migrateOptions struct {
	Down   bool
	Status bool
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQLite schema",
		Long: `Apply pending migrations to the SQLite database named by database.db.

The MySQL schema ships as migrations/mysql/schema.sql and is applied by
the database administrator.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			return runMigrate(cmd.Context(), cfg.Database, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.Down, "down", false, "roll back the most recent migration")
	cmd.Flags().BoolVar(&opts.Status, "status", false, "list applied and pending migrations")

	return cmd
}

func runMigrate(ctx context.Context, cfg config.DatabaseConfig, opts *migrateOptions, out io.Writer) error {
	if !strings.HasPrefix(strings.ToLower(cfg.Engine), "sqlite") {
		return fmt.Errorf("migrate supports the sqlite engine only, got %q", cfg.Engine)
	}

	db, err := database.Open(database.Config{
		Path:        cfg.DB,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // nothing left to flush after migrations

	switch {
	case opts.Status:
		applied, pending, err := db.MigrationStatus(ctx, migrations.FS)
		if err != nil {
			return err
		}
		for _, m := range applied {
			fmt.Fprintf(out, "applied  %s  %s\n", m.Version, m.AppliedAt.Format("2006-01-02 15:04:05"))
		}
		for _, m := range pending {
			fmt.Fprintf(out, "pending  %s  %s\n", m.Version, m.Name)
		}
		return nil

	case opts.Down:
		if err := db.MigrateDown(ctx, migrations.FS); err != nil {
			return fmt.Errorf("rolling back: %w", err)
		}
		fmt.Fprintln(out, "rolled back one migration")
		return nil

	default:
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		fmt.Fprintln(out, "migrations complete")
		return nil
	}
}
