package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nerrad567/sensorspace/internal/infrastructure/config"
	"github.com/nerrad567/sensorspace/internal/infrastructure/logging"
)

// configEnv names the environment variable consulted when --config is not given.
const configEnv = "SENSORSPACE_CONFIG"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Version    string
}

// NewRootCommand creates the root command of the sensorspace CLI.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Version: version}

	cmd := &cobra.Command{
		Use:           "sensorspace",
		Short:         "sensorspace - sensor telemetry ingest and storage",
		Long:          "Decode sensor readings, store them in SQLite or MySQL and fan them out to time-series targets.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config.yaml (default $"+configEnv+")")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewConvertCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// loadConfig loads the configuration named by --config or $SENSORSPACE_CONFIG.
// With neither set, defaults and environment overrides apply.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv(configEnv)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the command logger. A nil w writes to the configured output.
func newLogger(opts *RootOptions, cfg *config.Config, w io.Writer) *logging.Logger {
	if w == nil {
		return logging.New(cfg.Logging, opts.Version)
	}
	return logging.NewWithWriter(w, cfg.Logging, opts.Version)
}
