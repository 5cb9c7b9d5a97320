// sensorspace - sensor telemetry ingest and storage
//
// This is the main entry point for the sensorspace command. It decodes
// sensor readings (JSON, INI or CurrentCost CC128), stores them in SQLite
// or MySQL and fans measurements out to file, rrdtool or InfluxDB targets.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/sensorspace/internal/cli"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
)

func main() {
	// Cancel on Ctrl+C and SIGTERM so ingest shuts down cleanly.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the command line in args.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command line arguments without the program name
//
// Returns:
//   - error: nil on success or clean shutdown
func run(ctx context.Context, args []string) error {
	cmd := cli.NewRootCommand(version + " (" + commit + ")")
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
