package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/sensorspace/internal/codec"
	"github.com/nerrad567/sensorspace/internal/export"
	"github.com/nerrad567/sensorspace/internal/infrastructure/config"
	"github.com/nerrad567/sensorspace/internal/infrastructure/influxdb"
	"github.com/nerrad567/sensorspace/internal/infrastructure/logging"
	"github.com/nerrad567/sensorspace/internal/infrastructure/metrics"
	"github.com/nerrad567/sensorspace/internal/infrastructure/mqtt"
	"github.com/nerrad567/sensorspace/internal/ingest"
	"github.com/nerrad567/sensorspace/internal/store"
)

// ErrNoSink is returned when export bindings exist but no sink is configured.
var ErrNoSink = errors.New("cli: export bindings need a sink")

type ingestOptions struct {
	Binds       []string
	Sink        string
	Format      string
	MetricsAddr string
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Subscribe to MQTT readings, store and export them",
		Long: `Subscribe to the configured MQTT topic and run every payload through
the ingest pipeline: decode, validate, post to the store and export to the
bound time-series targets. Runs until interrupted.

Bindings from the config file can be extended on the command line:

  sensorspace ingest --sink rrdtool --bind /var/lib/rrd/flow.rrd=3 --bind boiler.rrd=return`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd.Context(), rootOpts, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Binds, "bind", "b", nil, "export binding target=sensor-id|sensor-name (repeatable)")
	cmd.Flags().StringVar(&opts.Sink, "sink", "", "export sink override (file|rrdtool|influxdb)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "payload format override (json|ini|cc128)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func runIngest(ctx context.Context, rootOpts *RootOptions, opts *ingestOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(rootOpts)
	if err != nil {
		return err
	}
	if opts.Sink != "" {
		cfg.Export.Sink = opts.Sink
	}
	if opts.Format != "" {
		cfg.MQTT.Format = opts.Format
	}
	if opts.MetricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Listen = opts.MetricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	log := newLogger(rootOpts, cfg, nil)
	log.Info("starting ingest", "version", rootOpts.Version)

	// Store
	scfg, err := storeConfig(cfg.Database, log)
	if err != nil {
		return err
	}
	var poster ingest.Poster
	var storeHealth metrics.HealthFunc
	if scfg.Engine != store.EngineNone {
		transport, err := store.New(scfg, log)
		if err != nil {
			return err
		}
		if err := transport.Connect(ctx); err != nil {
			return fmt.Errorf("connecting store: %w", err)
		}
		defer func() {
			log.Info("closing store")
			if closeErr := transport.Close(); closeErr != nil {
				log.Error("error closing store", "error", closeErr)
			}
		}()
		log.Info("store connected", "engine", scfg.Engine.String(), "db", scfg.DB)
		poster = transport
		storeHealth = transport.HealthCheck
	} else {
		log.Info("store disabled")
	}

	// InfluxDB (optional)
	var writer export.SampleWriter
	var mirror ingest.ReadingWriter
	var influxHealth metrics.HealthFunc
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

		writer = influxClient
		influxHealth = influxClient.HealthCheck
		// Readings are mirrored whole unless the export table already
		// writes to InfluxDB sample by sample.
		if !strings.EqualFold(cfg.Export.Sink, "influxdb") {
			mirror = influxClient
		}
	}

	// Export
	table, err := buildTable(cfg.Export, opts.Binds, writer, log)
	if err != nil {
		return err
	}
	var exporter ingest.Exporter
	if table != nil {
		exporter = table
		log.Info("export enabled", "sink", cfg.Export.Sink, "bindings", table.Len())
	}

	// Metrics (optional)
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	pipeline, err := ingest.New(ingest.Options{
		Format:  codec.Format(cfg.MQTT.Format),
		CC128:   codec.CC128{TempSensorID: cfg.MQTT.CC128TempSensorID},
		Store:   poster,
		Export:  exporter,
		Mirror:  mirror,
		Metrics: m,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	// MQTT
	mqttClient, err := mqtt.Connect(ctx, cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	if m != nil {
		health := metrics.AllHealthy(mqttClient.HealthCheck, storeHealth, influxHealth)
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Listen, health); err != nil {
				log.Error("metrics server error", "error", err)
			}
		}()
		log.Info("metrics enabled", "listen", cfg.Metrics.Listen)
	}

	qos := byte(cfg.MQTT.QoS) // #nosec G115 -- validated to 0..2
	if err := mqttClient.Subscribe(ctx, cfg.MQTT.Topic, qos, pipeline.Handler(ctx)); err != nil {
		return fmt.Errorf("subscribing to %s: %w", cfg.MQTT.Topic, err)
	}
	log.Info("ingest running",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"topic", cfg.MQTT.Topic,
		"format", cfg.MQTT.Format,
	)

	<-ctx.Done()

	stats := pipeline.Stats()
	log.Info("shutdown signal received, cleaning up",
		"received", stats.Received,
		"rejected", stats.Rejected,
		"stored", stats.Stored,
		"exported", stats.Exported,
		"store_errors", stats.StoreErrs,
	)
	return nil
}

// storeConfig converts the database section into a store configuration,
// applying the optional transport file on top. Unrecognised transport file
// lines are logged and skipped.
func storeConfig(db config.DatabaseConfig, log *logging.Logger) (store.Config, error) {
	engine, err := store.ParseEngine(db.Engine)
	if err != nil {
		return store.Config{}, err
	}
	cfg := store.Config{
		Engine:      engine,
		DB:          db.DB,
		Host:        db.Host,
		User:        db.User,
		Pass:        db.Pass,
		WALMode:     db.WALMode,
		BusyTimeout: db.BusyTimeout,
		Migrate:     db.Migrate,
	}
	if db.TransportFile == "" {
		return cfg, nil
	}

	f, err := os.Open(db.TransportFile)
	if err != nil {
		return store.Config{}, fmt.Errorf("%w: opening transport file: %w", store.ErrConfig, err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	unmatched, err := store.LoadConfigLines(&cfg, f)
	if err != nil {
		return store.Config{}, fmt.Errorf("transport file %s: %w", db.TransportFile, err)
	}
	for _, line := range unmatched {
		log.Warn("ignoring transport file line", "file", db.TransportFile, "line", line)
	}
	return cfg, nil
}

// buildTable creates the export table from the config bindings plus the
// --bind flags. It returns nil when no sink is configured and nothing is
// bound.
func buildTable(cfg config.ExportConfig, binds []string, writer export.SampleWriter, log *logging.Logger) (*export.Table, error) {
	sink, err := export.NewSink(cfg, writer)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		if len(cfg.Bindings) > 0 || len(binds) > 0 {
			return nil, ErrNoSink
		}
		return nil, nil
	}

	table, err := export.NewTableFromConfig(cfg.Bindings, sink, log)
	if err != nil {
		return nil, err
	}
	for _, s := range binds {
		b, err := export.ParseBinding(s)
		if err != nil {
			return nil, err
		}
		if err := table.Bind(b); err != nil {
			return nil, fmt.Errorf("--bind %s: %w", s, err)
		}
	}
	return table, nil
}
