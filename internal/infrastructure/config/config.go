package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// MaxExportBindings is the most export bindings a configuration may declare.
const MaxExportBindings = 32

// Config is the root configuration structure for sensorspace.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig selects and configures the reading store.
type DatabaseConfig struct {
	// Engine is "none", "sqlite" or "mysql".
	Engine string `yaml:"engine"`

	// DB is the SQLite file path or the MySQL database name.
	DB string `yaml:"db"`

	// Host, User and Pass are used by the mysql engine only.
	Host string `yaml:"host"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`

	// WALMode and BusyTimeout (seconds) are used by the sqlite engine only.
	WALMode     bool `yaml:"wal_mode"`
	BusyTimeout int  `yaml:"busy_timeout"`

	// Migrate applies the embedded schema when the sqlite engine opens.
	Migrate bool `yaml:"migrate"`

	// TransportFile is an optional file of key=value lines (db=, engine=,
	// host=, user=, pass=) applied on top of this section.
	TransportFile string `yaml:"transport_file"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// Topic is the subscription filter for inbound readings.
	Topic string `yaml:"topic"`

	// Format is the payload format of inbound readings: json, ini or
	// cc128.
	Format string `yaml:"format"`

	// CC128TempSensorID is the sensor id given to the thermometer of a
	// CurrentCost monitor. Required when Format is cc128; the device id
	// comes from the topic.
	CC128TempSensorID uint32 `yaml:"cc128_temp_sensor_id"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// ExportConfig configures the time-series fan-out.
type ExportConfig struct {
	// Sink is "file", "rrdtool", "influxdb" or empty to disable export.
	Sink string `yaml:"sink"`

	// RRDToolBinary is the rrdtool executable used by the rrdtool sink.
	RRDToolBinary string `yaml:"rrdtool_binary"`

	Bindings []BindingConfig `yaml:"bindings"`
}

// BindingConfig maps one sensor to one export target.
// SensorID is matched first; SensorName is used when no id matches.
type BindingConfig struct {
	Target     string `yaml:"target"`
	SensorID   uint32 `yaml:"sensor_id"`
	SensorName string `yaml:"sensor_name"`
}

// MetricsConfig controls the Prometheus /metrics endpoint of ingest.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults), skipped when path is empty
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SENSORSPACE_SECTION_KEY
// For example: SENSORSPACE_DATABASE_DB, SENSORSPACE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for defaults only
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.MQTT.Broker.ClientID == "" {
		cfg.MQTT.Broker.ClientID = "sensorspace-" + uuid.NewString()[:8]
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Engine:      "sqlite",
			DB:          "./data/sensorspace.db",
			WALMode:     true,
			BusyTimeout: 5,
			Migrate:     true,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			Topic:  "sensorspace/reading/#",
			Format: "json",
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Export: ExportConfig{
			RRDToolBinary: "rrdtool",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Listen: ":2112",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SENSORSPACE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env string
		dst *string
	}{
		{"SENSORSPACE_DATABASE_ENGINE", &cfg.Database.Engine},
		{"SENSORSPACE_DATABASE_DB", &cfg.Database.DB},
		{"SENSORSPACE_DATABASE_HOST", &cfg.Database.Host},
		{"SENSORSPACE_DATABASE_USER", &cfg.Database.User},
		{"SENSORSPACE_DATABASE_PASS", &cfg.Database.Pass},
		{"SENSORSPACE_MQTT_HOST", &cfg.MQTT.Broker.Host},
		{"SENSORSPACE_MQTT_USERNAME", &cfg.MQTT.Auth.Username},
		{"SENSORSPACE_MQTT_PASSWORD", &cfg.MQTT.Auth.Password},
		{"SENSORSPACE_MQTT_TOPIC", &cfg.MQTT.Topic},
		{"SENSORSPACE_INFLUXDB_TOKEN", &cfg.InfluxDB.Token},
		{"SENSORSPACE_LOG_LEVEL", &cfg.Logging.Level},
		{"SENSORSPACE_METRICS_LISTEN", &cfg.Metrics.Listen},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}

	if v := os.Getenv("SENSORSPACE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
}

// Validate checks the configuration for errors.
//
// Every problem is collected so one run reports them all.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Database.Engine) {
	case "", "none":
	case "sqlite":
		if c.Database.DB == "" {
			errs = append(errs, "database.db is required for the sqlite engine")
		}
	case "mysql":
		if c.Database.DB == "" || c.Database.Host == "" {
			errs = append(errs, "database.db and database.host are required for the mysql engine")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.engine %q must be none, sqlite or mysql", c.Database.Engine))
	}
	if c.Database.BusyTimeout < 0 {
		errs = append(errs, "database.busy_timeout must not be negative")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	switch strings.ToLower(c.MQTT.Format) {
	case "", "json", "ini":
	case "cc128":
		if c.MQTT.CC128TempSensorID == 0 {
			errs = append(errs, "mqtt.cc128_temp_sensor_id is required for the cc128 format")
		}
	default:
		errs = append(errs, fmt.Sprintf("mqtt.format %q must be json, ini or cc128", c.MQTT.Format))
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required when influxdb is enabled")
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, "metrics.listen is required when metrics is enabled")
	}

	switch strings.ToLower(c.Export.Sink) {
	case "", "file", "rrdtool":
	case "influxdb":
		if !c.InfluxDB.Enabled {
			errs = append(errs, "export.sink influxdb requires influxdb.enabled")
		}
	default:
		errs = append(errs, fmt.Sprintf("export.sink %q must be file, rrdtool or influxdb", c.Export.Sink))
	}
	if len(c.Export.Bindings) > MaxExportBindings {
		errs = append(errs, fmt.Sprintf("export.bindings allows at most %d entries", MaxExportBindings))
	}
	for i, b := range c.Export.Bindings {
		if b.Target == "" {
			errs = append(errs, fmt.Sprintf("export.bindings[%d].target is required", i))
		}
		if b.SensorID == 0 && b.SensorName == "" {
			errs = append(errs, fmt.Sprintf("export.bindings[%d] needs sensor_id or sensor_name", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// FlushInterval returns the InfluxDB flush interval as a Duration.
func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.InfluxDB.FlushInterval) * time.Second
}
