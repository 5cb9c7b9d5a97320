package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  engine: "mysql"
  db: "sensorspace"
  host: "db.local"
  user: "ss"
mqtt:
  broker:
    host: "broker.local"
    port: 1883
    client_id: "test-client"
  qos: 1
  format: "ini"
export:
  sink: "file"
  bindings:
    - target: "/var/lib/ss/hall.log"
      sensor_id: 4
    - target: "/var/lib/ss/loft.log"
      sensor_name: "Loft"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Engine != "mysql" || cfg.Database.Host != "db.local" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.MQTT.Broker.ClientID != "test-client" {
		t.Errorf("MQTT.Broker.ClientID = %q, want %q", cfg.MQTT.Broker.ClientID, "test-client")
	}
	if cfg.MQTT.Format != "ini" {
		t.Errorf("MQTT.Format = %q, want ini", cfg.MQTT.Format)
	}
	if len(cfg.Export.Bindings) != 2 || cfg.Export.Bindings[1].SensorName != "Loft" {
		t.Errorf("Export.Bindings = %+v", cfg.Export.Bindings)
	}
	// Untouched sections keep defaults.
	if cfg.MQTT.Topic != "sensorspace/reading/#" {
		t.Errorf("MQTT.Topic = %q, want default", cfg.MQTT.Topic)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Database.Engine != "sqlite" {
		t.Errorf("Database.Engine = %q, want sqlite", cfg.Database.Engine)
	}
	if cfg.Metrics.Enabled || cfg.Metrics.Listen != ":2112" {
		t.Errorf("Metrics = %+v, want disabled on :2112", cfg.Metrics)
	}
	if !strings.HasPrefix(cfg.MQTT.Broker.ClientID, "sensorspace-") {
		t.Errorf("MQTT.Broker.ClientID = %q, want generated sensorspace- prefix", cfg.MQTT.Broker.ClientID)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "database: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(*Config) {},
		},
		{
			name:   "no engine is valid",
			modify: func(c *Config) { c.Database.Engine = "none" },
		},
		{
			name:    "unknown engine",
			modify:  func(c *Config) { c.Database.Engine = "postgres" },
			wantErr: "database.engine",
		},
		{
			name:    "mysql needs host",
			modify:  func(c *Config) { c.Database.Engine = "mysql"; c.Database.DB = "x" },
			wantErr: "database.host",
		},
		{
			name:    "bad qos",
			modify:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "bad format",
			modify:  func(c *Config) { c.MQTT.Format = "xml" },
			wantErr: "mqtt.format",
		},
		{
			name:    "cc128 needs thermometer id",
			modify:  func(c *Config) { c.MQTT.Format = "cc128" },
			wantErr: "mqtt.cc128_temp_sensor_id",
		},
		{
			name:   "cc128 with thermometer id",
			modify: func(c *Config) { c.MQTT.Format = "cc128"; c.MQTT.CC128TempSensorID = 21 },
		},
		{
			name:    "influx sink without influx",
			modify:  func(c *Config) { c.Export.Sink = "influxdb" },
			wantErr: "influxdb.enabled",
		},
		{
			name: "binding without sensor",
			modify: func(c *Config) {
				c.Export.Sink = "file"
				c.Export.Bindings = []BindingConfig{{Target: "/tmp/x"}}
			},
			wantErr: "sensor_id or sensor_name",
		},
		{
			name: "too many bindings",
			modify: func(c *Config) {
				for i := 0; i < MaxExportBindings+1; i++ {
					c.Export.Bindings = append(c.Export.Bindings, BindingConfig{Target: "/tmp/x", SensorID: uint32(i + 1)})
				}
			},
			wantErr: "at most 32",
		},
		{
			name:    "metrics without listen address",
			modify:  func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Listen = "" },
			wantErr: "metrics.listen",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := defaultConfig()
	cfg.MQTT.QoS = 5
	cfg.MQTT.Broker.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"mqtt.qos", "mqtt.broker.port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error %q missing %q", err, want)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SENSORSPACE_DATABASE_ENGINE", "mysql")
	t.Setenv("SENSORSPACE_DATABASE_PASS", "secret")
	t.Setenv("SENSORSPACE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("SENSORSPACE_MQTT_PORT", "8883")
	t.Setenv("SENSORSPACE_INFLUXDB_TOKEN", "secret-token")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Database.Engine != "mysql" {
		t.Errorf("Database.Engine = %q, want mysql", cfg.Database.Engine)
	}
	if cfg.Database.Pass != "secret" {
		t.Errorf("Database.Pass not overridden")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d, want 8883", cfg.MQTT.Broker.Port)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token not overridden")
	}
}

func TestFlushInterval(t *testing.T) {
	cfg := defaultConfig()
	if got := cfg.FlushInterval(); got != 10*time.Second {
		t.Errorf("FlushInterval() = %v, want 10s", got)
	}
}
