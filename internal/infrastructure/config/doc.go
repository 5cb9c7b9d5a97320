// Package config handles loading and validating sensorspace configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (SENSORSPACE_*)
//   - Validation of required fields, reporting every problem at once
//   - Default value handling, including a unique MQTT client ID
//
// Credentials (database password, MQTT password, InfluxDB token) are best
// supplied through the environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/sensorspace.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Database.Engine)
package config
