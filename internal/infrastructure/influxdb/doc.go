// Package influxdb provides InfluxDB connectivity for sensorspace.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, reading and sample writers, and health monitoring.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteReading(r)
//	client.WriteSample("boiler_temp", map[string]string{"sensor_id": "3"}, "55.2", r.Time)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking; batch errors are delivered through
// the SetOnError callback. Connection and health check errors are
// returned directly.
package influxdb
