// Package metrics exposes ingest counters in the Prometheus text format,
// alongside a /health probe.
//
// Collectors live on a private registry rather than the global default,
// so tests and multiple pipelines never collide on registration.
//
// Usage:
//
//	m := metrics.New()
//	health := metrics.AllHealthy(mqttClient.HealthCheck, transport.HealthCheck)
//	go m.Serve(ctx, ":2112", health)
//	pipeline, _ := ingest.New(ingest.Options{Metrics: m, ...})
package metrics
