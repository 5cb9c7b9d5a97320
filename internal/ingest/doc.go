// Package ingest wires inbound reading payloads to storage and export.
//
// For every MQTT message the Pipeline decodes the payload with the
// configured codec, validates the reading, posts it to the store and
// fans it out to the export table. Decode, validation and store errors
// are returned to the MQTT layer, which logs them; export failures are
// logged where they happen.
package ingest
