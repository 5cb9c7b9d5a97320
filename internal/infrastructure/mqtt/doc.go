// Package mqtt provides the MQTT client sensorspace ingests readings with.
//
// It wraps eclipse/paho.mqtt.golang with connection management,
// subscription tracking and status publication.
//
// # Topics
//
// Devices publish readings on
//
//	sensorspace/reading/{location}/{device-id}/{device-name}
//
// and the ingest service subscribes to sensorspace/reading/#. Each client
// keeps a retained status on sensorspace/status/{client-id}; the broker
// publishes an offline will there if the client drops.
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.SetLogger(logger)
//	err = client.Subscribe(ctx, cfg.MQTT.Topic, byte(cfg.MQTT.QoS), pipeline.Handle)
//
// # Reconnection
//
// paho reconnects with exponential backoff between reconnect.initial_delay
// and reconnect.max_delay. Tracked subscriptions are replayed on every
// reconnect.
//
// # Thread Safety
//
// All Client methods are safe for concurrent use.
package mqtt
