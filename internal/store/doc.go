// Package store persists readings, devices and sensors in a relational
// database.
//
// A Transport drives one Engine: a MySQL server or a SQLite file. Every
// statement goes through Execute, which serializes access and, on
// failure, asks the engine to reconnect and retries the statement
// exactly once.
//
// # Reconnect policy
//
//   - MySQL: ping, then compare CONNECTION_ID() with the value recorded
//     at the last probe. A change is reported as StatusReconnected.
//   - SQLite: close and reopen the file. Always StatusReconnected.
//
// # Usage
//
//	t, err := store.New(cfg, logger)
//	if err := t.Connect(ctx); err != nil { ... }
//	defer t.Close()
//
//	if _, err := t.Post(ctx, store.KindReading, r); err != nil { ... }
//
//	res, err := t.GetReadings(ctx, store.ReadingSelector{SensorID: 3})
//	if errors.Is(err, store.ErrEmptyResult) { ... }
//	defer res.Close()
//
// Results hold at most MaxResults entities; the surplus is dropped and
// logged.
package store
