// Package export fans reading measurements out to time-series targets.
//
// A Table holds up to MaxBindings bindings from a sensor (by id, then by
// name) to a target. For every matching binding Export sends one Sample,
// "epoch-seconds:value", to the configured Sink:
//
//   - FileSink appends the sample line to the target file
//   - RRDToolSink runs rrdtool update on the target .rrd file
//   - InfluxSink writes a point whose measurement is the target
//
// One reading may update many targets. A failed update is logged and
// does not stop the others.
package export
