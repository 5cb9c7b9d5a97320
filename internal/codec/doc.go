// Package codec converts readings to and from their wire formats.
//
// # Formats
//
//   - JSON: the default format, {"date":..,"device":{..},"sensors":[..]}
//   - INI: a legacy single-record format of DID=, DATE= and MEAS= lines
//   - CC128: CurrentCost energy monitor XML frames (decode only)
//
// # JSON scanning
//
// JSON decoding does not unmarshal into structs. KeyValue locates a key
// among an object's top-level members and classifies its value as a
// string, array or object; ArrayElements splits an array into element
// blocks. Both find the end of a value with a depth-balanced scan, so
// nested containers never end a value early.
//
// Field handling is table driven: each key carries a policy for when it
// is absent, and a present but malformed value always fails the decode.
//
// # Streams
//
// Accumulator turns partial reads from a serial or socket stream into
// complete frames for the decoders.
package codec
