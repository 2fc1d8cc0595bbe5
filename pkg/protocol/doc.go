// Package protocol implements the ThingSet request/response wire formats.
//
// Two encodings are supported:
//   - text: ASCII command lines as typed into the node's shell (`thingset ?Sensor/rVoltage`)
//   - binary: one opcode byte followed by deterministic CBOR items
//
// Encoders turn logical requests into bytes; decoders turn a raw response into a
// status code and an optional payload. Neither keeps state between calls.
//
// The protocol carries no request identifiers. A response can only be matched to
// the request sent immediately before it, so callers must keep at most one request
// in flight per connection.
package protocol
