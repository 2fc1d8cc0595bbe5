// Package client talks to a ThingSet node: it encodes fetch, get, update and
// exec requests, sends them over a transport.Backend, waits for the matching
// response and turns it into a Response.
//
// There is no request id on the wire. A Client therefore keeps exactly one
// request in flight, holding its lock from send until the response (and any
// path lookups it triggers) has been read.
package client
