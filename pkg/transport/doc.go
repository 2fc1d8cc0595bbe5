// Package transport turns a byte channel to a ThingSet node into a queue of
// discrete response messages.
//
// Key pieces:
//   - Backend: connect/disconnect, Send bytes, Receive(timeout) one message
//   - Queue: bounded FIFO between the reader goroutine and the caller, dropping the oldest entry when full
//   - Reader: background loop doing short-timeout reads and feeding a Framer
//   - Framer: LineFramer for the text shell (newline split, echo/banner filter), ChunkFramer for binary sockets
//
// Implementations live in the serial, tcp and mem subpackages.
package transport
