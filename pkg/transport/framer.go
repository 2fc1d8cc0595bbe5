package transport

import (
	"bytes"
	"strings"
)

// Framer splits a byte stream into messages. Feed may keep a partial message
// between calls. Returned slices are owned by the caller.
type Framer interface {
	Feed(p []byte) [][]byte
}

// ChunkFramer treats every read as one message. Binary responses are small
// enough to arrive in a single read of ReadBufferSize bytes.
type ChunkFramer struct{}

func (ChunkFramer) Feed(p []byte) [][]byte {
	if len(p) == 0 {
		return nil
	}
	return [][]byte{bytes.Clone(p)}
}

// DefaultNoisePrefixes are shell lines that are never responses: the command
// echo, the prompt and VT100 escape sequences.
var DefaultNoisePrefixes = []string{"thingset", "uart", "\x1b"}

const maxLineLen = 64 * 1024

// LineFramer splits newline-terminated lines, strips "\r" and drops empty lines
// and lines starting with one of Noise.
type LineFramer struct {
	Noise []string
	// Seen is called with every complete line, including the dropped ones.
	Seen func(line string)

	buf []byte
}

func NewLineFramer() *LineFramer { return &LineFramer{Noise: DefaultNoisePrefixes} }

func (f *LineFramer) Feed(p []byte) [][]byte {
	f.buf = append(f.buf, p...)
	var out [][]byte
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(f.buf[:i]), "\r")
		f.buf = f.buf[i+1:]
		if f.Seen != nil {
			f.Seen(line)
		}
		if f.accept(line) {
			out = append(out, []byte(line))
		}
	}
	if len(f.buf) > maxLineLen {
		f.buf = nil
	}
	if len(f.buf) == 0 {
		f.buf = nil
	}
	return out
}

func (f *LineFramer) accept(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	for _, p := range f.Noise {
		if strings.HasPrefix(line, p) {
			return false
		}
	}
	return true
}
