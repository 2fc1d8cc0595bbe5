package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// ID addresses a node object either by its numeric ID or by its path.
// The zero value is "no ID".
type ID struct {
	num  uint32
	path string
	kind idKind
}

type idKind uint8

const (
	idNone idKind = iota
	idNum
	idPath
)

// Num returns a numeric object ID.
func Num(n uint32) ID { return ID{num: n, kind: idNum} }

// Path returns a path object ID such as "Sensor/rVoltage".
func Path(p string) ID { return ID{path: p, kind: idPath} }

// ParseID reads "0x300", "768" or a path. Anything that is not an unsigned
// 32-bit number is taken as a path.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ID{}, ErrInvalidID
	}
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		return Num(uint32(n)), nil
	}
	return Path(s), nil
}

func (id ID) IsNone() bool { return id.kind == idNone }
func (id ID) IsNum() bool  { return id.kind == idNum }
func (id ID) IsPath() bool { return id.kind == idPath }

// Uint32 returns the numeric ID; ok is false for path or empty IDs.
func (id ID) Uint32() (uint32, bool) { return id.num, id.kind == idNum }

// IsRoot reports whether id is the numeric root object.
func (id ID) IsRoot() bool { return id.kind == idNum && id.num == IDRoot }

// String renders the ID the way the text encoding interpolates it.
func (id ID) String() string {
	switch id.kind {
	case idNum:
		return strconv.FormatUint(uint64(id.num), 10)
	case idPath:
		return id.path
	default:
		return ""
	}
}

// GoString helps test failure output.
func (id ID) GoString() string {
	switch id.kind {
	case idNum:
		return fmt.Sprintf("protocol.Num(0x%X)", id.num)
	case idPath:
		return fmt.Sprintf("protocol.Path(%q)", id.path)
	default:
		return "protocol.ID{}"
	}
}

// wire returns the value CBOR-encoded for this ID: uint64, string or nil.
func (id ID) wire() any {
	switch id.kind {
	case idNum:
		return uint64(id.num)
	case idPath:
		return id.path
	default:
		return nil
	}
}

// MarshalText lets IDs appear as JSON map keys and values in CLI output.
func (id ID) MarshalText() ([]byte, error) {
	if id.kind == idNum {
		return []byte(fmt.Sprintf("0x%X", id.num)), nil
	}
	return []byte(id.String()), nil
}
