package protocol

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"thingset/pkg/protocol/codec"
)

// TextEncoder builds shell command lines: `thingset <verb><address> <payload>\n`.
type TextEncoder struct{}

func (TextEncoder) Encoding() Encoding { return EncodingText }

func (TextEncoder) EncodeGet(id ID) ([]byte, error) {
	if id.IsNone() {
		return nil, ErrInvalidID
	}
	return []byte(fmt.Sprintf("%s%c%s\n", textPrefix, VerbGet, id)), nil
}

func (TextEncoder) EncodeFetch(parent ID, ids []ID) ([]byte, error) {
	if parent.IsNone() {
		return nil, ErrInvalidID
	}
	children := "null"
	if len(ids) > 0 {
		items := make([]any, len(ids))
		for i, id := range ids {
			items[i] = id
		}
		var err error
		if children, err = textList(items, textLiteral); err != nil {
			return nil, err
		}
	}
	return []byte(fmt.Sprintf("%s%c%s %s\n", textPrefix, VerbGet, parent, children)), nil
}

// EncodeUpdate writes `thingset =<parent path> {\"<leaf>\":<value>}`. The parent is
// taken from the target path; parent is ignored by this encoding. A map value
// is written to the group itself: `thingset =<path> {...}`.
func (TextEncoder) EncodeUpdate(_ ID, id ID, value any) ([]byte, error) {
	if id.IsNone() {
		return nil, ErrInvalidID
	}
	if isMap(value) {
		obj, err := textLiteral(value)
		if err != nil {
			return nil, err
		}
		return []byte(fmt.Sprintf("%s%c%s %s\n", textPrefix, VerbUpdate, id, obj)), nil
	}
	lit, err := textLiteral(unwrapSingle(value))
	if err != nil {
		return nil, err
	}
	parentPath, leaf := " ", id.String()
	if i := strings.LastIndexByte(leaf, '/'); i >= 0 {
		parentPath = leaf[:i] + " "
		leaf = leaf[i+1:]
	}
	return []byte(fmt.Sprintf(`%s%c%s{\"%s\":%s}`+"\n", textPrefix, VerbUpdate, parentPath, leaf, lit)), nil
}

func (TextEncoder) EncodeExec(id ID, args []any) ([]byte, error) {
	if id.IsNone() {
		return nil, ErrInvalidID
	}
	list, err := textList(args, textLiteral)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("%s%c%s %s\n", textPrefix, VerbExec, id, list)), nil
}

func (TextEncoder) EncodeGetPath(id ID) ([]byte, error) {
	n, ok := id.Uint32()
	if !ok {
		return nil, ErrInvalidID
	}
	return []byte(fmt.Sprintf("%s%c%s [%d,]\n", textPrefix, VerbGet, PathsName, n)), nil
}

// unwrapSingle accepts the legacy calling convention of passing an update value
// as a one-element list.
func unwrapSingle(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Len() == 1 {
		if _, isBytes := v.([]byte); !isBytes {
			return rv.Index(0).Interface()
		}
	}
	return v
}

// TextDecoder parses `:<hex status>[ <Description>.][ <json payload>]`.
type TextDecoder struct{}

var textJSON = codec.JSON()

func (TextDecoder) Decode(msg []byte) (Status, any, error) {
	s := strings.TrimSpace(string(msg))
	if s == "" {
		return StatusNone, nil, ErrEmptyMessage
	}
	if len(s) < 3 || s[0] != ':' {
		return StatusNone, nil, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	code, err := strconv.ParseUint(s[1:3], 16, 8)
	if err != nil || code < 0x80 {
		return StatusNone, nil, fmt.Errorf("%w: bad status %q", ErrMalformed, s[1:3])
	}
	status := Status(code)
	if !status.OK() {
		return status, nil, nil
	}
	rest := stripDescription(strings.TrimSpace(s[3:]))
	if rest == "" {
		return status, nil, nil
	}
	var data any
	if err := textJSON.Unmarshal([]byte(rest), &data); err != nil {
		return StatusNone, nil, fmt.Errorf("%w: payload: %v", ErrMalformed, err)
	}
	return status, data, nil
}

// stripDescription drops a human readable status text such as "Content." that
// older firmware puts between the code and the payload.
func stripDescription(s string) string {
	if s == "" || !unicode.IsLetter(rune(s[0])) {
		return s
	}
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s
	}
	for _, r := range s[:dot] {
		if !unicode.IsLetter(r) && r != ' ' && r != '-' {
			return s
		}
	}
	return strings.TrimSpace(s[dot+1:])
}
