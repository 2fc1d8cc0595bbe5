package protocol

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// CoerceToken applies the argument rules used for exec arguments and update values
// given as text: integers stay integers, other numbers become float64, "true" and
// "false" (any case) become booleans, everything else stays a string.
func CoerceToken(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// ToF32 rounds v to the nearest float32. The node distinguishes 32- and 64-bit
// floats; encoding a float32 makes CBOR emit a single-precision item.
func ToF32(v float64) float32 { return float32(v) }

// coerceBinary prepares a value for CBOR: string tokens go through CoerceToken,
// float64 is narrowed to float32, slices are handled element by element.
func coerceBinary(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		return x, nil
	case float64:
		return ToF32(x), nil
	case string:
		if f, ok := CoerceToken(x).(float64); ok {
			return ToF32(f), nil
		}
		return CoerceToken(x), nil
	case ID:
		return x.wire(), nil
	case []byte:
		return x, nil
	case []any:
		out := make([]any, len(x))
		for i := range x {
			c, err := coerceBinary(x[i])
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			c, err := coerceBinary(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case reflect.Map:
		return coerceBinaryMap(rv)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

// coerceBinaryMap coerces every value of a map. String keys naming a number
// ("0x301", "769") become numeric IDs, other strings stay names.
func coerceBinaryMap(rv reflect.Value) (map[any]any, error) {
	out := make(map[any]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		var key any
		switch k := iter.Key().Interface().(type) {
		case string:
			id, err := ParseID(k)
			if err != nil {
				return nil, fmt.Errorf("map key %q: %w", k, err)
			}
			key = id.wire()
		case ID:
			if k.IsNone() {
				return nil, ErrInvalidID
			}
			key = k.wire()
		default:
			c, err := coerceBinary(k)
			if err != nil {
				return nil, err
			}
			key = c
		}
		val, err := coerceBinary(iter.Value().Interface())
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
	return out, nil
}

func isMap(v any) bool {
	return v != nil && reflect.ValueOf(v).Kind() == reflect.Map
}

// textLiteral renders v as the JSON-like literal accepted by the node's shell.
// Strings are wrapped in backslash-escaped quotes because the shell strips one
// level of quoting.
func textLiteral(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "null", nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.FormatInt(int64(x), 10), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return formatFloat(float64(x), 32), nil
	case float64:
		return formatFloat(x, 64), nil
	case string:
		switch c := CoerceToken(x).(type) {
		case string:
			return `\"` + c + `\"`, nil
		case bool:
			return strconv.FormatBool(c), nil
		default:
			// numeric tokens pass through exactly as given
			return x, nil
		}
	case ID:
		return `\"` + x.String() + `\"`, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return textList(items, textLiteral)
	case reflect.Map:
		return textObject(rv)
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupported, v)
}

// textObject renders `{\"k\":v,...}` with keys sorted, no trailing comma.
func textObject(rv reflect.Value) (string, error) {
	type member struct{ key, lit string }
	members := make([]member, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		lit, err := textLiteral(iter.Value().Interface())
		if err != nil {
			return "", err
		}
		members = append(members, member{key: fmt.Sprint(iter.Key().Interface()), lit: lit})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].key < members[j].key })
	var b strings.Builder
	b.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`\"` + m.key + `\":` + m.lit)
	}
	b.WriteByte('}')
	return b.String(), nil
}

// textList renders "[a,b,]". The trailing comma is what the node's shell has always been sent.
func textList(items []any, render func(any) (string, error)) (string, error) {
	var b strings.Builder
	b.WriteByte('[')
	for _, it := range items {
		s, err := render(it)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
		b.WriteByte(',')
	}
	b.WriteByte(']')
	return b.String(), nil
}

func formatFloat(f float64, bits int) string {
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
