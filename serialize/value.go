// Package serialize implements a deterministic, key-sorted encoding of a
// generic tagged value model. Equal values always encode to equal bytes
// regardless of map iteration order or the library that decoded them, which
// makes the encoding suitable for cache keys and content fingerprints.
//
// The value model is intentionally independent of any serialization library:
// it covers exactly null, booleans, numbers, strings, arrays and ordered maps.
package serialize

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Value is a polymorphic node in the tagged value model. Concrete types
// implement the unexported isValue marker enabling a closed set.
type Value interface{ isValue() }

// Null is the absent value.
type Null struct{}

func (Null) isValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) isValue() {}

// Number is a numeric value. All Go numeric types collapse to float64, which
// matches the shape produced by JSON decoding.
type Number float64

func (Number) isValue() {}

// String is a text value.
type String string

func (String) isValue() {}

// Array is an ordered sequence of values.
type Array []Value

func (Array) isValue() {}

// Entry is one key/value pair of a Map.
type Entry struct {
	Key   string
	Value Value
}

// Map is an ordered sequence of key/value entries. FromGo produces maps with
// keys in sorted order; hand-built maps keep whatever order the caller chose
// and are sorted again at encoding time.
type Map []Entry

func (Map) isValue() {}

// FromGo converts a decoded-JSON-shaped Go value (nil, bool, numbers, string,
// []any, map[string]any and the Value types themselves) into the tagged
// model. Map keys are sorted so the result is already canonical.
func FromGo(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(x), nil
	case int:
		return Number(x), nil
	case int32:
		return Number(x), nil
	case int64:
		return Number(x), nil
	case uint:
		return Number(x), nil
	case uint64:
		return Number(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", x.String(), err)
		}
		return Number(f), nil
	case []any:
		arr := make(Array, 0, len(x))
		for i, el := range x {
			val, err := FromGo(el)
			if err != nil {
				return nil, fmt.Errorf("array index %d: %w", i, err)
			}
			arr = append(arr, val)
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		m := make(Map, 0, len(keys))
		for _, k := range keys {
			val, err := FromGo(x[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			m = append(m, Entry{Key: k, Value: val})
		}
		return m, nil
	case map[string]string:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		m := make(Map, 0, len(keys))
		for _, k := range keys {
			m = append(m, Entry{Key: k, Value: String(x[k])})
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// MustFromGo is FromGo for values known to be convertible; it panics on error.
// Intended for literals in tests and static configuration.
func MustFromGo(v any) Value {
	val, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return val
}
