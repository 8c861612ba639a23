package serialize

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strconv"
)

// Encode renders a value in canonical form: JSON-compatible syntax with map
// keys in ascending order and stable number formatting. Two structurally
// equal values always encode to identical bytes.
func Encode(v Value) []byte {
	return appendValue(nil, v)
}

// EncodeString is Encode returning a string.
func EncodeString(v Value) string {
	return string(Encode(v))
}

// Fingerprint returns the SHA-256 hex digest of the canonical encoding. This
// is the cache key primitive used by the model response cache and the tool
// result cache.
func Fingerprint(v Value) string {
	sum := sha256.Sum256(Encode(v))
	return hex.EncodeToString(sum[:])
}

func appendValue(b []byte, v Value) []byte {
	switch x := v.(type) {
	case Null:
		return append(b, "null"...)
	case Bool:
		if x {
			return append(b, "true"...)
		}
		return append(b, "false"...)
	case Number:
		return appendNumber(b, float64(x))
	case String:
		return strconv.AppendQuote(b, string(x))
	case Array:
		b = append(b, '[')
		for i, el := range x {
			if i > 0 {
				b = append(b, ',')
			}
			b = appendValue(b, el)
		}
		return append(b, ']')
	case Map:
		entries := x
		if !sort.SliceIsSorted(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key }) {
			entries = append(Map(nil), x...)
			sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		}
		b = append(b, '{')
		for i, e := range entries {
			if i > 0 {
				b = append(b, ',')
			}
			b = strconv.AppendQuote(b, e.Key)
			b = append(b, ':')
			b = appendValue(b, e.Value)
		}
		return append(b, '}')
	default:
		// The value set is closed; an unknown implementation is a programming
		// error in this package.
		panic("serialize: unknown value type")
	}
}

// appendNumber formats integers without an exponent or decimal point and
// everything else with the shortest round-trippable representation. NaN and
// infinities have no JSON form and encode as null.
func appendNumber(b []byte, f float64) []byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return append(b, "null"...)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.AppendInt(b, int64(f), 10)
	}
	return strconv.AppendFloat(b, f, 'g', -1, 64)
}
