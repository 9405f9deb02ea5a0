package changes

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"strings"
)

// valuesEqual compares two field values. Missing fields arrive as nil and
// compare equal to nil. Numbers compare by exact value regardless of Go type,
// so 1 matches 1.0 while integers beyond float64 precision stay distinct.
// Maps and lists are compared element by element with the same rules.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ra, ok := toRat(a); ok {
		if rb, ok := toRat(b); ok {
			return ra.Cmp(rb) == 0
		}
		return false
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case va.Kind() == reflect.Map && vb.Kind() == reflect.Map:
		return mapsEqual(va, vb)
	case isList(va) && isList(vb):
		return listsEqual(va, vb)
	}
	return reflect.DeepEqual(a, b)
}

func isList(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

func mapsEqual(a, b reflect.Value) bool {
	if a.Type().Key().Kind() != reflect.String || b.Type().Key().Kind() != reflect.String {
		return reflect.DeepEqual(a.Interface(), b.Interface())
	}
	if a.Len() != b.Len() {
		return false
	}
	iter := a.MapRange()
	for iter.Next() {
		other := b.MapIndex(reflect.ValueOf(iter.Key().String()).Convert(b.Type().Key()))
		if !other.IsValid() {
			return false
		}
		if !valuesEqual(iter.Value().Interface(), other.Interface()) {
			return false
		}
	}
	return true
}

func listsEqual(a, b reflect.Value) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		if !valuesEqual(a.Index(i).Interface(), b.Index(i).Interface()) {
			return false
		}
	}
	return true
}

// toRat converts a numeric value to an exact rational. Floats convert
// bit-exactly; json.Number literals without a fraction or exponent are parsed
// as integers, the rest as float64 the way encoding/json would decode them.
func toRat(value any) (*big.Rat, bool) {
	switch v := value.(type) {
	case int:
		return new(big.Rat).SetInt64(int64(v)), true
	case int8:
		return new(big.Rat).SetInt64(int64(v)), true
	case int16:
		return new(big.Rat).SetInt64(int64(v)), true
	case int32:
		return new(big.Rat).SetInt64(int64(v)), true
	case int64:
		return new(big.Rat).SetInt64(v), true
	case uint:
		return new(big.Rat).SetUint64(uint64(v)), true
	case uint8:
		return new(big.Rat).SetUint64(uint64(v)), true
	case uint16:
		return new(big.Rat).SetUint64(uint64(v)), true
	case uint32:
		return new(big.Rat).SetUint64(uint64(v)), true
	case uint64:
		return new(big.Rat).SetUint64(v), true
	case float32:
		return floatRat(float64(v))
	case float64:
		return floatRat(v)
	case json.Number:
		literal := v.String()
		if !strings.ContainsAny(literal, ".eE") {
			if i, ok := new(big.Int).SetString(literal, 10); ok {
				return new(big.Rat).SetInt(i), true
			}
		}
		f, err := v.Float64()
		if err != nil {
			return nil, false
		}
		return floatRat(f)
	default:
		return nil, false
	}
}

func floatRat(f float64) (*big.Rat, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return new(big.Rat).SetFloat64(f), true
}
