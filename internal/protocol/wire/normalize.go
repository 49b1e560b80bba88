package wire

import (
	"math"
	"reflect"

	"github.com/danmuck/wirectl/internal/protocol"
	"github.com/pkg/errors"
)

// Normalize converts a caller supplied value into the canonical Go value for t:
// bool, uint8, int8, uint16, int16, uint32, int32, float32, []any for arrays and
// string for choices. Any integer or float kind is accepted for numeric codes as long
// as the value is representable.
func Normalize(t Type, v any) (any, error) {
	switch t := t.(type) {
	case Primitive:
		return normalizePrimitive(t, v)
	case Array:
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return nil, errors.Wrapf(protocol.ErrEncoding, "%s expects a sequence, got %T", t, v)
		}
		out := make([]any, rv.Len())
		for i := range out {
			elem, err := Normalize(t.Elem, rv.Index(i).Interface())
			if err != nil {
				return nil, errors.WithMessagef(err, "element %d", i)
			}
			out[i] = elem
		}
		return out, nil
	case Choice:
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || rv.Kind() != reflect.String {
			return nil, errors.Wrapf(protocol.ErrInvalidChoice, "%v is not one of %s", v, t)
		}
		s := rv.String()
		if _, ok := t.Index(s); !ok {
			return nil, errors.Wrapf(protocol.ErrInvalidChoice, "%q is not one of %s", s, t)
		}
		return s, nil
	default:
		return nil, errors.Wrapf(protocol.ErrEncoding, "unexpected type %T", t)
	}
}

func normalizePrimitive(p Primitive, v any) (any, error) {
	if p == Bool {
		b, ok := v.(bool)
		if !ok {
			return nil, errors.Wrapf(protocol.ErrEncoding, "bool expects a boolean, got %T", v)
		}
		return b, nil
	}
	if p == F32 {
		f, ok := toFloat(v)
		if !ok {
			return nil, errors.Wrapf(protocol.ErrEncoding, "f32 expects a number, got %T", v)
		}
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return nil, errors.Wrapf(protocol.ErrEncoding, "%v is too large for f32", f)
		}
		return float32(f), nil
	}

	lo, hi, ok := intRange(p)
	if !ok {
		return nil, errors.Wrapf(protocol.ErrEncoding, "unknown primitive %s", p)
	}
	n, ok := toInt(v)
	if !ok {
		return nil, errors.Wrapf(protocol.ErrEncoding, "%s expects an integer, got %T(%v)", p, v, v)
	}
	if n < lo || n > hi {
		return nil, errors.Wrapf(protocol.ErrEncoding, "%d is out of range for %s", n, p)
	}
	switch p {
	case U8:
		return uint8(n), nil
	case I8:
		return int8(n), nil
	case U16:
		return uint16(n), nil
	case I16:
		return int16(n), nil
	case U32:
		return uint32(n), nil
	default:
		return int32(n), nil
	}
}

func intRange(p Primitive) (int64, int64, bool) {
	switch p {
	case U8:
		return 0, math.MaxUint8, true
	case I8:
		return math.MinInt8, math.MaxInt8, true
	case U16:
		return 0, math.MaxUint16, true
	case I16:
		return math.MinInt16, math.MaxInt16, true
	case U32:
		return 0, math.MaxUint32, true
	case I32:
		return math.MinInt32, math.MaxInt32, true
	default:
		return 0, 0, false
	}
}

// toInt accepts integer kinds and integral floats. Values beyond int64 are rejected,
// none of the wire codes can hold them anyway.
func toInt(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return 0, false
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, false
		}
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return 0, false
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
