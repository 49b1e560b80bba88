package wire

import (
	"encoding/binary"
	"math"
	"reflect"

	"github.com/danmuck/wirectl/internal/protocol"
	"github.com/pkg/errors"
)

// Write appends the encoding of v as t to buf.
// Arrays write one element per supplied item; the declared length is not enforced here.
func Write(buf []byte, t Type, v any) ([]byte, error) {
	switch t := t.(type) {
	case Primitive:
		n, err := normalizePrimitive(t, v)
		if err != nil {
			return buf, err
		}
		return appendPrimitive(buf, n), nil
	case Array:
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return buf, errors.Wrapf(protocol.ErrEncoding, "%s expects a sequence, got %T", t, v)
		}
		for i := 0; i < rv.Len(); i++ {
			var err error
			if buf, err = Write(buf, t.Elem, rv.Index(i).Interface()); err != nil {
				return buf, errors.WithMessagef(err, "element %d", i)
			}
		}
		return buf, nil
	case Choice:
		s, err := Normalize(t, v)
		if err != nil {
			return buf, err
		}
		idx, _ := t.Index(s.(string))
		if idx > math.MaxUint8 {
			return buf, errors.Wrapf(protocol.ErrInvalidChoice, "index %d does not fit u8", idx)
		}
		return append(buf, byte(idx)), nil
	default:
		return buf, errors.Wrapf(protocol.ErrEncoding, "unexpected type %T", t)
	}
}

func appendPrimitive(buf []byte, v any) []byte {
	switch n := v.(type) {
	case bool:
		if n {
			return append(buf, 1)
		}
		return append(buf, 0)
	case uint8:
		return append(buf, n)
	case int8:
		return append(buf, byte(n))
	case uint16:
		return binary.LittleEndian.AppendUint16(buf, n)
	case int16:
		return binary.LittleEndian.AppendUint16(buf, uint16(n))
	case uint32:
		return binary.LittleEndian.AppendUint32(buf, n)
	case int32:
		return binary.LittleEndian.AppendUint32(buf, uint32(n))
	case float32:
		return binary.LittleEndian.AppendUint32(buf, math.Float32bits(n))
	default:
		return buf
	}
}
