package wire

import (
	"fmt"
	"math"
	"strings"

	"github.com/danmuck/wirectl/internal/protocol"
	"github.com/pkg/errors"
)

// Type describes the wire shape of one message parameter.
// Implementations are Primitive, Array and Choice.
type Type interface {
	fmt.Stringer
	isType()
}

// Primitive is a fixed-width little-endian scalar.
type Primitive uint8

const (
	Bool Primitive = iota + 1
	U8
	I8
	U16
	I16
	U32
	I32
	F32
)

var primitiveNames = map[Primitive]string{
	Bool: "bool",
	U8:   "u8",
	I8:   "i8",
	U16:  "u16",
	I16:  "i16",
	U32:  "u32",
	I32:  "i32",
	F32:  "f32",
}

// ParsePrimitive returns the primitive named by keyword.
func ParsePrimitive(keyword string) (Primitive, bool) {
	for p, name := range primitiveNames {
		if name == keyword {
			return p, true
		}
	}
	return 0, false
}

func (Primitive) isType() {}

func (p Primitive) String() string {
	if name, ok := primitiveNames[p]; ok {
		return name
	}
	return fmt.Sprintf("primitive(%d)", uint8(p))
}

// Valid reports whether p is one of the declared primitive codes.
func (p Primitive) Valid() bool {
	_, ok := primitiveNames[p]
	return ok
}

// Width returns the encoded size in bytes, 0 for an invalid code.
func (p Primitive) Width() int {
	switch p {
	case Bool, U8, I8:
		return 1
	case U16, I16:
		return 2
	case U32, I32, F32:
		return 4
	default:
		return 0
	}
}

// Array is a fixed-count homogeneous sequence. Len is never written to the wire.
type Array struct {
	Elem Type
	Len  int
}

func (Array) isType() {}

func (a Array) String() string {
	return fmt.Sprintf("[%s; %d]", a.Elem, a.Len)
}

// Choice is an enumerated string encoded as a u8 index into Variants.
type Choice struct {
	Variants []string
}

func (Choice) isType() {}

func (c Choice) String() string {
	return "[" + strings.Join(c.Variants, ", ") + "]"
}

// Index returns the position of v in the variants.
func (c Choice) Index(v string) (int, bool) {
	for i, variant := range c.Variants {
		if variant == v {
			return i, true
		}
	}
	return 0, false
}

// Size returns the fixed encoded size of t.
func Size(t Type) int {
	switch t := t.(type) {
	case Primitive:
		return t.Width()
	case Array:
		return t.Len * Size(t.Elem)
	case Choice:
		return 1
	default:
		return 0
	}
}

const (
	// MaxArrayLen bounds the element count of any array, including arrays of
	// zero-width elements.
	MaxArrayLen = math.MaxUint16
	// MaxSize bounds the encoded size of a single type.
	MaxSize = math.MaxUint16
)

// Check reports whether t is well formed and fits the size bounds. Size is only
// meaningful for types that pass Check.
func Check(t Type) error {
	switch t := t.(type) {
	case Primitive:
		if !t.Valid() {
			return errors.Wrapf(protocol.ErrUnsupportedType, "unknown primitive %s", t)
		}
		return nil
	case Array:
		if t.Elem == nil {
			return errors.Wrap(protocol.ErrUnsupportedType, "array without element type")
		}
		if err := Check(t.Elem); err != nil {
			return err
		}
		if t.Len < 0 || t.Len > MaxArrayLen {
			return errors.Wrapf(protocol.ErrUnsupportedType, "array length %d out of range 0..%d", t.Len, MaxArrayLen)
		}
		if size := t.Len * Size(t.Elem); size > MaxSize {
			return errors.Wrapf(protocol.ErrUnsupportedType, "%s encodes to %d bytes, limit %d", t, size, MaxSize)
		}
		return nil
	case Choice:
		if len(t.Variants) == 0 || len(t.Variants) > math.MaxUint8+1 {
			return errors.Wrapf(protocol.ErrUnsupportedType, "choice needs 1..%d variants, got %d", math.MaxUint8+1, len(t.Variants))
		}
		return nil
	default:
		return errors.Wrapf(protocol.ErrUnsupportedType, "unexpected type %T", t)
	}
}
