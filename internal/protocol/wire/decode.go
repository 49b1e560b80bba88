package wire

import (
	"encoding/binary"
	"math"

	"github.com/danmuck/wirectl/internal/protocol"
	"github.com/pkg/errors"
)

// Cursor reads typed values from a byte buffer, advancing on each read.
type Cursor struct {
	buf []byte
	off int
}

func NewCursor(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// Offset returns the number of bytes consumed so far.
func (c *Cursor) Offset() int {
	return c.off
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.off
}

// EOF reports whether the whole buffer has been consumed.
func (c *Cursor) EOF() bool {
	return c.off >= len(c.buf)
}

func (c *Cursor) next(n int) ([]byte, error) {
	if n > c.Remaining() {
		return nil, errors.Wrapf(protocol.ErrTruncated, "need %d byte(s) at offset %d, have %d", n, c.off, c.Remaining())
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

// ReadByte consumes a single byte.
func (c *Cursor) ReadByte() (byte, error) {
	b, err := c.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Read decodes one value of type t.
func (c *Cursor) Read(t Type) (any, error) {
	switch t := t.(type) {
	case Primitive:
		return c.readPrimitive(t)
	case Array:
		if t.Len < 0 || t.Len > MaxArrayLen {
			return nil, errors.Wrapf(protocol.ErrEncoding, "%s: length out of range 0..%d", t, MaxArrayLen)
		}
		if width := Size(t.Elem); width > 0 && t.Len > c.Remaining()/width {
			return nil, errors.Wrapf(protocol.ErrTruncated, "%s needs %d byte(s) at offset %d, have %d", t, t.Len*width, c.off, c.Remaining())
		}
		out := make([]any, t.Len)
		for i := range out {
			v, err := c.Read(t.Elem)
			if err != nil {
				return nil, errors.WithMessagef(err, "element %d", i)
			}
			out[i] = v
		}
		return out, nil
	case Choice:
		idx, err := c.ReadByte()
		if err != nil {
			return nil, err
		}
		if int(idx) >= len(t.Variants) {
			return nil, errors.Wrapf(protocol.ErrInvalidChoice, "index %d out of range for %s", idx, t)
		}
		return t.Variants[idx], nil
	default:
		return nil, errors.Wrapf(protocol.ErrEncoding, "unexpected type %T", t)
	}
}

func (c *Cursor) readPrimitive(p Primitive) (any, error) {
	width := p.Width()
	if width == 0 {
		return nil, errors.Wrapf(protocol.ErrEncoding, "unknown primitive %s", p)
	}
	b, err := c.next(width)
	if err != nil {
		return nil, err
	}
	switch p {
	case Bool:
		return b[0] != 0, nil
	case U8:
		return b[0], nil
	case I8:
		return int8(b[0]), nil
	case U16:
		return binary.LittleEndian.Uint16(b), nil
	case I16:
		return int16(binary.LittleEndian.Uint16(b)), nil
	case U32:
		return binary.LittleEndian.Uint32(b), nil
	case I32:
		return int32(binary.LittleEndian.Uint32(b)), nil
	default:
		return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
	}
}
