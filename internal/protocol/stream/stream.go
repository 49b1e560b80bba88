// Package stream reads and writes back-to-back frames on a byte stream such as
// a serial link. Frames carry no length; the size of each one follows from the
// declaration registered for its id byte.
package stream

import (
	"io"

	"github.com/danmuck/wirectl/internal/protocol"
	"github.com/danmuck/wirectl/internal/protocol/message"
	"github.com/pkg/errors"
)

var ErrFrameTooLarge = errors.New("stream: frame too large")

// Limits constrains per-frame memory use.
type Limits struct {
	MaxFrameBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxFrameBytes: 64 * 1024}
}

// ReadFrame reads exactly one frame. It returns io.EOF when the stream ends on
// a frame boundary. An unknown id leaves the stream unsynchronized; callers
// should stop reading.
func ReadFrame(r io.Reader, reg *message.Registry, limits Limits) (*message.Frame, error) {
	var id [1]byte
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return nil, err
	}
	decl, err := reg.LookupID(id[0])
	if err != nil {
		return nil, protocol.UnknownMessageIDError{ID: id[0]}
	}
	size := decl.Size()
	if size > limits.MaxFrameBytes {
		return nil, errors.Wrapf(ErrFrameTooLarge, "%s needs %d bytes, limit %d", decl.Name(), size, limits.MaxFrameBytes)
	}

	buf := make([]byte, size)
	buf[0] = id[0]
	if _, err := io.ReadFull(r, buf[1:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(protocol.ErrTruncated, "%s: stream ended inside frame", decl.Name())
		}
		return nil, err
	}
	return reg.Decode(buf)
}

func WriteFrame(w io.Writer, f *message.Frame, limits Limits) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}
	if len(data) > limits.MaxFrameBytes {
		return errors.Wrapf(ErrFrameTooLarge, "%d bytes, limit %d", len(data), limits.MaxFrameBytes)
	}
	_, err = w.Write(data)
	return err
}

// ReadAll reads frames until a clean end of stream, returning what was read
// before the first error.
func ReadAll(r io.Reader, reg *message.Registry, limits Limits) ([]*message.Frame, error) {
	var frames []*message.Frame
	for {
		f, err := ReadFrame(r, reg, limits)
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}
