package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrSchema           = errors.New("protocol: invalid schema")
	ErrUnsupportedType  = fmt.Errorf("%w: unsupported type", ErrSchema)
	ErrRegistration     = errors.New("protocol: registration conflict")
	ErrNotFound         = errors.New("protocol: message not found")
	ErrShapeMismatch    = errors.New("protocol: arguments do not match declaration")
	ErrEncoding         = errors.New("protocol: value cannot be encoded")
	ErrInvalidChoice    = errors.New("protocol: invalid choice value")
	ErrEmptyBuffer      = errors.New("protocol: empty buffer, no message id")
	ErrUnknownMessageID = errors.New("protocol: unknown message id")
	ErrTrailingData     = errors.New("protocol: undecoded data after message")
	ErrTruncated        = errors.New("protocol: truncated data")
)

// SchemaError reports an invalid schema document entry.
// Err narrows the kind (e.g. ErrUnsupportedType); it defaults to ErrSchema.
type SchemaError struct {
	Path   string
	Reason string
	Err    error
}

func (e SchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("schema: %s", e.Reason)
	}
	return fmt.Sprintf("schema: %s: %s", e.Path, e.Reason)
}

func (e SchemaError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrSchema
}

// UnknownMessageIDError indicates a decoded id with no registered declaration.
type UnknownMessageIDError struct {
	ID uint8
}

func (e UnknownMessageIDError) Error() string {
	return fmt.Sprintf("protocol: unknown message id %d", e.ID)
}

func (e UnknownMessageIDError) Unwrap() error {
	return ErrUnknownMessageID
}

// TrailingDataError indicates bytes left over after a complete frame was decoded.
type TrailingDataError struct {
	ID        uint8
	Remaining int
}

func (e TrailingDataError) Error() string {
	return fmt.Sprintf("protocol: %d undecoded byte(s) after message with id %d", e.Remaining, e.ID)
}

func (e TrailingDataError) Unwrap() error {
	return ErrTrailingData
}

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrUnsupportedType, "unsupported_type"},
	{ErrSchema, "schema"},
	{ErrRegistration, "registration"},
	{ErrNotFound, "not_found"},
	{ErrShapeMismatch, "shape_mismatch"},
	{ErrInvalidChoice, "invalid_choice"},
	{ErrEncoding, "encoding"},
	{ErrEmptyBuffer, "empty_buffer"},
	{ErrUnknownMessageID, "unknown_message_id"},
	{ErrTrailingData, "trailing_data"},
	{ErrTruncated, "truncated"},
}

// ErrorKind returns a stable label for the protocol sentinel wrapped by err,
// "none" for nil and "other" for errors outside the package.
func ErrorKind(err error) string {
	if err == nil {
		return "none"
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "other"
}
