package wire

import (
	"errors"
	"fmt"
)

// ErrUnknownEnum is wrapped into a CodecError whenever a decoded enum name
// does not match any known variant. Decoders must reject unknown names
// rather than silently mapping them to a default, since peers may run a
// different protocol version.
var ErrUnknownEnum = errors.New("unknown enum value")

// CodecError wraps any failure to encode or decode a wire value (on decode,
// typically a malformed payload), naming which field (Kind) was being
// written or read when the failure happened.
type CodecError struct {
	Kind string
	Err  error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("codec: %s: %v", e.Kind, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

func codecErr(kind string, err error) error {
	if err == nil {
		return nil
	}
	return &CodecError{Kind: kind, Err: err}
}
