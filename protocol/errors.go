package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrShortRead       = errors.New("short read")
	ErrTrailingBytes   = errors.New("trailing bytes after snapshot")
	ErrInvalidPhase    = errors.New("invalid phase tag")
	ErrNegativeLength  = errors.New("negative length prefix")
	ErrInvalidUTF8     = errors.New("string is not valid UTF-8")
	ErrEmptyFrame      = errors.New("empty frame")
	ErrUnknownFrameTag = errors.New("unknown frame tag")
	ErrNoPreviousFrame = errors.New("delta frame without a previous frame")
	ErrLengthMismatch  = errors.New("delta frame length does not match previous frame")
)

// FormatError reports bytes that do not follow the snapshot layout. The remote
// is trusted to send well-formed data, so this means the schema drifted.
type FormatError struct {
	Offset int
	Field  string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("protocol: malformed %s at offset %d: %v", e.Field, e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// DesyncError means a delta frame cannot be applied to the retained frame.
// It is recoverable: drop the tick and ask the remote for a key frame.
type DesyncError struct {
	Have int // retained frame length, -1 when none
	Want int // reconstructed length implied by the delta
	Err  error
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("protocol: desync (have %d bytes, delta needs %d): %v", e.Have, e.Want, e.Err)
}

func (e *DesyncError) Unwrap() error { return e.Err }

func IsDesync(err error) bool {
	var de *DesyncError
	return errors.As(err, &de)
}

func IsFormat(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
