package framed

import (
	"errors"
	"fmt"
	"net"
)

// Errors returned by adapter construction and operations.
var (
	// ErrInvalidTransport is returned when no transport is provided.
	ErrInvalidTransport = errors.New("invalid transport")
	// ErrInvalidCodec is returned when no codec is provided.
	ErrInvalidCodec = errors.New("invalid codec")
	// ErrInvalidDecodeMode is returned when the decode mode is not DecodeSingle or DecodeRepeat.
	ErrInvalidDecodeMode = errors.New("invalid decode mode")
	// ErrReleased is returned when operating on a Framed after Release.
	ErrReleased = errors.New("framed adapter released")
)

// ErrWouldBlock reports that an operation cannot make progress without
// blocking. It is a suspension signal, not a failure: retry later.
var ErrWouldBlock = errors.New("operation would block")

// ErrBytesRemaining is returned by the default end-of-datagram decode when
// the codec leaves bytes it cannot turn into a frame.
var ErrBytesRemaining = errors.New("bytes remaining in datagram")

// ErrIncompleteWrite matches any *IncompleteWriteError via errors.Is.
var ErrIncompleteWrite = errors.New("failed to write entire datagram")

// IncompleteWriteError reports that the transport accepted only part of a
// datagram. A datagram cannot be half sent, so this is fatal for the
// buffered frame and is never retried by the adapter.
type IncompleteWriteError struct {
	Addr     net.Addr
	Written  int
	Expected int
}

func (e *IncompleteWriteError) Error() string {
	return fmt.Sprintf("%v to %v: wrote %d of %d bytes", ErrIncompleteWrite, e.Addr, e.Written, e.Expected)
}

// Is reports whether target is ErrIncompleteWrite.
func (e *IncompleteWriteError) Is(target error) bool {
	return target == ErrIncompleteWrite
}

// DecodeError wraps a failure reported by the codec while decoding.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode frame: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError wraps a failure reported by the codec while encoding.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return "encode frame: " + e.Err.Error()
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
