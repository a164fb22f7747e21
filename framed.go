// Package framed turns a datagram transport into a duplex channel of frames.
// A Codec decodes received datagrams into frames and encodes outgoing frames
// into datagrams, while Framed keeps the per-datagram source and destination
// addresses attached to every frame.
//
// Framed is a poll-style state machine: every call performs at most one
// non-blocking transport operation and returns ErrWouldBlock instead of
// waiting. Conn drives a Framed from goroutines for callers that prefer a
// callback API.
package framed

import (
	"fmt"
	"net"
	"strings"
)

// DecodeMode selects how received datagrams are decoded.
type DecodeMode int

const (
	// DecodeSingle decodes each datagram exactly once. At most one frame is
	// produced per datagram; bytes the codec leaves behind are discarded.
	DecodeSingle DecodeMode = iota + 1
	// DecodeRepeat keeps decoding a datagram, treating its end as end of
	// input, until the codec yields nothing. Every frame carries the
	// datagram's source address.
	DecodeRepeat
)

func (m DecodeMode) String() string {
	switch m {
	case DecodeSingle:
		return "single"
	case DecodeRepeat:
		return "repeat"
	default:
		return fmt.Sprintf("DecodeMode(%d)", int(m))
	}
}

// ParseDecodeMode parses "single" or "repeat".
func ParseDecodeMode(s string) (DecodeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single":
		return DecodeSingle, nil
	case "repeat":
		return DecodeRepeat, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDecodeMode, s)
	}
}

// Buffer sizes.
const (
	// MaxDatagramSize is the spare capacity reserved before every receive,
	// enough for any UDP datagram.
	MaxDatagramSize = 64 * 1024
	// initialWriteCapacity is the initial capacity of the send buffer.
	initialWriteCapacity = 8 * 1024
)

// Framed is a frame producer and a frame consumer over one Transport.
//
// One goroutine may call ReadFrame while another calls WriteFrame, Flush or
// Close: the two sides share only the transport and the codec. Two
// concurrent readers or two concurrent writers are not allowed.
//
// A frame accepted by WriteFrame but never flushed is lost when the Framed
// is dropped or released.
type Framed[T any] struct {
	transport Transport
	codec     Codec[T]
	mode      DecodeMode

	rd readPipeline[T]
	wr writePipeline[T]
}

// New creates a Framed over the given transport and codec.
// The decode mode has no default; callers pick DecodeSingle or DecodeRepeat.
func New[T any](t Transport, c Codec[T], mode DecodeMode) (*Framed[T], error) {
	if t == nil {
		return nil, ErrInvalidTransport
	}

	if c == nil {
		return nil, ErrInvalidCodec
	}

	if mode != DecodeSingle && mode != DecodeRepeat {
		return nil, ErrInvalidDecodeMode
	}

	return &Framed[T]{
		transport: t,
		codec:     c,
		mode:      mode,
		rd:        newReadPipeline[T](mode),
		wr:        newWritePipeline[T](),
	}, nil
}

// ReadFrame returns the next decoded frame and the address of the datagram
// it came from.
//
// Returns:
//   - frame, addr, true, nil: a frame was decoded
//   - zero, nil, false, nil: the datagram received by this call produced
//     no frame; this is not the end of input, call again
//   - ErrWouldBlock: no datagram is available yet
//   - *DecodeError: the codec failed; returned again on every call until
//     DiscardDatagram
//   - any other error: passed through from the transport
func (f *Framed[T]) ReadFrame() (T, net.Addr, bool, error) {
	if f.transport == nil {
		var zero T
		return zero, nil, false, ErrReleased
	}
	return f.rd.next(f.transport, f.codec)
}

// DiscardDatagram drops any bytes left from the current datagram and clears
// a decode failure, so the next ReadFrame receives a fresh datagram.
func (f *Framed[T]) DiscardDatagram() {
	f.rd.discard()
}

// WriteFrame encodes frame for delivery to addr.
//
// If the previously accepted frame has not been sent yet, WriteFrame first
// tries to flush it. When that flush would block the new frame is rejected:
// WriteFrame returns false and a nil error, nothing is encoded, and the
// caller should retry with the same frame later.
//
// An encode failure returns *EncodeError and leaves the send buffer as it
// was. Accepting a frame does not send it; call Flush.
func (f *Framed[T]) WriteFrame(frame T, addr net.Addr) (bool, error) {
	if f.transport == nil {
		return false, ErrReleased
	}
	return f.wr.accept(f.transport, f.codec, frame, addr)
}

// Flush sends the buffered frame, if any, as a single datagram.
//
// Returns nil without touching the transport when nothing is buffered,
// ErrWouldBlock when the transport cannot send yet, and an
// *IncompleteWriteError when the transport took only part of the datagram.
// After an incomplete write every write operation returns that error until
// DiscardPending.
func (f *Framed[T]) Flush() error {
	if f.transport == nil {
		return ErrReleased
	}
	return f.wr.flush(f.transport)
}

// Close flushes the buffered frame. It returns ErrWouldBlock while the
// flush is pending and never closes the transport.
func (f *Framed[T]) Close() error {
	return f.Flush()
}

// DiscardPending drops the buffered frame and clears a write failure.
func (f *Framed[T]) DiscardPending() {
	f.wr.discard()
}

// Flushed reports whether every accepted frame has been sent.
func (f *Framed[T]) Flushed() bool {
	return f.wr.state == writeIdle
}

// Pending returns the number of encoded bytes waiting to be sent.
func (f *Framed[T]) Pending() int {
	return f.wr.buf.Len()
}

// Mode returns the decode mode chosen at construction.
func (f *Framed[T]) Mode() DecodeMode {
	return f.mode
}

// Transport returns the underlying transport.
//
// Receiving or sending on it directly bypasses the frame pipelines and may
// interleave with frames in flight; use it for out-of-band operations only.
func (f *Framed[T]) Transport() Transport {
	return f.transport
}

// Codec returns the codec.
func (f *Framed[T]) Codec() Codec[T] {
	return f.codec
}

// Release detaches and returns the transport and codec. Buffered bytes,
// including an unflushed frame, are dropped, and every later operation on
// f returns ErrReleased.
func (f *Framed[T]) Release() (Transport, Codec[T]) {
	t, c := f.transport, f.codec
	f.transport = nil
	f.codec = nil
	f.rd.discard()
	f.wr.discard()
	return t, c
}
