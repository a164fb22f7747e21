package framed

import (
	"errors"
	"net"
)

// writeState is the state of the write pipeline.
type writeState int

const (
	// writeIdle: nothing buffered, Flushed() is true.
	writeIdle writeState = iota
	// writeBuffered: an encoded frame waits to be sent to dest.
	writeBuffered
	// writeFailed: the last send was truncated; the error sticks until
	// the caller discards the pending frame.
	writeFailed
)

// writePipeline owns the send buffer, the destination and flush state.
type writePipeline[T any] struct {
	buf   *Buffer
	state writeState
	dest  net.Addr
	err   error
}

func newWritePipeline[T any]() writePipeline[T] {
	return writePipeline[T]{buf: NewBuffer(initialWriteCapacity)}
}

// accept encodes frame for addr once the previous frame is flushed.
// It returns false with a nil error when the previous frame is still
// waiting on the transport; the caller keeps the frame and retries.
func (w *writePipeline[T]) accept(t Transport, e Encoder[T], frame T, addr net.Addr) (bool, error) {
	switch w.state {
	case writeFailed:
		return false, w.err
	case writeBuffered:
		if err := w.flush(t); err != nil {
			if errors.Is(err, ErrWouldBlock) {
				return false, nil
			}
			return false, err
		}
	}

	mark := w.buf.Len()
	if err := e.Encode(frame, w.buf); err != nil {
		w.buf.Truncate(mark)
		return false, &EncodeError{Err: err}
	}

	w.dest = addr
	w.state = writeBuffered
	return true, nil
}

// flush sends the whole buffer as one datagram.
func (w *writePipeline[T]) flush(t Transport) error {
	switch w.state {
	case writeIdle:
		return nil
	case writeFailed:
		return w.err
	}

	n, err := t.SendTo(w.buf.Bytes(), w.dest)
	if err != nil {
		return err
	}

	if n != w.buf.Len() {
		w.err = &IncompleteWriteError{Addr: w.dest, Written: n, Expected: w.buf.Len()}
		w.state = writeFailed
		return w.err
	}

	w.buf.Reset()
	w.dest = nil
	w.state = writeIdle
	return nil
}

// discard drops the buffered frame and any recorded failure.
func (w *writePipeline[T]) discard() {
	w.buf.Reset()
	w.dest = nil
	w.err = nil
	w.state = writeIdle
}
