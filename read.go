package framed

import "net"

// readState is the state of the read pipeline.
type readState int

const (
	// readIdle: the buffer is empty and the next call receives a datagram.
	readIdle readState = iota
	// readDraining: repeat mode only, the buffer holds bytes of the datagram
	// from src that have not been exhausted yet.
	readDraining
	// readFailed: a decode failed; the error is returned until the caller
	// discards the datagram.
	readFailed
)

// readPipeline owns the receive buffer and the decode-loop state.
type readPipeline[T any] struct {
	mode  DecodeMode
	buf   *Buffer
	state readState
	src   net.Addr
	err   error
}

func newReadPipeline[T any](mode DecodeMode) readPipeline[T] {
	return readPipeline[T]{
		mode: mode,
		buf:  NewBuffer(MaxDatagramSize),
	}
}

// next performs at most one receive and returns the next frame.
func (r *readPipeline[T]) next(t Transport, d Decoder[T]) (T, net.Addr, bool, error) {
	var zero T

	switch r.state {
	case readFailed:
		return zero, nil, false, r.err
	case readDraining:
		frame, ok, err := decodeEOF(d, r.buf)
		if err != nil {
			return zero, nil, false, r.fail(err)
		}
		if ok {
			return frame, r.source(), true, nil
		}
		r.buf.Reset()
		r.src = nil
		r.state = readIdle
	}

	r.buf.Reserve(MaxDatagramSize)
	n, addr, err := t.ReceiveFrom(r.buf.spare())
	if err != nil {
		return zero, nil, false, err
	}
	r.buf.commit(n)

	if r.mode == DecodeSingle {
		// One decode per datagram; whatever is left over is dropped.
		frame, ok, err := d.Decode(r.buf)
		r.buf.Reset()
		if err != nil {
			return zero, nil, false, r.fail(err)
		}
		if !ok {
			return zero, nil, false, nil
		}
		return frame, addr, true, nil
	}

	r.src = addr
	r.state = readDraining

	frame, ok, err := decodeEOF(d, r.buf)
	if err != nil {
		return zero, nil, false, r.fail(err)
	}
	if !ok {
		r.buf.Reset()
		r.src = nil
		r.state = readIdle
		return zero, nil, false, nil
	}

	return frame, r.source(), true, nil
}

// source returns the address of the datagram being drained.
func (r *readPipeline[T]) source() net.Addr {
	if r.src == nil {
		panic("framed: decoding without a source address")
	}
	return r.src
}

func (r *readPipeline[T]) fail(err error) error {
	r.err = &DecodeError{Err: err}
	r.state = readFailed
	return r.err
}

// discard drops buffered bytes and any recorded failure.
func (r *readPipeline[T]) discard() {
	r.buf.Reset()
	r.src = nil
	r.err = nil
	r.state = readIdle
}
