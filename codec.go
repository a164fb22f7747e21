package framed

// Decoder turns buffered bytes into frames.
//
// Decode inspects buf and either returns a frame with ok set, advancing buf
// past the consumed bytes, or returns ok == false when buf does not yet hold
// a complete frame. A Decoder may keep partial-frame state of its own.
type Decoder[T any] interface {
	Decode(buf *Buffer) (frame T, ok bool, err error)
}

// EOFDecoder is implemented by decoders that can emit a final frame once the
// end of the input is reached. In repeat mode the end of every datagram is
// treated as end of input, so line-like codecs without a trailing terminator
// still produce their last frame.
type EOFDecoder[T any] interface {
	DecodeEOF(buf *Buffer) (frame T, ok bool, err error)
}

// Encoder appends the encoded form of a frame to dst.
type Encoder[T any] interface {
	Encode(frame T, dst *Buffer) error
}

// Codec is the interface for frame encoding and decoding.
// Applications implement it to define their own wire format; the adapter
// never depends on a concrete format.
type Codec[T any] interface {
	Decoder[T]
	Encoder[T]
}

// decodeEOF calls DecodeEOF when d implements EOFDecoder. Otherwise it falls
// back to Decode and reports ErrBytesRemaining if no frame came out while
// bytes are still buffered.
func decodeEOF[T any](d Decoder[T], buf *Buffer) (T, bool, error) {
	if e, ok := d.(EOFDecoder[T]); ok {
		return e.DecodeEOF(buf)
	}

	frame, ok, err := d.Decode(buf)
	if err != nil || ok {
		return frame, ok, err
	}

	if buf.Len() > 0 {
		return frame, false, ErrBytesRemaining
	}

	return frame, false, nil
}
