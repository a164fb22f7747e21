package codec

import (
	"encoding/binary"
	"errors"

	"github.com/Zereker/framed"
)

// ErrFrameTooLarge is returned when a frame does not fit a 2-byte length.
var ErrFrameTooLarge = errors.New("frame too large")

// lengthHeaderSize is the size of the big-endian length prefix.
const lengthHeaderSize = 2

// maxLengthPrefixed is the largest payload a 2-byte header can describe.
const maxLengthPrefixed = 1<<16 - 1

// LengthPrefixed frames binary payloads with a 2-byte big-endian length.
// Several frames may be packed into one datagram and read back in repeat
// mode. A truncated trailing frame is reported as framed.ErrBytesRemaining.
//
//	+--------+-----------------+
//	| Length | Payload         |
//	| uint16 | (Length bytes)  |
//	+--------+-----------------+
type LengthPrefixed struct{}

// Decode returns the next payload once it is fully buffered.
func (LengthPrefixed) Decode(buf *framed.Buffer) ([]byte, bool, error) {
	if buf.Len() < lengthHeaderSize {
		return nil, false, nil
	}

	n := int(binary.BigEndian.Uint16(buf.Bytes()))
	if buf.Len() < lengthHeaderSize+n {
		return nil, false, nil
	}

	buf.Advance(lengthHeaderSize)
	payload := make([]byte, n)
	copy(payload, buf.Next(n))
	return payload, true, nil
}

// Encode appends the length header and payload.
func (LengthPrefixed) Encode(payload []byte, dst *framed.Buffer) error {
	if len(payload) > maxLengthPrefixed {
		return ErrFrameTooLarge
	}

	var header [lengthHeaderSize]byte
	binary.BigEndian.PutUint16(header[:], uint16(len(payload)))
	_, _ = dst.Write(header[:])
	_, _ = dst.Write(payload)
	return nil
}
