package codec

import "github.com/Zereker/framed"

// Raw treats all buffered bytes as one frame. With framed.DecodeSingle each
// non-empty datagram becomes exactly one frame.
type Raw struct{}

// Decode returns a copy of every buffered byte.
func (Raw) Decode(buf *framed.Buffer) ([]byte, bool, error) {
	if buf.Len() == 0 {
		return nil, false, nil
	}

	frame := make([]byte, buf.Len())
	copy(frame, buf.Next(buf.Len()))
	return frame, true, nil
}

// Encode appends payload unchanged.
func (Raw) Encode(payload []byte, dst *framed.Buffer) error {
	_, _ = dst.Write(payload)
	return nil
}
