package codec

import (
	"errors"
	"strings"

	"github.com/Zereker/framed"
)

var (
	// ErrLineTooLong is returned when a line exceeds Lines.MaxLength.
	ErrLineTooLong = errors.New("line too long")
	// ErrNewlineInFrame is returned when encoding a frame that contains '\n'.
	ErrNewlineInFrame = errors.New("newline in line frame")
)

// Lines splits input on '\n'. A frame is the text before the newline; the
// newline itself is consumed but not returned.
//
// At the end of a datagram, trailing bytes without a newline form one last
// frame.
type Lines struct {
	// MaxLength limits the length of a line, excluding the newline.
	// Zero means no limit.
	MaxLength int
}

// Decode returns the next complete line.
func (l Lines) Decode(buf *framed.Buffer) (string, bool, error) {
	i := buf.IndexByte('\n')
	if i < 0 {
		if l.MaxLength > 0 && buf.Len() > l.MaxLength {
			return "", false, ErrLineTooLong
		}
		return "", false, nil
	}

	if l.MaxLength > 0 && i > l.MaxLength {
		return "", false, ErrLineTooLong
	}

	line := string(buf.Next(i))
	buf.Advance(1)
	return line, true, nil
}

// DecodeEOF returns the next line, or the unterminated remainder.
func (l Lines) DecodeEOF(buf *framed.Buffer) (string, bool, error) {
	line, ok, err := l.Decode(buf)
	if err != nil || ok {
		return line, ok, err
	}

	if buf.Len() == 0 {
		return "", false, nil
	}

	return string(buf.Next(buf.Len())), true, nil
}

// Encode appends line and a newline.
func (l Lines) Encode(line string, dst *framed.Buffer) error {
	if strings.IndexByte(line, '\n') >= 0 {
		return ErrNewlineInFrame
	}

	if l.MaxLength > 0 && len(line) > l.MaxLength {
		return ErrLineTooLong
	}

	_, _ = dst.WriteString(line)
	return dst.WriteByte('\n')
}
