package framed

import "bytes"

// Buffer is a growable byte buffer with a read cursor.
// The unread region is Bytes(); spare capacity past the written region is
// where the read pipeline receives datagrams without an intermediate copy.
//
// A Buffer is owned by a single Framed. Codecs receive it for the duration
// of one Decode or Encode call and must not retain it or slices of it.
type Buffer struct {
	buf []byte // buf[off:] is unread, cap(buf) is the capacity
	off int
}

// NewBuffer returns an empty Buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, 0, capacity)}
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	return len(b.buf) - b.off
}

// Cap returns the capacity of the underlying storage.
func (b *Buffer) Cap() int {
	return cap(b.buf)
}

// Available returns how many bytes can be written without growing.
func (b *Buffer) Available() int {
	return cap(b.buf) - len(b.buf)
}

// Bytes returns the unread bytes. The slice aliases the buffer and is only
// valid until the next mutating call.
func (b *Buffer) Bytes() []byte {
	return b.buf[b.off:]
}

// IndexByte returns the index of the first c in the unread bytes, or -1.
func (b *Buffer) IndexByte(c byte) int {
	return bytes.IndexByte(b.buf[b.off:], c)
}

// Next returns the next n unread bytes and advances past them.
// The returned slice aliases the buffer; copy it before the buffer is reused.
// It panics if fewer than n bytes are unread.
func (b *Buffer) Next(n int) []byte {
	if n < 0 || n > b.Len() {
		panic("framed: Buffer.Next out of range")
	}
	p := b.buf[b.off : b.off+n]
	b.off += n
	return p
}

// Advance discards the next n unread bytes.
// It panics if fewer than n bytes are unread.
func (b *Buffer) Advance(n int) {
	if n < 0 || n > b.Len() {
		panic("framed: Buffer.Advance out of range")
	}
	b.off += n
	if b.off == len(b.buf) {
		b.Reset()
	}
}

// Truncate keeps the first n unread bytes and drops the rest.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > b.Len() {
		panic("framed: Buffer.Truncate out of range")
	}
	b.buf = b.buf[:b.off+n]
}

// Reset empties the buffer, keeping its capacity.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
	b.off = 0
}

// Reserve makes sure at least n bytes can be written without growing.
// Consumed bytes in front of the cursor are reclaimed first.
func (b *Buffer) Reserve(n int) {
	if b.Available() >= n {
		return
	}
	if b.off > 0 {
		m := copy(b.buf, b.buf[b.off:])
		b.buf = b.buf[:m]
		b.off = 0
		if b.Available() >= n {
			return
		}
	}
	grown := make([]byte, len(b.buf), len(b.buf)+n)
	copy(grown, b.buf)
	b.buf = grown
}

// Write appends p. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// WriteByte appends c. It never fails.
func (b *Buffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// WriteString appends s. It never fails.
func (b *Buffer) WriteString(s string) (int, error) {
	b.buf = append(b.buf, s...)
	return len(s), nil
}

// spare returns the writable region past the written bytes.
func (b *Buffer) spare() []byte {
	return b.buf[len(b.buf):cap(b.buf)]
}

// commit extends the written region by n bytes previously filled via spare.
func (b *Buffer) commit(n int) {
	b.buf = b.buf[:len(b.buf)+n]
}
