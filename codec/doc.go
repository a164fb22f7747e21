// Package codec provides ready-made codecs for framed:
//
//   - Lines: newline-delimited text frames
//   - LengthPrefixed: binary frames with a 2-byte big-endian length header
//   - Raw: the whole datagram is one frame
//
// All codecs here are stateless and safe for concurrent Decode and Encode.
package codec
