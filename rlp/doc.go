// Package rlp implements the recursive, length-prefixed encoding used to
// frame every message on the wire.
//
// A Value is either a byte string or an ordered list of Values. There is no
// other type: integers, strings and structs are the caller's concern, not
// the codec's. Encoding rules:
//
//   - a single byte below 0x80 encodes as itself
//   - a byte string of length <= 55 encodes as 0x80+len followed by the
//     bytes
//   - a longer byte string encodes as 0xB7+len(lengthBytes), the minimal
//     big-endian length, then the bytes
//   - a list follows the same two-tier scheme with base 0xC0 / 0xF7 over
//     the concatenated encoding of its elements
//
// Decoding rejects truncated input, a declared length that overruns the
// buffer, and a length prefix that is not the minimal encoding of its
// value (non-canonical input).
package rlp
