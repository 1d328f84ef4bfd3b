package rlp

import "github.com/pkg/errors"

var (
	// ErrTruncated is returned when the input ends before a declared
	// length has been fully consumed.
	ErrTruncated = errors.New("rlp: truncated input")

	// ErrMaxFrameSize is returned when a declared byte-string or list
	// payload length exceeds the configured maximum before any payload
	// bytes are read, so a hostile length prefix cannot force a large
	// allocation.
	ErrMaxFrameSize = errors.New("rlp: declared length exceeds maximum frame size")

	// ErrNonCanonicalSize is returned when a long-form length prefix is
	// not the minimal encoding of its value (e.g. a leading zero byte, or
	// a long form used where the short form would have sufficed).
	ErrNonCanonicalSize = errors.New("rlp: non-canonical size prefix")

	// ErrTrailingData is returned by DecodeBytes when bytes remain after
	// a complete Value has been consumed.
	ErrTrailingData = errors.New("rlp: trailing data after value")
)
