package rlp

// Prefix describes the leading byte of an encoded Value, decomposed
// enough for a streaming reader (framedConn) to know how many more
// header bytes to read before the payload length is known, without
// looking at any payload bytes.
type Prefix struct {
	IsList       bool // payload is a concatenation of element encodings
	IsSingleByte bool // the whole value is the lead byte itself
	LenOfLen     int  // number of following big-endian length bytes (0 = short form)
	ShortPayload int  // payload length when LenOfLen == 0 and !IsSingleByte
}

// ParsePrefix decodes the leading byte of a frame.
func ParsePrefix(first byte) Prefix {
	switch {
	case first < 0x80:
		return Prefix{IsSingleByte: true}
	case first <= 0xB7:
		return Prefix{ShortPayload: int(first - 0x80)}
	case first <= 0xBF:
		return Prefix{LenOfLen: int(first - 0xB7)}
	case first <= 0xF7:
		return Prefix{IsList: true, ShortPayload: int(first - 0xC0)}
	default:
		return Prefix{IsList: true, LenOfLen: int(first - 0xF7)}
	}
}

// DecodeLength interprets a long-form length prefix already read by the
// caller (lenBytes has the LenOfLen length reported by ParsePrefix) and
// validates that it is canonical: no leading zero byte, and a value that
// genuinely required the long form (> 55).
func DecodeLength(lenBytes []byte) (int, error) {
	if len(lenBytes) == 0 {
		return 0, ErrTruncated
	}
	if lenBytes[0] == 0 {
		return 0, ErrNonCanonicalSize
	}
	var n uint64
	for _, b := range lenBytes {
		n = n<<8 | uint64(b)
	}
	if n <= 55 {
		return 0, ErrNonCanonicalSize
	}
	if n > 1<<32 {
		// No realistic frame is this large; treat it the same as a
		// declared length that exceeds the buffer.
		return 0, ErrTruncated
	}
	return int(n), nil
}

// Decode consumes one Value from the front of b and returns it along with
// the number of bytes consumed.
func Decode(b []byte) (Value, int, error) {
	if len(b) == 0 {
		return nil, 0, ErrTruncated
	}
	p := ParsePrefix(b[0])
	if p.IsSingleByte {
		return []byte{b[0]}, 1, nil
	}

	headerLen := 1
	payloadLen := p.ShortPayload
	if p.LenOfLen > 0 {
		if len(b) < 1+p.LenOfLen {
			return nil, 0, ErrTruncated
		}
		n, err := DecodeLength(b[1 : 1+p.LenOfLen])
		if err != nil {
			return nil, 0, err
		}
		payloadLen = n
		headerLen = 1 + p.LenOfLen
	}

	if len(b) < headerLen+payloadLen {
		return nil, 0, ErrTruncated
	}
	payload := b[headerLen : headerLen+payloadLen]
	total := headerLen + payloadLen

	if p.IsList {
		elems, err := decodeList(payload)
		if err != nil {
			return nil, 0, err
		}
		return elems, total, nil
	}

	if payloadLen == 1 && payload[0] < 0x80 {
		// Should have used the single-byte form.
		return nil, 0, ErrNonCanonicalSize
	}
	out := make([]byte, payloadLen)
	copy(out, payload)
	return out, total, nil
}

// decodeList decodes elements from payload until it is exhausted.
func decodeList(payload []byte) ([]Value, error) {
	elems := []Value{}
	pos := 0
	for pos < len(payload) {
		v, n, err := Decode(payload[pos:])
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
		pos += n
	}
	return elems, nil
}

// DecodeBytes decodes exactly one Value from b, failing if any bytes
// remain afterwards.
func DecodeBytes(b []byte) (Value, error) {
	v, n, err := Decode(b)
	if err != nil {
		return nil, err
	}
	if n != len(b) {
		return nil, ErrTrailingData
	}
	return v, nil
}
