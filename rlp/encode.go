package rlp

import (
	"encoding/binary"
	"fmt"
	"io"
)

// EncodeToBytes returns the RLP encoding of v.
func EncodeToBytes(v Value) ([]byte, error) {
	return appendEncoded(nil, v)
}

// Encode writes the RLP encoding of v to w in a single call.
func Encode(w io.Writer, v Value) error {
	b, err := appendEncoded(nil, v)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func appendEncoded(buf []byte, v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return appendBytes(buf, nil), nil
	case []byte:
		return appendBytes(buf, val), nil
	case []Value:
		return appendList(buf, val)
	default:
		return nil, fmt.Errorf("rlp: cannot encode value of type %T", v)
	}
}

func appendBytes(buf []byte, s []byte) []byte {
	if len(s) == 1 && s[0] < 0x80 {
		return append(buf, s[0])
	}
	if len(s) <= 55 {
		buf = append(buf, byte(0x80+len(s)))
		return append(buf, s...)
	}
	lb := minimalBigEndian(uint64(len(s)))
	buf = append(buf, byte(0xB7+len(lb)))
	buf = append(buf, lb...)
	return append(buf, s...)
}

func appendList(buf []byte, elems []Value) ([]byte, error) {
	var payload []byte
	for _, e := range elems {
		var err error
		payload, err = appendEncoded(payload, e)
		if err != nil {
			return nil, err
		}
	}
	if len(payload) <= 55 {
		buf = append(buf, byte(0xC0+len(payload)))
		return append(buf, payload...), nil
	}
	lb := minimalBigEndian(uint64(len(payload)))
	buf = append(buf, byte(0xF7+len(lb)))
	buf = append(buf, lb...)
	return append(buf, payload...), nil
}

// minimalBigEndian returns the shortest big-endian encoding of n. n is
// always > 55 at call sites (the short form covers 0..55), so the result
// is never empty.
func minimalBigEndian(n uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], n)
	i := 0
	for i < 7 && tmp[i] == 0 {
		i++
	}
	return tmp[i:]
}
