package rlp

import (
	"bytes"
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/require"
)

func TestEncodeVectors(t *testing.T) {
	cases := []struct {
		name string
		in   Value
		want []byte
	}{
		{"empty bytes", []byte{}, []byte{0x80}},
		{"empty list", List(), []byte{0xc0}},
		{"single low byte", []byte{0x0f}, []byte{0x0f}},
		{"two strings", List(String("cat"), String("dog")),
			append([]byte{0xc8, 0x83}, append([]byte("cat"), append([]byte{0x83}, []byte("dog")...)...)...)},
		{"nested empties", List(List(), List(List()), List(List(), List(List()))),
			[]byte{0xc7, 0xc0, 0xc1, 0xc0, 0xc3, 0xc0, 0xc1, 0xc0}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := EncodeToBytes(c.in)
			require.NoError(t, err)
			require.Equal(t, c.want, got)
		})
	}
}

func TestDecodeVectors(t *testing.T) {
	dog := append([]byte{0xcd, 0x83}, append([]byte("dog"), append([]byte{0x83}, append([]byte("god"), append([]byte{0x83}, append([]byte("cat"), 0x01)...)...)...)...)...)
	v, n, err := Decode(dog)
	require.NoError(t, err)
	require.Equal(t, len(dog), n)
	elems := Elems(v)
	require.Equal(t, "dog", string(Bytes(elems[0])))
	require.Equal(t, byte(1), Bytes(elems[3])[0])
}

func TestLargeList(t *testing.T) {
	chunk := bytes.Repeat([]byte{0}, 1024)
	elems := make([]Value, 1000)
	for i := range elems {
		elems[i] = chunk
	}
	v := List(elems...)
	encoded, err := EncodeToBytes(v)
	require.NoError(t, err)
	decoded, n, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n)
	require.True(t, Equal(v, decoded))
}

func TestRoundTripProperty(t *testing.T) {
	f := func(v genValue) bool {
		enc, err := EncodeToBytes(v.Value)
		if err != nil {
			return false
		}
		dec, n, err := Decode(enc)
		if err != nil || n != len(enc) {
			return false
		}
		return Equal(v.Value, dec)
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 200}); err != nil {
		t.Error(err)
	}
}

func TestDecodeCanonicalForm(t *testing.T) {
	enc, err := EncodeToBytes(List(String("cat"), String("dog")))
	require.NoError(t, err)
	v, n, err := Decode(enc)
	require.NoError(t, err)
	require.Equal(t, len(enc), n)

	reenc, err := EncodeToBytes(v)
	require.NoError(t, err)
	require.Equal(t, enc, reenc, "decode(encode(v)) must re-encode byte-identically")
}

func TestDecodeRejectsNonCanonical(t *testing.T) {
	// 0x81 0x05: a length-1 byte string below 0x80, should have used the
	// single-byte form directly.
	_, _, err := Decode([]byte{0x81, 0x05})
	require.ErrorIs(t, err, ErrNonCanonicalSize)
}

func TestDecodeRejectsTruncated(t *testing.T) {
	_, _, err := Decode([]byte{0x83, 'c', 'a'})
	require.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeBytesRejectsTrailing(t *testing.T) {
	_, err := DecodeBytes([]byte{0x80, 0x80})
	require.ErrorIs(t, err, ErrTrailingData)
}

// genValue adapts Value to testing/quick.Generator, producing a random,
// depth-bounded tree of byte strings and lists.
type genValue struct{ Value }

func (genValue) Generate(r *rand.Rand, size int) reflect.Value {
	return reflect.ValueOf(genValue{randValue(r, 3)})
}

func randValue(r *rand.Rand, depth int) Value {
	if depth <= 0 || r.Intn(2) == 0 {
		n := r.Intn(40)
		b := make([]byte, n)
		r.Read(b)
		return b
	}
	n := r.Intn(5)
	elems := make([]Value, n)
	for i := range elems {
		elems[i] = randValue(r, depth-1)
	}
	return List(elems...)
}
