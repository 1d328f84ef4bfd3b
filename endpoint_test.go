package spore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/perillaseed/spore/rlp"
)

func TestEndpointParseAndString(t *testing.T) {
	ep, err := ParseEndpoint("10.0.0.5:4000")
	require.NoError(t, err)
	require.Equal(t, Endpoint{Host: "10.0.0.5", Port: 4000}, ep)
	require.Equal(t, "10.0.0.5:4000", ep.String())
}

func TestEndpointParseInvalid(t *testing.T) {
	_, err := ParseEndpoint("not-an-endpoint")
	require.Error(t, err)

	_, err = ParseEndpoint("host:notaport")
	require.Error(t, err)
}

func TestSentinelEndpoint(t *testing.T) {
	require.True(t, sentinel.IsSentinel())
	require.True(t, Endpoint{}.IsSentinel())
	require.False(t, Endpoint{Host: "x", Port: 1}.IsSentinel())
}

func TestEndpointWireRoundTrip(t *testing.T) {
	cases := []Endpoint{
		{Host: "127.0.0.1", Port: 4000},
		{Host: "", Port: 0},
		{Host: "::1", Port: 65535},
		{Host: "example.org", Port: 80},
	}
	for _, ep := range cases {
		encoded := ep.encode()
		decoded, err := decodeEndpoint(encoded)
		require.NoError(t, err)
		require.Equal(t, ep, decoded)
	}
}

func TestDecodeEndpointRejectsMalformed(t *testing.T) {
	_, err := decodeEndpoint(rlp.String("not a list"))
	require.Error(t, err)

	_, err = decodeEndpoint(rlp.List(rlp.String("only one elem")))
	require.Error(t, err)

	_, err = decodeEndpoint(rlp.List(rlp.List(), []byte{0}))
	require.Error(t, err)

	_, err = decodeEndpoint(rlp.List(rlp.String("host"), []byte{1, 2, 3}))
	require.Error(t, err)
}

func TestEndpointLessIsAntisymmetricTieBreak(t *testing.T) {
	a := Endpoint{Host: "10.0.0.1", Port: 1000}
	b := Endpoint{Host: "10.0.0.2", Port: 1000}
	require.True(t, endpointLess(a, b))
	require.False(t, endpointLess(b, a))
	require.False(t, endpointLess(a, a))
}
