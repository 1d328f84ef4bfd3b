package spore

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/perillaseed/spore/rlp"
)

func TestFramedConnRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc := newFramedConn(client, defaultMaxFrameSize)
	sc := newFramedConn(server, defaultMaxFrameSize)

	done := make(chan error, 1)
	go func() { done <- cc.WriteMsg("chat", rlp.String("hello")) }()

	v, err := sc.ReadMsg()
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.True(t, rlp.IsList(v))
	elems := rlp.Elems(v)
	require.Len(t, elems, 2)
	require.Equal(t, "chat", string(rlp.Bytes(elems[0])))
	require.Equal(t, "hello", string(rlp.Bytes(elems[1])))
}

func TestFramedConnLargePayload(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc := newFramedConn(client, defaultMaxFrameSize)
	sc := newFramedConn(server, defaultMaxFrameSize)

	payload := make([]byte, 200000)
	for i := range payload {
		payload[i] = byte(i)
	}

	done := make(chan error, 1)
	go func() { done <- cc.WriteMsg("blob", payload) }()

	v, err := sc.ReadMsg()
	require.NoError(t, err)
	require.NoError(t, <-done)

	elems := rlp.Elems(v)
	require.Equal(t, payload, rlp.Bytes(elems[1]))
}

func TestFramedConnRejectsOversizeFrame(t *testing.T) {
	client, server := net.Pipe()

	cc := newFramedConn(client, 1024*1024)
	sc := newFramedConn(server, 16) // tiny limit on the reading side

	payload := make([]byte, 1000)

	done := make(chan error, 1)
	go func() { done <- cc.WriteMsg("blob", payload) }()

	_, err := sc.ReadMsg()
	require.ErrorIs(t, err, rlp.ErrMaxFrameSize)

	// ReadMsg returned before consuming the payload bytes, so the
	// in-flight Write is stuck; closing both ends unblocks it.
	client.Close()
	server.Close()
	<-done
}

func TestFramedConnCleanCloseIsEOF(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	sc := newFramedConn(server, defaultMaxFrameSize)
	client.Close()

	_, err := sc.ReadMsg()
	require.ErrorIs(t, err, io.EOF)
}
