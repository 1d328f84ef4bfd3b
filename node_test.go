package spore

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/perillaseed/spore/rlp"
)

const pollTimeout = 5 * time.Second
const pollTick = 10 * time.Millisecond

func startNode(t *testing.T, cfg Config) *Node {
	t.Helper()
	n := NewNode(cfg)
	errCh := make(chan error, 1)
	go func() { errCh <- n.Run() }()
	t.Cleanup(func() {
		n.Shutdown()
		require.NoError(t, <-errCh)
	})
	if cfg.ListenAddr != "" {
		require.Eventually(t, func() bool {
			return n.ListenAddr() != ""
		}, pollTimeout, pollTick, "node never started listening")
	}
	return n
}

func mustEndpoint(t *testing.T, addr string) Endpoint {
	t.Helper()
	ep, err := ParseEndpoint(addr)
	require.NoError(t, err)
	return ep
}

func TestConnectionLifecycle(t *testing.T) {
	a := startNode(t, Config{ListenAddr: "127.0.0.1:0"})
	b := startNode(t, Config{
		ListenAddr: "127.0.0.1:0",
		Seeds:      []Endpoint{mustEndpoint(t, a.ListenAddr())},
	})

	require.Eventually(t, func() bool {
		return a.NumConnectedPeers() == 1 && b.NumConnectedPeers() == 1
	}, pollTimeout, pollTick, "peers never converged to a 1-1 overlay")

	aPeers := a.Peers()
	require.Len(t, aPeers, 1)
	require.True(t, aPeers[0].Inbound(), "a dialed nobody; its one peer must be the inbound connection from b")

	a.Shutdown()
	b.Shutdown()

	require.Eventually(t, func() bool {
		return a.NumConnectedPeers() == 0 && b.NumConnectedPeers() == 0
	}, pollTimeout, pollTick, "peers never reached zero after shutdown")
}

func TestHookFiringExactlyOnce(t *testing.T) {
	a := startNode(t, Config{ListenAddr: "127.0.0.1:0"})

	var connects, disconnects int32
	a.OnConnect(func(p *Peer) { atomic.AddInt32(&connects, 1) })
	a.OnDisconnect(func(p *Peer) { atomic.AddInt32(&disconnects, 1) })

	b := startNode(t, Config{
		ListenAddr: "127.0.0.1:0",
		Seeds:      []Endpoint{mustEndpoint(t, a.ListenAddr())},
	})

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&connects) == 1
	}, pollTimeout, pollTick, "on-connect never fired")

	b.Shutdown()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&disconnects) == 1
	}, pollTimeout, pollTick, "on-disconnect never fired")

	require.EqualValues(t, 1, atomic.LoadInt32(&connects))
	require.EqualValues(t, 1, atomic.LoadInt32(&disconnects))
}

func TestUnregisteredMethodDropsSilently(t *testing.T) {
	a := startNode(t, Config{ListenAddr: "127.0.0.1:0"})
	b := startNode(t, Config{
		ListenAddr: "127.0.0.1:0",
		Seeds:      []Endpoint{mustEndpoint(t, a.ListenAddr())},
	})

	received := make(chan string, 1)
	a.Handler("known", func(p *Peer, payload rlp.Value) {
		received <- string(rlp.Bytes(payload))
	})

	require.Eventually(t, func() bool {
		return b.NumConnectedPeers() == 1
	}, pollTimeout, pollTick, "never connected")

	b.Broadcast("unknown", rlp.String("nobody should see this"))
	b.Broadcast("known", rlp.String("hello"))

	select {
	case msg := <-received:
		require.Equal(t, "hello", msg)
	case <-time.After(pollTimeout):
		t.Fatal("known handler never fired")
	}

	select {
	case <-received:
		t.Fatal("a second message arrived; unknown method was not dropped silently")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestThreeNodeConvergence(t *testing.T) {
	a := startNode(t, Config{ListenAddr: "127.0.0.1:0"})
	b := startNode(t, Config{
		ListenAddr: "127.0.0.1:0",
		Seeds:      []Endpoint{mustEndpoint(t, a.ListenAddr())},
	})
	c := startNode(t, Config{
		ListenAddr: "127.0.0.1:0",
		Seeds:      []Endpoint{mustEndpoint(t, a.ListenAddr())},
	})

	require.Eventually(t, func() bool {
		return a.NumConnectedPeers() == 2 &&
			b.NumConnectedPeers() == 2 &&
			c.NumConnectedPeers() == 2
	}, pollTimeout, pollTick, "three-node overlay never fully converged via gossip")
}

func TestLargeFrameRoundTrip(t *testing.T) {
	a := startNode(t, Config{ListenAddr: "127.0.0.1:0"})
	b := startNode(t, Config{
		ListenAddr: "127.0.0.1:0",
		Seeds:      []Endpoint{mustEndpoint(t, a.ListenAddr())},
	})

	// One message whose payload is a list of 1000 entries of 1024 zero
	// bytes each: the nested-list large-frame case, end to end through
	// Broadcast/dispatch rather than the codec alone.
	const entries, entrySize = 1000, 1024
	want := make([]rlp.Value, entries)
	for i := range want {
		want[i] = make([]byte, entrySize)
	}
	sent := rlp.List(want...)

	received := make(chan rlp.Value, 1)
	a.Handler("blob", func(p *Peer, payload rlp.Value) {
		received <- payload
	})

	require.Eventually(t, func() bool {
		return b.NumConnectedPeers() == 1
	}, pollTimeout, pollTick, "never connected")

	b.Broadcast("blob", sent)

	select {
	case got := <-received:
		require.True(t, rlp.IsList(got))
		gotElems := rlp.Elems(got)
		require.Len(t, gotElems, entries)
		for i, e := range gotElems {
			require.Len(t, rlp.Bytes(e), entrySize, "entry %d", i)
		}
		require.True(t, rlp.Equal(got, sent), "decoded payload did not match the sent nested list")
	case <-time.After(pollTimeout):
		t.Fatal("large frame never delivered")
	}
}

func TestRapidReconnect(t *testing.T) {
	a := startNode(t, Config{ListenAddr: "127.0.0.1:0"})

	var delivered int32
	a.Handler("ping", func(p *Peer, payload rlp.Value) {
		atomic.AddInt32(&delivered, 1)
	})

	const cycles = 10
	for i := 0; i < cycles; i++ {
		b := NewNode(Config{
			Seeds: []Endpoint{mustEndpoint(t, a.ListenAddr())},
		})
		errCh := make(chan error, 1)
		go func() { errCh <- b.Run() }()

		require.Eventually(t, func() bool {
			return b.NumConnectedPeers() == 1
		}, pollTimeout, pollTick, "cycle %d never connected", i)

		b.Broadcast("ping", rlp.String("hi"))

		require.Eventually(t, func() bool {
			return atomic.LoadInt32(&delivered) == int32(i+1)
		}, pollTimeout, pollTick, "cycle %d message never delivered", i)

		b.Shutdown()
		require.NoError(t, <-errCh)
	}

	require.EqualValues(t, cycles, atomic.LoadInt32(&delivered))
}
