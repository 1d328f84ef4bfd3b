// Package spore is an embeddable peer-to-peer overlay networking library:
// a codec-framed TCP transport, a lightweight discovery protocol built on
// two reserved methods (getaddr/addr), and a Node type that accepts
// connections, dials seeds, maintains a peer table, and routes
// application messages to handlers registered by method name.
//
// A minimal host application looks like:
//
//	n := spore.NewNode(spore.Config{
//		ListenAddr: ":4000",
//		Seeds:      []spore.Endpoint{{Host: "10.0.0.2", Port: 4000}},
//	})
//	n.Handler("chat", func(p *spore.Peer, payload rlp.Value) { ... })
//	n.OnConnect(func(p *spore.Peer) { ... })
//	go n.Run()
//	n.Broadcast("chat", rlp.String("hello"))
//	n.Shutdown()
//
// The wire codec is in the rlp subpackage: a recursive length-prefixed
// binary encoding of a Value sum type (a byte string, or a list of
// Values), independent of the networking layer above it.
package spore
