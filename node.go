package spore

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/perillaseed/spore/internal/event"
	"github.com/perillaseed/spore/rlp"
)

// HandlerFunc handles one inbound application message. Handlers run on
// the Peer's own reader goroutine: a slow handler only throttles that one
// peer's further reads, never another peer's.
type HandlerFunc func(p *Peer, payload rlp.Value)

// PeerHook is called when a peer becomes READY (on-connect) or leaves the
// table (on-disconnect). Hooks run synchronously on whichever goroutine
// triggered the transition and must not block.
type PeerHook func(p *Peer)

// PeerEvent is published on a Node's event feed whenever a peer reaches
// READY and when a peer that fired on-connect leaves the table, for callers that want a pull-style subscription
// instead of (or in addition to) OnConnect/OnDisconnect hooks.
type PeerEvent struct {
	Peer      *Peer
	Connected bool
}

// Node is one overlay participant: it accepts inbound connections, dials
// seeds and discovered peers, maintains the peer table, routes
// application messages to registered handlers, and supports broadcast.
// A Node is safe for concurrent use from any goroutine once Run has been
// called.
type Node struct {
	cfg Config

	mu          sync.Mutex
	peers       map[*Peer]struct{}
	ready       map[*Peer]struct{}
	byEndpoint  map[Endpoint]*Peer
	dialed      map[Endpoint]struct{}
	running     bool
	shutdown    bool

	peerWG sync.WaitGroup

	handlersMu sync.Mutex
	handlers   map[string]HandlerFunc

	hooksMu       sync.Mutex
	onConnect     []PeerHook
	onDisconnect  []PeerHook

	peerFeed event.Feed

	listener net.Listener
	quit     chan struct{}
	quitOnce sync.Once

	dialCh chan Endpoint
}

// NewNode constructs a Node from cfg, filling unset fields with defaults.
// The returned Node is not yet running; call Run to start it.
func NewNode(cfg Config) *Node {
	cfg = cfg.withDefaults()
	return &Node{
		cfg:        cfg,
		peers:      make(map[*Peer]struct{}),
		ready:      make(map[*Peer]struct{}),
		byEndpoint: make(map[Endpoint]*Peer),
		dialed:     make(map[Endpoint]struct{}),
		handlers:   make(map[string]HandlerFunc),
		quit:       make(chan struct{}),
		dialCh:     make(chan Endpoint, defaultMaxActiveDials*4),
	}
}

// Handler registers fn to handle application messages sent under method.
// At most one handler may be registered per method; a second call
// replaces the first. Registering under a reserved method name
// ("getaddr", "addr") panics, since those are never routed to
// application code.
func (n *Node) Handler(method string, fn HandlerFunc) {
	if method == methodGetAddr || method == methodAddr {
		panic("spore: " + method + " is a reserved method name")
	}
	n.handlersMu.Lock()
	defer n.handlersMu.Unlock()
	n.handlers[method] = fn
}

// OnConnect registers fn to be called, in registration order, each time
// a peer reaches READY.
func (n *Node) OnConnect(fn PeerHook) {
	n.hooksMu.Lock()
	defer n.hooksMu.Unlock()
	n.onConnect = append(n.onConnect, fn)
}

// OnDisconnect registers fn to be called, in registration order, each
// time a peer that had reached READY leaves the table. A peer that never
// reached READY does not fire on-disconnect, mirroring that it never
// fired on-connect either.
func (n *Node) OnDisconnect(fn PeerHook) {
	n.hooksMu.Lock()
	defer n.hooksMu.Unlock()
	n.onDisconnect = append(n.onDisconnect, fn)
}

// SubscribeEvents registers ch to receive a PeerEvent for every
// connect/disconnect transition, in addition to (not instead of) the
// OnConnect/OnDisconnect hooks.
func (n *Node) SubscribeEvents(ch chan<- PeerEvent) (event.Subscription, error) {
	return n.peerFeed.Subscribe(ch)
}

// Run starts the listener (if ListenAddr is set) and the dial loop, and
// blocks until Shutdown is called or an unrecoverable listener error
// occurs. It does not return until every peer admitted during its
// lifetime has reached CLOSED. It is an error to call Run more than once.
func (n *Node) Run() error {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return ErrAlreadyRunning
	}
	n.running = true
	n.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if n.cfg.ListenAddr != "" {
		ln, err := net.Listen("tcp", n.cfg.ListenAddr)
		if err != nil {
			return errors.Wrap(err, "spore: listen")
		}
		n.mu.Lock()
		n.listener = ln
		n.mu.Unlock()
		g.Go(func() error { return n.acceptLoop(ln) })
	}

	g.Go(func() error { return n.dialLoop() })

	for _, seed := range n.cfg.Seeds {
		n.considerDialCandidate(seed)
	}

	select {
	case <-n.quit:
	case <-gctx.Done():
		// The accept loop failed: stop the dial loop and every peer too.
		n.Shutdown()
	}
	cancel()
	n.mu.Lock()
	ln := n.listener
	n.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
	err := g.Wait()
	if err != nil && errors.Is(err, context.Canceled) {
		err = nil
	}
	n.peerWG.Wait()
	return err
}

// Shutdown stops the node: the listener and dial loop exit, every peer is
// closed and awaited to CLOSED, and Run returns. Shutdown is idempotent
// and safe to call before, during, or after Run.
func (n *Node) Shutdown() {
	n.quitOnce.Do(func() {
		n.mu.Lock()
		n.shutdown = true
		n.mu.Unlock()
		close(n.quit)
	})

	n.mu.Lock()
	snapshot := make([]*Peer, 0, len(n.peers))
	for p := range n.peers {
		snapshot = append(snapshot, p)
	}
	n.mu.Unlock()

	var wg sync.WaitGroup
	for _, p := range snapshot {
		wg.Add(1)
		go func(p *Peer) {
			defer wg.Done()
			p.Close(ErrServerStopped)
			p.Wait()
		}(p)
	}
	wg.Wait()
}

// Broadcast sends [method, payload] to every currently READY peer. The
// peer table is snapshotted under lock and the lock is released before
// any I/O or callback runs, so a handler invoked as a side effect of
// Broadcast may safely call Broadcast again without deadlocking.
func (n *Node) Broadcast(method string, payload rlp.Value) {
	n.mu.Lock()
	snapshot := make([]*Peer, 0, len(n.peers))
	for p := range n.peers {
		snapshot = append(snapshot, p)
	}
	n.mu.Unlock()

	for _, p := range snapshot {
		if p.State() == stateReady {
			p.send(method, payload)
		}
	}
}

// NumConnectedPeers returns the number of peers currently in READY.
// A peer still in HANDSHAKING (admitted but not yet past the getaddr/addr
// exchange) is not counted, matching that Broadcast only sends to READY
// peers.
func (n *Node) NumConnectedPeers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.ready)
}

// PeerCount is an alias for NumConnectedPeers, matching the teacher's
// Server.PeerCount naming for callers migrating from that shape.
func (n *Node) PeerCount() int {
	return n.NumConnectedPeers()
}

// Peers returns a snapshot of the peer table.
func (n *Node) Peers() []*Peer {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Peer, 0, len(n.peers))
	for p := range n.peers {
		out = append(out, p)
	}
	return out
}

func (n *Node) acceptLoop(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-n.quit:
				return nil
			default:
				return errors.Wrap(err, "spore: accept")
			}
		}
		ep := socketEndpointOf(conn)
		n.addPeer(conn, ep, true)
	}
}

// addPeer admits a newly-established connection (inbound or outbound)
// into the table and starts its goroutine. Duplicate-connection
// suppression by advertised endpoint happens later, in peerBecameReady,
// since the advertised endpoint isn't known until the addr handshake
// completes; addPeer itself only refuses the connection once the node is
// shutting down or the table has reached MaxPeers.
func (n *Node) addPeer(conn net.Conn, socketEndpoint Endpoint, inbound bool) *Peer {
	n.mu.Lock()
	if n.shutdown || len(n.peers) >= n.cfg.MaxPeers {
		n.mu.Unlock()
		conn.Close()
		return nil
	}
	p := newPeer(n, conn, socketEndpoint, inbound)
	n.peers[p] = struct{}{}
	n.mu.Unlock()

	n.peerWG.Add(1)
	go p.run()
	return p
}

// peerBecameReady is called by Peer.markReady exactly once per peer. It
// performs duplicate-connection suppression: if a different peer already
// holds this advertised endpoint, the loser chosen by shouldKeepIncumbent
// is closed. A losing newcomer never fires on-connect; a losing incumbent
// stays in the table until its own teardown removes it and fires
// on-disconnect.
func (n *Node) peerBecameReady(p *Peer) {
	adv, _ := p.AdvertisedEndpoint()
	self := n.selfEndpoint()
	if !adv.IsSentinel() && !self.IsSentinel() && adv == self {
		p.Close(ErrSelfConnect)
		return
	}

	var loser *Peer
	n.mu.Lock()
	if !adv.IsSentinel() {
		if existing, ok := n.byEndpoint[adv]; ok && existing != p {
			if n.shouldKeepIncumbent(existing, p) {
				loser = p
			} else {
				loser = existing
				delete(n.byEndpoint, adv)
				n.byEndpoint[adv] = p
			}
		} else {
			n.byEndpoint[adv] = p
		}
	}
	if loser != p {
		n.ready[p] = struct{}{}
	}
	n.mu.Unlock()

	if loser != nil {
		loser.Close(ErrDuplicatePeer)
		if loser == p {
			return
		}
	}

	n.hooksMu.Lock()
	hooks := append([]PeerHook(nil), n.onConnect...)
	n.hooksMu.Unlock()
	for _, h := range hooks {
		h(p)
	}
	n.peerFeed.Send(PeerEvent{Peer: p, Connected: true})
}

// shouldKeepIncumbent resolves a collision: two peers have both reached
// READY advertising the same endpoint. It runs with n.mu held. When the
// two connections run in opposite directions (a mutual simultaneous
// dial), the one dialed by the node whose advertised endpoint is
// lexicographically smaller is kept, so both sides of the race
// independently agree on the same winner. Otherwise the newcomer loses.
func (n *Node) shouldKeepIncumbent(incumbent, newcomer *Peer) bool {
	if incumbent.Inbound() == newcomer.Inbound() || n.listener == nil {
		return true
	}
	adv, _ := newcomer.AdvertisedEndpoint()
	selfDialsWinner := endpointLess(addrToEndpoint(n.listener.Addr()), adv)
	return incumbent.Inbound() != selfDialsWinner
}

// removePeer is called by Peer.teardown exactly once per peer. It
// removes the peer from the table and, if the peer was admitted to the
// READY set (and so fired on-connect), fires on-disconnect.
func (n *Node) removePeer(p *Peer, reason error) {
	adv, wasReady := p.AdvertisedEndpoint()

	n.mu.Lock()
	_, connected := n.ready[p]
	delete(n.peers, p)
	delete(n.ready, p)
	if wasReady {
		if cur, ok := n.byEndpoint[adv]; ok && cur == p {
			delete(n.byEndpoint, adv)
		}
		delete(n.dialed, adv)
	}
	n.mu.Unlock()

	if !connected {
		return
	}

	n.hooksMu.Lock()
	hooks := append([]PeerHook(nil), n.onDisconnect...)
	n.hooksMu.Unlock()
	for _, h := range hooks {
		h(p)
	}
	n.peerFeed.Send(PeerEvent{Peer: p, Connected: false})
}

// dispatchApplication routes one decoded application message to its
// registered handler, if any; messages under an unregistered method are
// dropped silently. A handler panic is recovered and logged, not
// propagated: one misbehaving handler must not tear down the peer or any
// other goroutine.
func (n *Node) dispatchApplication(p *Peer, method string, payload rlp.Value) {
	n.handlersMu.Lock()
	fn, ok := n.handlers[method]
	n.handlersMu.Unlock()
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("method", method).WithField("panic", r).Error("handler panicked")
		}
	}()
	fn(p, payload)
}

// selfEndpoint returns the endpoint this node advertises to peers: its
// listen endpoint if it accepts inbound connections, else the sentinel.
func (n *Node) selfEndpoint() Endpoint {
	n.mu.Lock()
	ln := n.listener
	n.mu.Unlock()
	if ln == nil {
		return sentinel
	}
	return addrToEndpoint(ln.Addr())
}

// ListenAddr returns the actual address the node is listening on, useful
// when ListenAddr was configured with an OS-assigned port (":0"). It
// returns the empty string until the listener has started.
func (n *Node) ListenAddr() string {
	n.mu.Lock()
	ln := n.listener
	n.mu.Unlock()
	if ln == nil {
		return ""
	}
	return ln.Addr().String()
}

// sampleKnownEndpoints returns up to k advertised endpoints drawn from
// the current peer table, for use in a getaddr response.
func (n *Node) sampleKnownEndpoints(k int) []Endpoint {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Endpoint, 0, k)
	for ep := range n.byEndpoint {
		if len(out) >= k {
			break
		}
		out = append(out, ep)
	}
	return out
}

// considerDialCandidate enqueues ep for dialing if it isn't already a
// known peer and hasn't already been dialed.
func (n *Node) considerDialCandidate(ep Endpoint) {
	if ep.IsSentinel() {
		return
	}
	n.mu.Lock()
	if n.shutdown {
		n.mu.Unlock()
		return
	}
	if _, ok := n.byEndpoint[ep]; ok {
		n.mu.Unlock()
		return
	}
	if _, ok := n.dialed[ep]; ok {
		n.mu.Unlock()
		return
	}
	n.dialed[ep] = struct{}{}
	n.mu.Unlock()

	select {
	case n.dialCh <- ep:
	case <-n.quit:
	}
}
