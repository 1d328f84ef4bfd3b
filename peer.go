package spore

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/perillaseed/spore/internal/mclock"
	"github.com/perillaseed/spore/rlp"
)

// peerState is a Peer's position in the HANDSHAKING -> READY -> CLOSING
// -> CLOSED state machine.
type peerState int32

const (
	stateHandshaking peerState = iota
	stateReady
	stateClosing
	stateClosed
)

func (s peerState) String() string {
	switch s {
	case stateHandshaking:
		return "HANDSHAKING"
	case stateReady:
		return "READY"
	case stateClosing:
		return "CLOSING"
	case stateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// outFrame is one [method, payload] waiting in the send queue; it is not
// encoded until the writer loop writes it.
type outFrame struct {
	method  string
	payload rlp.Value
}

// Peer is one logical remote endpoint: its socket, its advertised listen
// endpoint once learned, a bounded outbound queue, and its lifecycle
// state. The zero value is not usable; peers are created by Node's accept
// and dial paths via newPeer.
type Peer struct {
	node   *Node
	conn   *framedConn
	socketEndpoint Endpoint
	inbound        bool

	state int32 // peerState, accessed atomically

	mu         sync.Mutex
	advertised Endpoint
	hasAdvertised bool

	sendCh chan outFrame
	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{} // closed when run() returns, after teardown completes

	created mclock.AbsTime
	log     *logrus.Entry

	wg sync.WaitGroup
}

func newPeer(node *Node, conn net.Conn, socketEndpoint Endpoint, inbound bool) *Peer {
	p := &Peer{
		node:           node,
		conn:           newFramedConn(conn, node.cfg.MaxFrameSize),
		socketEndpoint: socketEndpoint,
		inbound:        inbound,
		state:          int32(stateHandshaking),
		sendCh:         make(chan outFrame, node.cfg.SendQueueSize),
		closed:         make(chan struct{}),
		done:           make(chan struct{}),
		created:        mclock.Now(),
	}
	p.log = node.cfg.Logger.WithField("addr", socketEndpoint.String()).WithField("inbound", inbound)
	return p
}

// State returns the peer's current lifecycle state.
func (p *Peer) State() peerState {
	return peerState(atomic.LoadInt32(&p.state))
}

// String identifies the peer for logging: its advertised endpoint once
// known, else its socket endpoint.
func (p *Peer) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hasAdvertised {
		return p.advertised.String()
	}
	return p.socketEndpoint.String()
}

// AdvertisedEndpoint returns the peer's advertised listen endpoint, valid
// once the peer has reached READY. The second return is false before then.
func (p *Peer) AdvertisedEndpoint() (Endpoint, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.advertised, p.hasAdvertised
}

// SocketEndpoint returns the OS-observed remote endpoint of the
// underlying socket, which may differ from the advertised endpoint for
// outbound connections using an ephemeral source port.
func (p *Peer) SocketEndpoint() Endpoint {
	return p.socketEndpoint
}

// Inbound reports whether this peer originated from the listener's
// accept path rather than the node's dialer.
func (p *Peer) Inbound() bool {
	return p.inbound
}

// send enqueues [method, payload] for the writer loop, which encodes it
// when it writes it; send itself does not encode the frame. If
// the queue is full or the peer is no longer writable, the send is
// dropped silently: delivery is best-effort by design.
func (p *Peer) send(method string, payload rlp.Value) {
	if p.State() >= stateClosing {
		return
	}
	select {
	case p.sendCh <- outFrame{method: method, payload: payload}:
	default:
		p.log.WithField("method", method).Debug("send queue full, dropping message")
	}
}

// run starts the handshake and the reader/writer loops, then blocks until
// both have exited. Called on its own goroutine by Node.
func (p *Peer) run() {
	defer close(p.done)
	defer p.node.peerWG.Done()
	p.send(methodGetAddr, []byte{})

	p.wg.Add(2)
	readerDone := make(chan error, 1)
	writerDone := make(chan error, 1)
	go func() {
		defer p.wg.Done()
		readerDone <- p.readLoop()
	}()
	go func() {
		defer p.wg.Done()
		writerDone <- p.writeLoop()
	}()

	var reason error
	select {
	case reason = <-readerDone:
	case reason = <-writerDone:
	case <-p.closed:
		reason = nil
	}
	p.teardown(reason)
	p.wg.Wait()
}

// teardown transitions the peer through CLOSING to CLOSED exactly once:
// it closes the socket (unblocking whichever loop is still running),
// signals closed, and asks the Node to remove the peer and fire
// on-disconnect.
func (p *Peer) teardown(reason error) {
	p.closeOnce.Do(func() {
		atomic.StoreInt32(&p.state, int32(stateClosing))
		close(p.closed)
		p.conn.Close()
	})
	atomic.StoreInt32(&p.state, int32(stateClosed))
	p.log.WithField("reason", reason).WithField("age", mclock.Now().Sub(p.created)).Debug("peer removed")
	p.node.removePeer(p, reason)
}

// Close requests an explicit teardown of this peer, e.g. from
// duplicate-connection suppression. It returns before teardown has
// necessarily completed; use Wait to block until the peer reaches
// CLOSED.
func (p *Peer) Close(reason error) {
	p.closeOnce.Do(func() {
		atomic.StoreInt32(&p.state, int32(stateClosing))
		close(p.closed)
		p.conn.Close()
	})
}

// Wait blocks until the peer's reader and writer loops have both exited
// and it has reached CLOSED.
func (p *Peer) Wait() {
	<-p.done
}

func (p *Peer) readLoop() error {
	for {
		v, err := p.conn.ReadMsg()
		if err != nil {
			return err
		}
		if err := p.dispatch(v); err != nil {
			p.log.WithField("err", err).Debug("dropping malformed message")
		}
	}
}

func (p *Peer) dispatch(v rlp.Value) error {
	if !rlp.IsList(v) {
		return ErrBadMessageShape
	}
	elems := rlp.Elems(v)
	if len(elems) != 2 {
		return ErrBadMessageShape
	}
	if rlp.IsList(elems[0]) {
		return ErrBadMessageShape
	}
	method := string(rlp.Bytes(elems[0]))
	if method == "" {
		return ErrBadMessageShape
	}
	payload := elems[1]

	switch method {
	case methodGetAddr:
		p.handleGetAddr()
		return nil
	case methodAddr:
		return p.handleAddr(payload)
	default:
		if p.State() != stateReady {
			return nil
		}
		p.node.dispatchApplication(p, method, payload)
		return nil
	}
}

func (p *Peer) writeLoop() error {
	for {
		select {
		case frame := <-p.sendCh:
			if err := p.conn.WriteMsg(frame.method, frame.payload); err != nil {
				return err
			}
		case <-p.closed:
			return nil
		}
	}
}

// markReady records the peer's advertised endpoint on first receipt of
// addr and hands the peer to Node.peerBecameReady exactly once, which
// fires on-connect unless the peer is closed as a duplicate or as a
// connection to self.
func (p *Peer) markReady(advertised Endpoint) {
	p.mu.Lock()
	alreadyReady := p.hasAdvertised
	if !alreadyReady {
		p.advertised = advertised
		p.hasAdvertised = true
	}
	p.mu.Unlock()
	if alreadyReady {
		return
	}
	atomic.StoreInt32(&p.state, int32(stateReady))
	p.node.peerBecameReady(p)
}

// Info is a snapshot of a peer's public state, useful for introspection
// and tests.
type Info struct {
	SocketEndpoint     Endpoint
	AdvertisedEndpoint Endpoint
	Inbound            bool
	State              string
}

func (p *Peer) Info() Info {
	adv, _ := p.AdvertisedEndpoint()
	return Info{
		SocketEndpoint:     p.socketEndpoint,
		AdvertisedEndpoint: adv,
		Inbound:            p.inbound,
		State:              p.State().String(),
	}
}
