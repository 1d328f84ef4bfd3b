package spore

import (
	"net"
	"strconv"
	"sync"
	"time"
)

// tcpDialer is the default NodeDialer, backed by a real net.Dialer. Setting
// Config.Dialer replaces it.
type tcpDialer struct{}

func (tcpDialer) Dial(endpoint Endpoint, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.Dial("tcp", endpoint.String())
}

// dialLoop drains dialCh with bounded concurrency and bounded per-target
// backoff, in the spirit of the teacher's scheduleTasks/dialTask pair: a
// fixed number of dial attempts run at once, and a target that keeps
// failing is retried with exponentially increasing delay up to a ceiling.
func (n *Node) dialLoop() error {
	sem := make(chan struct{}, defaultMaxActiveDials)
	backoff := make(map[Endpoint]time.Duration)
	var backoffMu sync.Mutex

	for {
		select {
		case <-n.quit:
			return nil
		case ep := <-n.dialCh:
			select {
			case sem <- struct{}{}:
			case <-n.quit:
				return nil
			}
			go func(ep Endpoint) {
				defer func() { <-sem }()
				n.dialOne(ep, &backoffMu, backoff)
			}(ep)
		}
	}
}

func (n *Node) dialOne(ep Endpoint, mu *sync.Mutex, backoff map[Endpoint]time.Duration) {
	conn, err := n.cfg.Dialer.Dial(ep, n.cfg.DialTimeout)
	if err != nil {
		mu.Lock()
		next := backoff[ep] * 2
		if next < defaultDialBackoff {
			next = defaultDialBackoff
		}
		if next > defaultMaxDialBackoff {
			next = defaultMaxDialBackoff
		}
		backoff[ep] = next
		mu.Unlock()

		n.cfg.Logger.WithField("endpoint", ep.String()).WithField("err", err).Debug("dial failed, will retry")
		n.scheduleRedial(ep, next)
		return
	}

	mu.Lock()
	delete(backoff, ep)
	mu.Unlock()

	n.addPeer(conn, ep, false)
}

// scheduleRedial re-enqueues ep onto dialCh after delay, keeping it
// marked as dialed in the meantime so considerDialCandidate doesn't
// queue a second concurrent attempt for the same endpoint.
func (n *Node) scheduleRedial(ep Endpoint, delay time.Duration) {
	go func() {
		select {
		case <-time.After(delay):
		case <-n.quit:
			return
		}
		select {
		case n.dialCh <- ep:
		case <-n.quit:
		}
	}()
}

// socketEndpointOf converts a net.Conn's remote address into an
// Endpoint, used for inbound connections before any handshake has
// happened.
func socketEndpointOf(conn net.Conn) Endpoint {
	return addrToEndpoint(conn.RemoteAddr())
}

// addrToEndpoint converts a net.Addr (TCPAddr in practice) into an
// Endpoint.
func addrToEndpoint(addr net.Addr) Endpoint {
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return Endpoint{}
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Endpoint{}
	}
	return Endpoint{Host: host, Port: uint16(port)}
}
