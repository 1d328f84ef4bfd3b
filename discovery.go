package spore

import "github.com/perillaseed/spore/rlp"

// methodGetAddr and methodAddr are reserved method names: application
// handlers may not register under either, and Peer.dispatch intercepts
// them before any application routing happens.
const (
	methodGetAddr = "getaddr"
	methodAddr    = "addr"
)

// handleGetAddr answers a getaddr with this node's own advertised
// endpoint (or the sentinel, if this node doesn't accept inbound
// connections) followed by up to GossipSample endpoints drawn from the
// peer table.
func (p *Peer) handleGetAddr() {
	self := p.node.selfEndpoint()
	known := p.node.sampleKnownEndpoints(p.node.cfg.GossipSample)

	elems := make([]rlp.Value, 0, 1+len(known))
	elems = append(elems, self.encode())
	for _, ep := range known {
		elems = append(elems, ep.encode())
	}
	p.send(methodAddr, rlp.List(elems...))
}

// handleAddr decodes an addr payload: the first endpoint is the sender's
// own advertised endpoint (recorded via markReady, transitioning the
// peer to READY on first receipt); any further endpoints are candidates
// handed to the node's dialer for endpoints not already known.
func (p *Peer) handleAddr(payload rlp.Value) error {
	if !rlp.IsList(payload) {
		return ErrBadMessageShape
	}
	elems := rlp.Elems(payload)
	if len(elems) == 0 {
		return ErrBadMessageShape
	}

	advertised, err := decodeEndpoint(elems[0])
	if err != nil {
		return err
	}
	p.markReady(advertised)

	for _, e := range elems[1:] {
		ep, err := decodeEndpoint(e)
		if err != nil {
			continue
		}
		if ep.IsSentinel() {
			continue
		}
		p.node.considerDialCandidate(ep)
	}
	return nil
}
