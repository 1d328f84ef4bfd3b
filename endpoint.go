package spore

import (
	"fmt"
	"net"
	"strconv"

	"github.com/perillaseed/spore/rlp"
)

// Endpoint is a (host, port) pair. Two endpoints are equal iff both
// components are equal; host is the textual form the OS reports for the
// remote side of a socket, not a resolved/canonicalized name.
type Endpoint struct {
	Host string
	Port uint16
}

// sentinel is the advertised endpoint a node publishes when it accepts no
// inbound connections ("inbound-only, do not redial").
var sentinel = Endpoint{}

// IsSentinel reports whether e is the inbound-only sentinel.
func (e Endpoint) IsSentinel() bool {
	return e == sentinel
}

// String renders host:port, used both for logging and as the canonical
// form compared lexicographically to break simultaneous-dial ties.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// ParseEndpoint parses a "host:port" string such as a -seed flag value.
func ParseEndpoint(s string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("spore: invalid endpoint %q: %w", s, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Endpoint{}, fmt.Errorf("spore: invalid endpoint port %q: %w", s, err)
	}
	return Endpoint{Host: host, Port: uint16(port)}, nil
}

// encode renders the endpoint as the wire pair [host-bytes, port-bytes]
// used in addr payloads: a two-element list, port in big-endian.
func (e Endpoint) encode() rlp.Value {
	return rlp.List(rlp.String(e.Host), portBytes(e.Port))
}

func portBytes(port uint16) []byte {
	if port == 0 {
		return []byte{}
	}
	if port < 256 {
		return []byte{byte(port)}
	}
	return []byte{byte(port >> 8), byte(port)}
}

// decodeEndpoint parses the wire form produced by encode.
func decodeEndpoint(v rlp.Value) (Endpoint, error) {
	if !rlp.IsList(v) {
		return Endpoint{}, fmt.Errorf("spore: endpoint is not a list")
	}
	elems := rlp.Elems(v)
	if len(elems) != 2 {
		return Endpoint{}, fmt.Errorf("spore: endpoint list has %d elements, want 2", len(elems))
	}
	hostV, portV := elems[0], elems[1]
	if rlp.IsList(hostV) || rlp.IsList(portV) {
		return Endpoint{}, fmt.Errorf("spore: endpoint fields must be byte strings")
	}
	hostBytes := rlp.Bytes(hostV)
	portRaw := rlp.Bytes(portV)
	if len(portRaw) > 2 {
		return Endpoint{}, fmt.Errorf("spore: endpoint port field too long")
	}
	var port uint16
	for _, b := range portRaw {
		port = port<<8 | uint16(b)
	}
	return Endpoint{Host: string(hostBytes), Port: port}, nil
}

// endpointLess orders endpoints by their host:port string form. It is the
// tie-break for mutual simultaneous dials: the connection dialed by the
// node with the smaller advertised endpoint is kept (see
// Node.shouldKeepIncumbent).
func endpointLess(a, b Endpoint) bool {
	return a.String() < b.String()
}
