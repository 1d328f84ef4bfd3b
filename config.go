package spore

import (
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// defaultMaxFrameSize bounds the payload length the codec will
	// allocate for before reading it off the wire.
	defaultMaxFrameSize = 16 * 1024 * 1024

	// defaultSendQueueSize bounds each Peer's outbound frame queue.
	defaultSendQueueSize = 256

	// defaultDialTimeout bounds a single outbound TCP connect attempt.
	defaultDialTimeout = 10 * time.Second

	// defaultDialBackoff and defaultMaxDialBackoff bound the retry delay
	// applied to a seed that keeps failing to connect.
	defaultDialBackoff    = 500 * time.Millisecond
	defaultMaxDialBackoff = 30 * time.Second

	// defaultMaxActiveDials caps how many outbound connect attempts run
	// concurrently, in the spirit of the teacher's maxActiveDialTasks.
	defaultMaxActiveDials = 16

	// defaultGossipSample is K, the number of known peers offered in an
	// addr response.
	defaultGossipSample = 30

	// defaultMaxPeers is the SHOULD-have ceiling the spec leaves
	// unspecified but recommends exposing.
	defaultMaxPeers = 200
)

// Config configures a Node. NewNode fills every zero-valued field below
// with its default, so a Config literal need only set the fields it
// cares about, mirroring the teacher's p2p.Config shape.
type Config struct {
	// ListenAddr is the "host:port" this node accepts inbound connections
	// on. Empty means outbound-only: the node dials Seeds but accepts
	// nothing, and advertises the sentinel endpoint to peers.
	ListenAddr string

	// Seeds are endpoints dialed when Run starts; a failed dial is retried
	// with backoff. A seed whose connection later closes is not redialed.
	Seeds []Endpoint

	// MaxPeers bounds the peer table's growth. Zero means
	// defaultMaxPeers.
	MaxPeers int

	// MaxFrameSize bounds a single frame's payload length, enforced
	// before the payload buffer is allocated. Zero means
	// defaultMaxFrameSize.
	MaxFrameSize int

	// SendQueueSize bounds each Peer's outbound frame queue. Zero means
	// defaultSendQueueSize.
	SendQueueSize int

	// DialTimeout bounds a single outbound connect attempt. Zero means
	// defaultDialTimeout.
	DialTimeout time.Duration

	// GossipSample is K, the number of known peer endpoints offered in
	// response to getaddr. Zero means defaultGossipSample.
	GossipSample int

	// Logger is used for all lifecycle logging. Nil means NewLog().
	Logger *logrus.Entry

	// Dialer, when set, replaces the default net.Dialer-based outbound
	// connector, e.g. to inject an in-memory transport.
	Dialer NodeDialer
}

// NodeDialer abstracts outbound connection establishment so tests can
// substitute net.Pipe or similar without a real socket.
type NodeDialer interface {
	Dial(endpoint Endpoint, timeout time.Duration) (net.Conn, error)
}

func (c Config) withDefaults() Config {
	if c.MaxPeers <= 0 {
		c.MaxPeers = defaultMaxPeers
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = defaultMaxFrameSize
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = defaultSendQueueSize
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.GossipSample <= 0 {
		c.GossipSample = defaultGossipSample
	}
	if c.Logger == nil {
		c.Logger = NewLog()
	}
	if c.Dialer == nil {
		c.Dialer = tcpDialer{}
	}
	return c
}
