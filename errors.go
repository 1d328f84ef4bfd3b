package spore

import "github.com/pkg/errors"

var (
	// ErrServerStopped is the teardown reason Shutdown passes to
	// Peer.Close for every peer it closes.
	ErrServerStopped = errors.New("spore: node stopped")

	// ErrAlreadyRunning is returned by Run if the Node is already running.
	ErrAlreadyRunning = errors.New("spore: node already running")

	// ErrDuplicatePeer is the connection-teardown reason used when a
	// newcomer is closed because a peer with the same advertised
	// endpoint is already in the table.
	ErrDuplicatePeer = errors.New("spore: duplicate advertised endpoint")

	// ErrSelfConnect is the teardown reason used when a peer's advertised
	// endpoint equals this node's own.
	ErrSelfConnect = errors.New("spore: refusing to connect to self")

	// ErrPeerClosing names the condition of a peer that is no longer
	// writable. Peer.send does not return it: a send to such a peer is
	// dropped silently, per the best-effort delivery contract.
	ErrPeerClosing = errors.New("spore: peer is closing")

	// ErrQueueFull names the condition of a saturated outbound queue.
	// Peer.send does not return it: it logs the drop at debug level and
	// discards the message, which is never surfaced to the application.
	ErrQueueFull = errors.New("spore: send queue full")

	// ErrBadMessageShape is logged when a decoded Value is not a
	// well-formed [method, payload] list; the connection is kept alive.
	ErrBadMessageShape = errors.New("spore: message is not a [method, payload] list")
)
