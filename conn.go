package spore

import (
	"io"
	"net"

	"github.com/pkg/errors"
	"github.com/perillaseed/spore/rlp"
)

// framedConn reads and writes one codec-framed message at a time over a
// byte-stream socket. It owns no concurrency discipline of its own — Peer
// guarantees at most one concurrent reader and one concurrent writer.
type framedConn struct {
	conn         net.Conn
	maxFrameSize int
}

func newFramedConn(conn net.Conn, maxFrameSize int) *framedConn {
	return &framedConn{conn: conn, maxFrameSize: maxFrameSize}
}

// WriteMsg encodes [method, payload] as a single Value and writes the
// resulting bytes in one logical operation.
func (c *framedConn) WriteMsg(method string, payload rlp.Value) error {
	msg := rlp.List(rlp.String(method), payload)
	b, err := rlp.EncodeToBytes(msg)
	if err != nil {
		return errors.Wrap(err, "spore: encode message")
	}
	_, err = c.conn.Write(b)
	if err != nil {
		return errors.Wrap(err, "spore: write message")
	}
	return nil
}

// ReadMsg reads exactly one framed Value from the connection. It reads
// the minimum number of bytes the codec's own prefix says it needs:
// first the lead byte, then the length-of-length bytes (if any), then
// exactly the declared payload length. The declared length is checked
// against maxFrameSize before any payload buffer is allocated.
//
// A read that fails on the very first byte with io.EOF is a clean peer
// close; any other failure, at any stage, is a connection error.
func (c *framedConn) ReadMsg() (rlp.Value, error) {
	var first [1]byte
	if _, err := io.ReadFull(c.conn, first[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "spore: read frame prefix")
	}

	prefix := rlp.ParsePrefix(first[0])
	if prefix.IsSingleByte {
		return []byte{first[0]}, nil
	}

	var lenBytes []byte
	payloadLen := prefix.ShortPayload
	if prefix.LenOfLen > 0 {
		lenBytes = make([]byte, prefix.LenOfLen)
		if _, err := io.ReadFull(c.conn, lenBytes); err != nil {
			return nil, errors.Wrap(err, "spore: read frame length")
		}
		n, err := rlp.DecodeLength(lenBytes)
		if err != nil {
			return nil, errors.Wrap(err, "spore: decode frame length")
		}
		payloadLen = n
	}
	if payloadLen > c.maxFrameSize {
		return nil, rlp.ErrMaxFrameSize
	}

	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(c.conn, payload); err != nil {
			return nil, errors.Wrap(err, "spore: read frame payload")
		}
	}

	full := make([]byte, 0, 1+len(lenBytes)+payloadLen)
	full = append(full, first[0])
	full = append(full, lenBytes...)
	full = append(full, payload...)

	v, n, err := rlp.Decode(full)
	if err != nil {
		return nil, errors.Wrap(err, "spore: decode frame")
	}
	if n != len(full) {
		return nil, errors.Wrap(rlp.ErrTrailingData, "spore: decode frame")
	}
	return v, nil
}

func (c *framedConn) Close() error {
	return c.conn.Close()
}
