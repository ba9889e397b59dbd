package session

import (
	"net"
	"time"

	"github.com/jgoldverg/gust/pkg/wire"
)

// RecvStatus classifies the outcome of one receive call. Checksum
// mismatches and short datagrams are expected, frequent conditions on a
// lossy link, so they come back as variants the caller branches on
// rather than as errors.
type RecvStatus int

const (
	RecvOK RecvStatus = iota
	RecvTimeout
	RecvChecksumMismatch
	RecvMalformed
)

func (rs RecvStatus) String() string {
	switch rs {
	case RecvOK:
		return "ok"
	case RecvTimeout:
		return "timeout"
	case RecvChecksumMismatch:
		return "checksum mismatch"
	case RecvMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Datagram is one validated packet off the wire.
type Datagram struct {
	Header  wire.Header
	Payload []byte
	Addr    *net.UDPAddr
}

// Receive blocks for at most timeout on the session socket. The error
// return is non-nil only for hard socket failures (closed socket,
// network down); everything recoverable is reported through the status.
func (s *Session) Receive(timeout time.Duration) (*Datagram, RecvStatus, error) {
	buf := make([]byte, wire.MaxPacketSize)
	_ = s.Conn.SetReadDeadline(time.Now().Add(timeout))
	n, addr, err := s.Conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, RecvTimeout, nil
		}
		return nil, RecvTimeout, err
	}
	if n < wire.HeaderSize {
		return nil, RecvMalformed, nil
	}
	if !wire.VerifyChecksum(buf[:n]) {
		return nil, RecvChecksumMismatch, nil
	}
	var h wire.Header
	if _, err := h.Decode(buf[:n]); err != nil {
		return nil, RecvMalformed, nil
	}
	return &Datagram{Header: h, Payload: buf[wire.HeaderSize:n], Addr: addr}, RecvOK, nil
}
