package session

import (
	"errors"
	"net"

	"github.com/google/uuid"
)

var ErrNoPeer = errors.New("session has no peer address")

// Session is one endpoint's view of a single transfer: the socket, the
// peer learned or configured at connect time, the metadata negotiated
// during the handshake, and the data-phase counters. A Session is
// created fresh for every connection attempt and discarded when the
// transfer completes or fails; it is never shared between connections.
type Session struct {
	ID   uuid.UUID
	Conn *net.UDPConn
	Peer *net.UDPAddr

	// Fixed once the handshake negotiates them; read-only afterwards.
	FileName   string
	FileSize   uint32
	NumPackets uint32

	// Data-phase counters.
	WindowBase    uint32 // lowest unacknowledged 1-based sequence number, minus one
	Retries       int
	StalledRounds int
}

// New wraps an already-bound UDP socket in a fresh session. The peer is
// filled in later: by the first valid SYN on the server, by
// configuration on the client.
func New(conn *net.UDPConn) *Session {
	return &Session{ID: uuid.New(), Conn: conn}
}

// Send writes one datagram to the session peer.
func (s *Session) Send(pkt []byte) error {
	if s.Peer == nil {
		return ErrNoPeer
	}
	_, err := s.Conn.WriteToUDP(pkt, s.Peer)
	return err
}
