package gserver

import (
	"context"

	"github.com/jgoldverg/gust/internal"
	"github.com/jgoldverg/gust/pkg/session"
	"github.com/jgoldverg/gust/pkg/wire"
)

// awaitSyn blocks until a well-formed SYN arrives. Timeouts, checksum
// failures and wrong flag sets only prolong the wait; nothing a client
// sends at this stage is fatal. On a valid SYN the sender becomes the
// session peer and is answered with a SYN-ACK carrying the directory
// listing snapshot.
func (s *Server) awaitSyn(ctx context.Context, sess *session.Session) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		dg, status, err := sess.Receive(s.ackTimeout())
		if err != nil {
			return err
		}
		switch status {
		case session.RecvTimeout:
			continue
		case session.RecvChecksumMismatch:
			s.metrics.ObserveChecksumDrop()
			internal.Warn("dropping packet", internal.Fields{
				internal.FieldError: status.String(),
			})
			continue
		case session.RecvMalformed:
			s.metrics.ObserveDiscard()
			continue
		}
		if dg.Header.Kind() != wire.KindSyn {
			s.metrics.ObserveDiscard()
			internal.Warn("unexpected packet while waiting for SYN", internal.Fields{
				"kind": dg.Header.Kind().String(),
			})
			continue
		}

		sess.Peer = dg.Addr
		internal.Info("received SYN", internal.Fields{
			internal.FieldPeer:    sess.Peer.String(),
			internal.FieldSession: sess.ID.String(),
		})

		names, err := s.lister.List()
		if err != nil {
			return err
		}
		return sess.Send(wire.SynAck(wire.JoinListing(names)))
	}
}

// awaitReq blocks until the session peer sends a well-formed REQ and
// returns the requested file name. Packets from other addresses and
// stale flag combinations are discarded the same way awaitSyn discards
// them.
func (s *Server) awaitReq(ctx context.Context, sess *session.Session) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		dg, status, err := sess.Receive(s.ackTimeout())
		if err != nil {
			return "", err
		}
		switch status {
		case session.RecvTimeout:
			continue
		case session.RecvChecksumMismatch:
			s.metrics.ObserveChecksumDrop()
			internal.Warn("dropping packet", internal.Fields{
				internal.FieldError: status.String(),
			})
			continue
		case session.RecvMalformed:
			s.metrics.ObserveDiscard()
			continue
		}
		if dg.Addr.String() != sess.Peer.String() {
			s.metrics.ObserveDiscard()
			continue
		}
		if dg.Header.Kind() != wire.KindReq {
			s.metrics.ObserveDiscard()
			internal.Warn("unexpected packet while waiting for REQ", internal.Fields{
				"kind": dg.Header.Kind().String(),
			})
			continue
		}

		name := wire.ParseFileName(dg.Payload)
		internal.Info("client requested file", internal.Fields{
			internal.FieldFile: name,
			internal.FieldPeer: sess.Peer.String(),
		})
		return name, nil
	}
}
