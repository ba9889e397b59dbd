package gclient

import (
	"context"

	"github.com/jgoldverg/gust/internal"
	"github.com/jgoldverg/gust/pkg/session"
	"github.com/jgoldverg/gust/pkg/wire"
)

// Connect runs the SYN / SYN-ACK exchange and returns the server's file
// listing. Every attempt resends the SYN; timeouts, drops and wrong
// flag sets all consume one of the bounded attempts.
func (c *Client) Connect(ctx context.Context) ([]string, error) {
	internal.Info("connecting", internal.Fields{
		internal.FieldPeer: c.sess.Peer.String(),
	})

	for attempt := 1; attempt <= c.cfg.HandshakeAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.sess.Send(wire.Syn()); err != nil {
			return nil, err
		}

		dg, status, err := c.sess.Receive(c.receiveTimeout())
		if err != nil {
			return nil, err
		}
		switch status {
		case session.RecvTimeout:
			internal.Warn("connection attempt timed out", internal.Fields{
				"attempt": attempt,
			})
			continue
		case session.RecvChecksumMismatch:
			c.metrics.ObserveChecksumDrop()
			internal.Warn("dropping packet", internal.Fields{
				internal.FieldError: status.String(),
			})
			continue
		case session.RecvMalformed:
			c.metrics.ObserveDiscard()
			continue
		}
		if dg.Header.Kind() != wire.KindSynAck {
			c.metrics.ObserveDiscard()
			internal.Warn("unexpected packet while waiting for SYN-ACK", internal.Fields{
				"kind": dg.Header.Kind().String(),
			})
			continue
		}

		internal.Info("got connection acknowledgement", internal.Fields{
			internal.FieldPeer: c.sess.Peer.String(),
		})
		return wire.ParseListing(dg.Payload), nil
	}

	return nil, ErrHandshakeFailed
}

// Request sends the REQ for a file name and waits for the status
// answer, with the same bounded-attempt policy as Connect. A usable
// status populates the session's transfer metadata; a not-found status
// ends the session cleanly with ErrFileNotFound.
func (c *Client) Request(ctx context.Context, name string) (wire.StatusInfo, error) {
	internal.Info("requesting file", internal.Fields{
		internal.FieldFile: name,
	})

	for attempt := 1; attempt <= c.cfg.HandshakeAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return wire.StatusInfo{}, err
		}
		if err := c.sess.Send(wire.Req(name)); err != nil {
			return wire.StatusInfo{}, err
		}

		dg, status, err := c.sess.Receive(c.receiveTimeout())
		if err != nil {
			return wire.StatusInfo{}, err
		}
		switch status {
		case session.RecvTimeout:
			internal.Warn("request attempt timed out", internal.Fields{
				"attempt": attempt,
			})
			continue
		case session.RecvChecksumMismatch:
			c.metrics.ObserveChecksumDrop()
			internal.Warn("dropping packet", internal.Fields{
				internal.FieldError: status.String(),
			})
			continue
		case session.RecvMalformed:
			c.metrics.ObserveDiscard()
			continue
		}
		if dg.Header.Kind() != wire.KindStatus {
			c.metrics.ObserveDiscard()
			internal.Warn("unexpected packet while waiting for status", internal.Fields{
				"kind": dg.Header.Kind().String(),
			})
			continue
		}

		info, err := wire.ParseStatus(dg.Payload)
		if err != nil {
			c.metrics.ObserveDiscard()
			internal.Warn("bad status payload", internal.Fields{
				internal.FieldError: err.Error(),
			})
			continue
		}
		if !info.Found {
			return info, ErrFileNotFound
		}

		c.sess.FileName = name
		c.sess.FileSize = info.FileSize
		c.sess.NumPackets = info.NumPackets
		internal.Info("file accepted by server", internal.Fields{
			internal.FieldFile: name,
			"bytes":            info.FileSize,
			"packets":          info.NumPackets,
		})
		return info, nil
	}

	return wire.StatusInfo{}, ErrServerNotResponding
}
