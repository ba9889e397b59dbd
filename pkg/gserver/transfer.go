package gserver

import (
	"context"
	"fmt"

	"github.com/jgoldverg/gust/backend/localfs"
	"github.com/jgoldverg/gust/internal"
	"github.com/jgoldverg/gust/pkg/session"
	"github.com/jgoldverg/gust/pkg/wire"
)

// sendFile drives the go-back-N data phase. Each round sends the window
// above sess.WindowBase, then blocks for one cumulative ack. An ack
// timeout resends the whole window unchanged; anything else received
// while waiting (bad checksum, wrong flags) is dropped without consuming
// a retry. The window slice is re-read from the file after every ack so
// retransmitted rounds carry byte-identical payloads.
func (s *Server) sendFile(ctx context.Context, sess *session.Session, reader *localfs.RangeReader) error {
	window := uint32(s.cfg.WindowSize)

	// Start-of-data marker: the same status packet the handshake
	// answered with, resent so a client that lost the first copy can
	// still enter the data phase.
	if err := sess.Send(wire.Status(true, sess.NumPackets, sess.FileSize)); err != nil {
		return err
	}

	resend := false
	for sess.WindowBase < sess.NumPackets {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := sess.WindowBase + window
		if end > sess.NumPackets {
			end = sess.NumPackets
		}

		for seq := sess.WindowBase + 1; seq <= end; seq++ {
			offset := int64(seq-1) * wire.MaxData
			payload, err := reader.ReadRange(offset, wire.MaxData)
			if err != nil {
				return err
			}
			if err := sess.Send(wire.Data(seq, payload)); err != nil {
				return fmt.Errorf("send packet %d: %w", seq, err)
			}
			s.metrics.ObserveSend(len(payload), resend)
			internal.Debug("sent packet", internal.Fields{
				internal.FieldSeq: seq,
			})
		}
		if resend {
			s.metrics.ObserveWindowResend()
		}

		ack, timedOut, err := s.awaitAck(ctx, sess)
		if err != nil {
			return err
		}
		if timedOut {
			sess.Retries++
			if sess.Retries > s.cfg.MaxRetries {
				return ErrPeerNotResponding
			}
			internal.Warn("ack timed out, resending window", internal.Fields{
				"window_base": sess.WindowBase,
				"retry":       sess.Retries,
			})
			resend = true
			continue
		}

		sess.Retries = 0
		resend = false
		sess.WindowBase = ack
		internal.Debug("window advanced", internal.Fields{
			internal.FieldSeq: ack,
		})
	}

	return nil
}

// awaitAck waits for one valid cumulative ack. Only a receive timeout
// ends the wait without an ack; dropped and misflagged packets keep the
// wait going inside the same round.
func (s *Server) awaitAck(ctx context.Context, sess *session.Session) (uint32, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}

		dg, status, err := sess.Receive(s.ackTimeout())
		if err != nil {
			return 0, false, err
		}
		switch status {
		case session.RecvTimeout:
			return 0, true, nil
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
		if dg.Header.Kind() != wire.KindAck {
			s.metrics.ObserveDiscard()
			internal.Warn("unexpected packet while waiting for ack", internal.Fields{
				"kind": dg.Header.Kind().String(),
			})
			continue
		}
		return dg.Header.Seq, false, nil
	}
}
