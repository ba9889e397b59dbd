package gclient

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jgoldverg/gust/backend/localfs"
	"github.com/jgoldverg/gust/internal"
	"github.com/jgoldverg/gust/pkg/session"
	"github.com/jgoldverg/gust/pkg/wire"
)

// Fetch requests name and streams it into the configured output
// directory, returning the path written. Connect must have succeeded
// first. A zero-byte file completes immediately with an empty output
// file and no data rounds.
func (c *Client) Fetch(ctx context.Context, name string) (string, error) {
	if _, err := c.Request(ctx, name); err != nil {
		return "", err
	}

	outPath := filepath.Join(c.cfg.OutputDir, filepath.Base(name))
	writer, err := localfs.NewFileWriter(outPath)
	if err != nil {
		return "", err
	}

	if err := c.receiveFile(ctx, writer); err != nil {
		writer.Close()
		return "", err
	}
	if err := writer.Sync(); err != nil {
		writer.Close()
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	internal.Info("file transfer complete", internal.Fields{
		internal.FieldFile: name,
		"output":           outPath,
		"bytes":            c.sess.FileSize,
	})
	return outPath, nil
}

// receiveFile runs the receiver side of the data phase: rounds of up to
// window datagrams, strictly in-order acceptance, one cumulative ack
// per round. A receive timeout ends a round early rather than the
// transfer; only max_stalled_rounds consecutive rounds without a single
// accepted packet abort it.
func (c *Client) receiveFile(ctx context.Context, writer *localfs.FileWriter) error {
	var bytesReceived uint32

	for c.sess.WindowBase < c.sess.NumPackets {
		if err := ctx.Err(); err != nil {
			return err
		}

		roundStart := c.sess.WindowBase

		for slot := 0; slot < c.cfg.WindowSize; {
			dg, status, err := c.sess.Receive(c.receiveTimeout())
			if err != nil {
				return err
			}
			if status == session.RecvTimeout {
				break
			}
			if status == session.RecvChecksumMismatch {
				// Does not count as a received packet; the slot
				// stays open for the retransmission.
				c.metrics.ObserveChecksumDrop()
				internal.Warn("dropping packet", internal.Fields{
					internal.FieldError: status.String(),
				})
				continue
			}
			if status == session.RecvMalformed {
				c.metrics.ObserveDiscard()
				continue
			}
			if dg.Header.Kind() != wire.KindData {
				c.metrics.ObserveDiscard()
				internal.Warn("unexpected packet during data phase", internal.Fields{
					"kind": dg.Header.Kind().String(),
				})
				slot++
				continue
			}

			seq := dg.Header.Seq
			if seq != c.sess.WindowBase+1 {
				c.metrics.ObserveDiscard()
				internal.Warn("out-of-order packet discarded", internal.Fields{
					internal.FieldSeq: seq,
					"expected":        c.sess.WindowBase + 1,
				})
				slot++
				continue
			}

			payload := dg.Payload
			if seq == c.sess.NumPackets {
				// The final packet may carry padding past the end of
				// the file; keep only what the negotiated size allows.
				remaining := c.sess.FileSize - bytesReceived
				if uint32(len(payload)) > remaining {
					payload = payload[:remaining]
				}
			}

			if err := writer.Append(payload); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			bytesReceived += uint32(len(payload))
			c.sess.WindowBase = seq
			c.metrics.ObserveReceive(len(payload))

			internal.Debug("accepted packet", internal.Fields{
				internal.FieldSeq: seq,
				"progress": fmt.Sprintf("%.2f%%",
					float64(bytesReceived)/float64(c.sess.FileSize)*100),
			})

			slot++
			if c.sess.WindowBase == c.sess.NumPackets {
				break
			}
		}

		if c.sess.WindowBase == roundStart {
			c.sess.StalledRounds++
			c.metrics.ObserveStalledRound()
			if c.sess.StalledRounds >= c.cfg.MaxStalledRounds {
				return ErrTransferStalled
			}
		} else {
			c.sess.StalledRounds = 0
		}

		// Ack every round, even a stalled one: re-announcing the same
		// cumulative position lets the sender resend from it.
		if err := c.sess.Send(wire.Ack(c.sess.WindowBase)); err != nil {
			return err
		}
		internal.Debug("sent cumulative ack", internal.Fields{
			internal.FieldSeq: c.sess.WindowBase,
		})
	}

	return nil
}
