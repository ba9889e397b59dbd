package gserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/jgoldverg/gust/backend/localfs"
	"github.com/jgoldverg/gust/internal"
	"github.com/jgoldverg/gust/pkg/metrics"
	"github.com/jgoldverg/gust/pkg/session"
	"github.com/jgoldverg/gust/pkg/wire"
)

var (
	ErrPeerNotResponding = errors.New("client not responding")
)

// Server owns one UDP socket and serves one transfer session at a time:
// wait for a SYN, answer with the directory listing, wait for a REQ,
// stream the file with a go-back-N window, then loop back for the next
// client.
type Server struct {
	cfg     *internal.ServerConfig
	conn    *net.UDPConn
	lister  *localfs.FileSystemLister
	metrics *metrics.TransferCollector
}

func New(cfg *internal.ServerConfig) *Server {
	return &Server{
		cfg:     cfg,
		lister:  localfs.NewFileSystemLister(cfg.ServeDir),
		metrics: metrics.NewTransferCollector("gust"),
	}
}

// Metrics exposes the server-side transfer collector.
func (s *Server) Metrics() *metrics.TransferCollector { return s.metrics }

// Listen binds the UDP socket. SO_REUSEADDR keeps quick restarts from
// tripping over lingering sockets; the receive buffer is sized from
// config.
func (s *Server) Listen() error {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var ctrlErr error
			err := c.Control(func(fd uintptr) {
				ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				if s.cfg.UDPReadBufferSize > 0 {
					_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, s.cfg.UDPReadBufferSize)
				}
			})
			if err != nil {
				return err
			}
			return ctrlErr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("bind udp port %d (is another instance of this server running?): %w", s.cfg.Port, err)
	}
	s.conn = pc.(*net.UDPConn)

	internal.Info("server listening", internal.Fields{
		internal.FieldPort: s.Port(),
		"serve_dir":        s.cfg.ServeDir,
	})
	return nil
}

// Port reports the bound port; useful when config asked for port 0.
func (s *Server) Port() int {
	if s.conn == nil {
		return s.cfg.Port
	}
	return s.conn.LocalAddr().(*net.UDPAddr).Port
}

func (s *Server) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Serve accepts connections one after another until the context is
// cancelled. A failed or refused session never takes the server down.
func (s *Server) Serve(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.ServeOne(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, net.ErrClosed) {
				return err
			}
			internal.Error("session ended with failure", internal.Fields{
				internal.FieldError: err.Error(),
			})
		}
	}
}

// ServeOne runs a single session end to end: handshake, file lookup,
// data phase. A requested file that does not exist is a normal outcome,
// signalled to the client via the status byte, not an error here.
func (s *Server) ServeOne(ctx context.Context) error {
	sess := session.New(s.conn)

	if err := s.awaitSyn(ctx, sess); err != nil {
		return err
	}

	name, err := s.awaitReq(ctx, sess)
	if err != nil {
		return err
	}

	size, err := s.lister.Stat(name)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat %q: %w", name, err)
		}
		internal.Warn("requested file not found", internal.Fields{
			internal.FieldFile: name,
			internal.FieldPeer: sess.Peer.String(),
		})
		return sess.Send(wire.Status(false, 0, 0))
	}

	sess.FileName = name
	sess.FileSize = uint32(size)
	sess.NumPackets = wire.PacketCount(size)

	reader, err := localfs.OpenRangeReader(s.lister.Path(name))
	if err != nil {
		return err
	}
	defer reader.Close()

	if err := sess.Send(wire.Status(true, sess.NumPackets, sess.FileSize)); err != nil {
		return err
	}

	internal.Info("starting file transfer", internal.Fields{
		internal.FieldFile:    name,
		internal.FieldPeer:    sess.Peer.String(),
		internal.FieldSession: sess.ID.String(),
		"bytes":               size,
		"packets":             sess.NumPackets,
	})

	if err := s.sendFile(ctx, sess, reader); err != nil {
		return err
	}

	internal.Info("file transfer complete", internal.Fields{
		internal.FieldFile:    name,
		internal.FieldSession: sess.ID.String(),
	})
	return nil
}

func (s *Server) ackTimeout() time.Duration {
	return time.Duration(s.cfg.AckTimeoutMs) * time.Millisecond
}
