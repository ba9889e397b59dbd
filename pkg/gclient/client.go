package gclient

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jgoldverg/gust/internal"
	"github.com/jgoldverg/gust/pkg/metrics"
	"github.com/jgoldverg/gust/pkg/session"
)

var (
	ErrHandshakeFailed     = errors.New("unable to establish connection")
	ErrServerNotResponding = errors.New("server not responding to request")
	ErrFileNotFound        = errors.New("server does not recognize requested file")
	ErrTransferStalled     = errors.New("transfer stalled: server stopped making progress")
)

// Client fetches one file from a gust server: connect for the listing,
// request a name, then receive the data phase strictly in order.
type Client struct {
	cfg     *internal.ClientConfig
	sess    *session.Session
	metrics *metrics.TransferCollector
}

func New(cfg *internal.ClientConfig) *Client {
	return &Client{
		cfg:     cfg,
		metrics: metrics.NewTransferCollector("gust"),
	}
}

// Metrics exposes the client-side transfer collector.
func (c *Client) Metrics() *metrics.TransferCollector { return c.metrics }

// Dial binds the local UDP socket and resolves the server as the
// session peer. Nothing goes on the wire until Connect.
func (c *Client) Dial() error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: c.cfg.LocalPort})
	if err != nil {
		return fmt.Errorf("bind local udp port %d (is another instance of this client running?): %w", c.cfg.LocalPort, err)
	}

	raddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", c.cfg.ServerAddr, c.cfg.ServerPort))
	if err != nil {
		conn.Close()
		return fmt.Errorf("resolve server %s:%d: %w", c.cfg.ServerAddr, c.cfg.ServerPort, err)
	}

	c.sess = session.New(conn)
	c.sess.Peer = raddr
	return nil
}

func (c *Client) Close() error {
	if c.sess == nil || c.sess.Conn == nil {
		return nil
	}
	return c.sess.Conn.Close()
}

func (c *Client) receiveTimeout() time.Duration {
	return time.Duration(c.cfg.ReceiveTimeoutMs) * time.Millisecond
}
