package gclient

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jgoldverg/gust/internal"
	"github.com/jgoldverg/gust/pkg/gserver"
	"github.com/jgoldverg/gust/pkg/wire"
)

// startTestServer serves dir on a loopback port until the test ends.
func startTestServer(t *testing.T, dir string) int {
	t.Helper()
	_ = internal.ConfigureLogger("error")

	cfg := &internal.ServerConfig{
		Port:         0,
		ServeDir:     dir,
		WindowSize:   5,
		AckTimeoutMs: 200,
		MaxRetries:   10,
		LogLevel:     "error",
	}
	srv := gserver.New(cfg)
	if err := srv.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		srv.Close()
		<-done
	})
	return srv.Port()
}

func testClient(t *testing.T, port int, outDir string) *Client {
	t.Helper()
	cfg := &internal.ClientConfig{
		LocalPort:         0,
		ServerAddr:        "127.0.0.1",
		ServerPort:        port,
		OutputDir:         outDir,
		WindowSize:        5,
		ReceiveTimeoutMs:  500,
		MaxStalledRounds:  3,
		HandshakeAttempts: 3,
		LogLevel:          "error",
	}
	c := New(cfg)
	if err := c.Dial(); err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func patternBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestFetchEndToEnd(t *testing.T) {
	cases := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"partial_final_packet", 5000},
		{"exact_multiple", 3 * wire.MaxData},
		{"single_small", 17},
	}

	dir := t.TempDir()
	for _, tc := range cases {
		if err := os.WriteFile(filepath.Join(dir, tc.name+".bin"), patternBytes(tc.size), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	port := startTestServer(t, dir)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outDir := t.TempDir()
			c := testClient(t, port, outDir)

			listing, err := c.Connect(context.Background())
			if err != nil {
				t.Fatalf("connect: %v", err)
			}
			if len(listing) != len(cases) {
				t.Fatalf("listing has %d entries, want %d", len(listing), len(cases))
			}

			path, err := c.Fetch(context.Background(), tc.name+".bin")
			if err != nil {
				t.Fatalf("fetch: %v", err)
			}
			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, patternBytes(tc.size)) {
				t.Fatalf("output differs from source: got %d bytes, want %d", len(got), tc.size)
			}
		})
	}
}

func TestFetchFileNotFound(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "only.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	port := startTestServer(t, dir)

	c := testClient(t, port, t.TempDir())
	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := c.Fetch(context.Background(), "nope.txt"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("got %v, want ErrFileNotFound", err)
	}
}

func TestConnectFailsWithoutServer(t *testing.T) {
	_ = internal.ConfigureLogger("error")
	cfg := &internal.ClientConfig{
		LocalPort:         0,
		ServerAddr:        "127.0.0.1",
		ServerPort:        1, // nothing listens here
		WindowSize:        5,
		ReceiveTimeoutMs:  50,
		MaxStalledRounds:  3,
		HandshakeAttempts: 2,
	}
	c := New(cfg)
	if err := c.Dial(); err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	start := time.Now()
	if _, err := c.Connect(context.Background()); !errors.Is(err, ErrHandshakeFailed) {
		t.Fatalf("got %v, want ErrHandshakeFailed", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("handshake attempts took %v, expected bounded retries", elapsed)
	}
}

// fakeServer answers the handshake by script so receiver edge cases can
// be driven packet by packet.
type fakeServer struct {
	conn *net.UDPConn
	peer *net.UDPAddr
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return &fakeServer{conn: conn}
}

func (f *fakeServer) port() int {
	return f.conn.LocalAddr().(*net.UDPAddr).Port
}

// expect reads one datagram and returns its header, remembering the
// sender as the peer for later sends.
func (f *fakeServer) expect(t *testing.T, kind wire.Kind) wire.Header {
	t.Helper()
	buf := make([]byte, wire.MaxPacketSize)
	_ = f.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, addr, err := f.conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("waiting for %v: %v", kind, err)
	}
	var h wire.Header
	if _, err := h.Decode(buf[:n]); err != nil {
		t.Fatal(err)
	}
	if h.Kind() != kind {
		t.Fatalf("got %v, want %v", h.Kind(), kind)
	}
	f.peer = addr
	return h
}

func (f *fakeServer) send(t *testing.T, pkt []byte) {
	t.Helper()
	if _, err := f.conn.WriteToUDP(pkt, f.peer); err != nil {
		t.Fatal(err)
	}
}

func TestReceiverDiscardsOutOfOrder(t *testing.T) {
	fake := newFakeServer(t)
	c := testClient(t, fake.port(), t.TempDir())

	content := patternBytes(1200) // two packets: 1016 + 184
	first := content[:wire.MaxData]
	second := content[wire.MaxData:]

	errc := make(chan error, 1)
	go func() {
		errc <- func() error {
			fake.expect(t, wire.KindSyn)
			fake.send(t, wire.SynAck("ghost.bin;"))
			fake.expect(t, wire.KindReq)
			fake.send(t, wire.Status(true, 2, uint32(len(content))))

			// Deliver the second packet ahead of the first. Only the
			// first may be accepted this round.
			fake.send(t, wire.Data(2, second))
			fake.send(t, wire.Data(1, first))

			ack := fake.expect(t, wire.KindAck)
			if ack.Seq != 1 {
				return errors.New("cumulative ack jumped past a gap")
			}

			fake.send(t, wire.Data(2, second))
			ack = fake.expect(t, wire.KindAck)
			if ack.Seq != 2 {
				return errors.New("final ack did not cover the whole file")
			}
			return nil
		}()
	}()

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	path, err := c.Fetch(context.Background(), "ghost.bin")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("output differs: got %d bytes, want %d", len(got), len(content))
	}
}

func TestFetchStallAborts(t *testing.T) {
	fake := newFakeServer(t)

	cfg := &internal.ClientConfig{
		LocalPort:         0,
		ServerAddr:        "127.0.0.1",
		ServerPort:        fake.port(),
		OutputDir:         t.TempDir(),
		WindowSize:        5,
		ReceiveTimeoutMs:  50,
		MaxStalledRounds:  3,
		HandshakeAttempts: 3,
	}
	_ = internal.ConfigureLogger("error")
	c := New(cfg)
	if err := c.Dial(); err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	go func() {
		fake.expect(t, wire.KindSyn)
		fake.send(t, wire.SynAck("ghost.bin;"))
		fake.expect(t, wire.KindReq)
		fake.send(t, wire.Status(true, 2, 2000))
		// Then nothing: no data ever arrives.
	}()

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := c.Fetch(context.Background(), "ghost.bin"); !errors.Is(err, ErrTransferStalled) {
		t.Fatalf("got %v, want ErrTransferStalled", err)
	}
}
