package session

import (
	"net"
	"testing"
	"time"

	"github.com/jgoldverg/gust/pkg/wire"
)

func loopbackPair(t *testing.T) (*Session, *net.UDPConn) {
	t.Helper()

	recvConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { recvConn.Close() })

	sendConn, err := net.DialUDP("udp", nil, recvConn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { sendConn.Close() })

	return New(recvConn), sendConn
}

func TestReceiveValidPacket(t *testing.T) {
	sess, sender := loopbackPair(t)

	if _, err := sender.Write(wire.Syn()); err != nil {
		t.Fatalf("send: %v", err)
	}

	dg, status, err := sess.Receive(time.Second)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if status != RecvOK {
		t.Fatalf("status %v, want ok", status)
	}
	if dg.Header.Kind() != wire.KindSyn {
		t.Fatalf("kind %v, want SYN", dg.Header.Kind())
	}
	if dg.Addr == nil {
		t.Fatal("sender address missing")
	}
}

func TestReceiveTimeout(t *testing.T) {
	sess, _ := loopbackPair(t)

	_, status, err := sess.Receive(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("timeout should not be an error: %v", err)
	}
	if status != RecvTimeout {
		t.Fatalf("status %v, want timeout", status)
	}
}

func TestReceiveChecksumMismatch(t *testing.T) {
	sess, sender := loopbackPair(t)

	pkt := wire.Data(1, []byte("payload"))
	pkt[len(pkt)-1] ^= 0xFF
	if _, err := sender.Write(pkt); err != nil {
		t.Fatalf("send: %v", err)
	}

	_, status, err := sess.Receive(time.Second)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if status != RecvChecksumMismatch {
		t.Fatalf("status %v, want checksum mismatch", status)
	}
}

func TestReceiveMalformedShortDatagram(t *testing.T) {
	sess, sender := loopbackPair(t)

	if _, err := sender.Write([]byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatalf("send: %v", err)
	}

	_, status, err := sess.Receive(time.Second)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if status != RecvMalformed {
		t.Fatalf("status %v, want malformed", status)
	}
}

func TestSendWithoutPeer(t *testing.T) {
	sess, _ := loopbackPair(t)
	if err := sess.Send(wire.Syn()); err != ErrNoPeer {
		t.Fatalf("got %v, want ErrNoPeer", err)
	}
}
