package wire

import (
	"encoding/binary"
	"errors"
	"strings"
)

const (
	// StatusFound and StatusNotFound are the first payload byte of a
	// STATUS packet.
	StatusFound    byte = 0x80
	StatusNotFound byte = 0x00

	// ListSeparator joins file names in a SYN-ACK listing payload.
	ListSeparator = ";"

	statusFoundLen = 9 // status byte + numPackets + fileSize
)

var ErrShortStatus = errors.New("status payload truncated")

// StatusInfo is the transfer metadata carried by a STATUS packet.
type StatusInfo struct {
	Found      bool
	NumPackets uint32
	FileSize   uint32
}

func build(h Header, payload []byte) []byte {
	pkt := make([]byte, HeaderSize+len(payload))
	_, _ = h.Encode(pkt)
	copy(pkt[HeaderSize:], payload)
	SetChecksum(pkt)
	return pkt
}

// Syn builds a connect-request packet.
func Syn() []byte {
	return build(Header{Syn: true}, nil)
}

// SynAck builds a connect ack carrying the ';'-joined file listing.
func SynAck(listing string) []byte {
	return build(Header{Syn: true, Ack: true}, []byte(listing))
}

// Req builds a file-request packet carrying the requested name.
func Req(name string) []byte {
	return build(Header{Req: true}, []byte(name))
}

// Status builds a request ack. When the file was found the payload
// carries the packet count and file size after the status byte; when it
// was not, the payload is the status byte alone.
func Status(found bool, numPackets, fileSize uint32) []byte {
	if !found {
		return build(Header{Ack: true, Req: true}, []byte{StatusNotFound})
	}
	payload := make([]byte, statusFoundLen)
	payload[0] = StatusFound
	binary.BigEndian.PutUint32(payload[1:5], numPackets)
	binary.BigEndian.PutUint32(payload[5:9], fileSize)
	return build(Header{Ack: true, Req: true}, payload)
}

// Data builds a data packet. seq is the 1-based packet index.
func Data(seq uint32, payload []byte) []byte {
	return build(Header{Seq: seq}, payload)
}

// Ack builds a cumulative data ack naming the highest contiguous packet
// accepted so far.
func Ack(seq uint32) []byte {
	return build(Header{Seq: seq, Ack: true}, nil)
}

// ParseStatus decodes a STATUS payload. A not-found status carries no
// metadata and is not an error here; the caller decides what a missing
// file means for the session.
func ParseStatus(payload []byte) (StatusInfo, error) {
	if len(payload) < 1 {
		return StatusInfo{}, ErrShortStatus
	}
	if payload[0] != StatusFound {
		return StatusInfo{Found: false}, nil
	}
	if len(payload) < statusFoundLen {
		return StatusInfo{}, ErrShortStatus
	}
	return StatusInfo{
		Found:      true,
		NumPackets: binary.BigEndian.Uint32(payload[1:5]),
		FileSize:   binary.BigEndian.Uint32(payload[5:9]),
	}, nil
}

// ParseFileName extracts the requested name from a REQ payload: the
// bytes up to the first NUL, or the whole payload when none is present.
func ParseFileName(payload []byte) string {
	for i, b := range payload {
		if b == 0 {
			return string(payload[:i])
		}
	}
	return string(payload)
}

// ParseListing splits a SYN-ACK listing payload into file names,
// dropping the empty tail the trailing separator produces.
func ParseListing(payload []byte) []string {
	var names []string
	for _, name := range strings.Split(string(payload), ListSeparator) {
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// JoinListing renders a directory snapshot as a listing payload, one
// trailing separator per name.
func JoinListing(names []string) string {
	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteString(ListSeparator)
	}
	return sb.String()
}

// PacketCount returns the number of data packets needed for size bytes:
// ceil(size / MaxData). A zero-byte file takes zero packets.
func PacketCount(size int64) uint32 {
	if size <= 0 {
		return 0
	}
	return uint32((size + MaxData - 1) / MaxData)
}
