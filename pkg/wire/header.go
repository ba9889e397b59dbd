package wire

import (
	"encoding/binary"
	"errors"
)

const (
	// MaxPacketSize bounds every datagram on the wire.
	MaxPacketSize = 1024
	// HeaderSize is the fixed length of the packet header.
	HeaderSize = 8
	// MaxData is the payload capacity of a single data packet.
	MaxData = MaxPacketSize - HeaderSize
)

const (
	flagSyn byte = 1 << 7
	flagAck byte = 1 << 6
	flagReq byte = 1 << 5
)

var ErrShortHeader = errors.New("buffer shorter than header")

// Header is the fixed 8-byte packet header: a 4-byte sequence number, a
// 2-byte checksum, one flag byte and one reserved byte, all big-endian.
type Header struct {
	Seq      uint32
	Checksum uint16
	Syn      bool
	Ack      bool
	Req      bool
}

// Encode writes the header into dst. dst must hold at least HeaderSize
// bytes. The checksum field is written as-is; callers normally leave it
// zero and stamp it with SetChecksum once the payload is in place.
func (h *Header) Encode(dst []byte) (int, error) {
	if len(dst) < HeaderSize {
		return 0, errors.New("buffer too small for header")
	}
	binary.BigEndian.PutUint32(dst[0:4], h.Seq)
	binary.BigEndian.PutUint16(dst[4:6], h.Checksum)
	var flags byte
	if h.Syn {
		flags |= flagSyn
	}
	if h.Ack {
		flags |= flagAck
	}
	if h.Req {
		flags |= flagReq
	}
	dst[6] = flags
	dst[7] = 0
	return HeaderSize, nil
}

// Decode reads the header fields from src. It fails only when src is
// shorter than HeaderSize. Flag combinations are not validated here;
// which combination is legal depends on the protocol phase, so that
// check belongs to the state machines.
func (h *Header) Decode(src []byte) (int, error) {
	if len(src) < HeaderSize {
		return 0, ErrShortHeader
	}
	h.Seq = binary.BigEndian.Uint32(src[0:4])
	h.Checksum = binary.BigEndian.Uint16(src[4:6])
	flags := src[6]
	h.Syn = flags&flagSyn != 0
	h.Ack = flags&flagAck != 0
	h.Req = flags&flagReq != 0
	return HeaderSize, nil
}

// Kind identifies a packet by its exact flag set. Matching the whole set
// rather than individual bits cheaply rejects stale packets from a
// previous protocol phase.
type Kind int

const (
	KindInvalid Kind = iota
	KindSyn          // {SYN}: connect request
	KindSynAck       // {SYN,ACK}: connect ack carrying the file listing
	KindReq          // {REQ}: file request
	KindStatus       // {ACK,REQ}: request ack / status
	KindAck          // {ACK}: cumulative data ack
	KindData         // no flags: file data chunk
)

func (h *Header) Kind() Kind {
	switch {
	case h.Syn && !h.Ack && !h.Req:
		return KindSyn
	case h.Syn && h.Ack && !h.Req:
		return KindSynAck
	case !h.Syn && !h.Ack && h.Req:
		return KindReq
	case !h.Syn && h.Ack && h.Req:
		return KindStatus
	case !h.Syn && h.Ack && !h.Req:
		return KindAck
	case !h.Syn && !h.Ack && !h.Req:
		return KindData
	default:
		return KindInvalid
	}
}

func (k Kind) String() string {
	switch k {
	case KindSyn:
		return "SYN"
	case KindSynAck:
		return "SYN-ACK"
	case KindReq:
		return "REQ"
	case KindStatus:
		return "STATUS"
	case KindAck:
		return "ACK"
	case KindData:
		return "DATA"
	default:
		return "INVALID"
	}
}
