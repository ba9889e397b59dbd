package wire

// Checksum computes the 16-bit ones-complement folded sum over buf with
// the embedded checksum field (bytes 4-5) treated as zero. Bytes are
// consumed two at a time as (hi<<8)+lo; an odd trailing byte counts as
// the high byte of a final word with an implicit zero low byte. Any
// carry beyond 16 bits is folded back in exactly once, and the result is
// the complement of the folded sum.
//
// The odd-length handling is a protocol quirk with no external standard
// behind it; both endpoints must reproduce it bit-for-bit to
// interoperate, so do not "fix" it toward RFC 1071.
func Checksum(buf []byte) uint16 {
	var sum uint64
	for i := 0; i < len(buf); i += 2 {
		hi := buf[i]
		if i == 4 {
			hi = 0
		}
		sum += uint64(hi) << 8
		if i+1 == len(buf) {
			break
		}
		lo := buf[i+1]
		if i+1 == 5 {
			lo = 0
		}
		sum += uint64(lo)
	}
	folded := (sum & 0xFFFF) + (sum >> 16)
	return uint16(^folded)
}

// SetChecksum computes the checksum over the whole packet (header plus
// any payload) and writes it into the header's checksum field. pkt must
// be at least HeaderSize long.
func SetChecksum(pkt []byte) {
	sum := Checksum(pkt)
	pkt[4] = byte(sum >> 8)
	pkt[5] = byte(sum)
}

// VerifyChecksum recomputes the checksum of a received packet and
// compares it against the value carried in the header. A mismatch means
// line noise, not a protocol error: the caller treats the packet as if
// the network had dropped it.
func VerifyChecksum(pkt []byte) bool {
	if len(pkt) < HeaderSize {
		return false
	}
	stored := uint16(pkt[4])<<8 | uint16(pkt[5])
	return Checksum(pkt) == stored
}
