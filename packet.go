package udpx

import "encoding/binary"

// PacketTag is the single-byte wire discriminator for a UDPX datagram.
type PacketTag uint8

const (
	TagSequenced    PacketTag = 0
	TagUnsequenced  PacketTag = 1
	TagRequest      PacketTag = 2
	TagHandshake    PacketTag = 3
	TagHandshakeAck PacketTag = 4
	TagKeepAlive    PacketTag = 5
	TagDisconnect   PacketTag = 6
)

func (t PacketTag) String() string {
	switch t {
	case TagSequenced:
		return "Sequenced"
	case TagUnsequenced:
		return "Unsequenced"
	case TagRequest:
		return "Request"
	case TagHandshake:
		return "Handshake"
	case TagHandshakeAck:
		return "HandshakeAck"
	case TagKeepAlive:
		return "KeepAlive"
	case TagDisconnect:
		return "Disconnect"
	default:
		return "Unknown"
	}
}

// minFrameSize returns the minimum valid datagram length for tag, or
// false if tag is not one of the seven known variants.
func minFrameSize(tag PacketTag) (int, bool) {
	switch tag {
	case TagUnsequenced:
		return 1, true
	case TagRequest, TagHandshake, TagHandshakeAck:
		return 5, true
	case TagSequenced, TagKeepAlive, TagDisconnect:
		return 9, true
	default:
		return 0, false
	}
}

// hasSeq reports whether tag carries a seq header field.
func hasSeq(tag PacketTag) bool {
	switch tag {
	case TagRequest, TagHandshake, TagHandshakeAck, TagSequenced, TagKeepAlive, TagDisconnect:
		return true
	default:
		return false
	}
}

// hasAck reports whether tag carries an ack header field.
func hasAck(tag PacketTag) bool {
	switch tag {
	case TagSequenced, TagKeepAlive, TagDisconnect:
		return true
	default:
		return false
	}
}

// packet is the decoded, in-memory form of a single UDPX datagram.
// Not every field is meaningful for every tag; see hasSeq/hasAck.
type packet struct {
	Tag  PacketTag
	Seq  int32
	Ack  int32
	Body []byte
}

// encode serialises p into its on-the-wire byte representation.
// Callers are expected to have already validated p.Body's length
// against MaxPacketSize.
func encode(p packet) []byte {
	size := 1
	if hasSeq(p.Tag) {
		size += 4
	}
	if hasAck(p.Tag) {
		size += 4
	}
	size += len(p.Body)

	buf := make([]byte, size)
	buf[0] = byte(p.Tag)
	off := 1
	if hasSeq(p.Tag) {
		binary.BigEndian.PutUint32(buf[off:], uint32(p.Seq))
		off += 4
	}
	if hasAck(p.Tag) {
		binary.BigEndian.PutUint32(buf[off:], uint32(p.Ack))
		off += 4
	}
	copy(buf[off:], p.Body)
	return buf
}

// decode parses a raw datagram into a packet. Any datagram shorter
// than the minimum frame size for its tag, or carrying an unknown tag,
// yields ErrMalformedPacket — callers are expected to drop the
// datagram silently rather than propagate the error (§4.1, §7).
func decode(data []byte) (packet, error) {
	if len(data) < 1 {
		return packet{}, ErrMalformedPacket
	}
	tag := PacketTag(data[0])
	minSize, ok := minFrameSize(tag)
	if !ok {
		return packet{}, ErrMalformedPacket
	}
	if len(data) < minSize {
		return packet{}, ErrMalformedPacket
	}

	p := packet{Tag: tag}
	off := 1
	if hasSeq(tag) {
		p.Seq = int32(binary.BigEndian.Uint32(data[off:]))
		off += 4
	}
	if hasAck(tag) {
		p.Ack = int32(binary.BigEndian.Uint32(data[off:]))
		off += 4
	}
	if off < len(data) {
		body := make([]byte, len(data)-off)
		copy(body, data[off:])
		p.Body = body
	}
	return p, nil
}
