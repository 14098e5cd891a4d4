package udpx

import "time"

// Wire-format and protocol constants, as specified by the UDPX wire format.
const (
	// PacketHeaderSize is the size in bytes of the largest fixed header
	// (tag + seq + ack), used by Sequenced, KeepAlive and Disconnect.
	PacketHeaderSize = 9

	// MaxPacketSize is the largest payload a single Sequenced/Unsequenced
	// datagram may carry: UDP_MAX (65536) minus the 9-byte header.
	MaxPacketSize = 65527

	// udpMax is the theoretical maximum size of a UDP datagram payload.
	udpMax = 65536

	// SequenceWindow bounds how far a received seq/ack may lie from the
	// connection's current frontier before it is rejected as stale or
	// out of range.
	SequenceWindow = 100

	// HandshakeMaxAttempts is the number of retries after the first
	// Handshake send (six sends total) before Connect gives up.
	HandshakeMaxAttempts = 5

	// HandshakeAttemptInterval is how long Connect waits for a
	// HandshakeAck before resending the Handshake datagram.
	HandshakeAttemptInterval = 1 * time.Second

	// tickInterval is the granularity at which a Conn's timers are
	// advanced and checked.
	tickInterval = 10 * time.Millisecond
)
