package udpx

import "errors"

var (
	// ErrMalformedPacket is returned by decode when a datagram is
	// shorter than the minimum frame size for its tag, or carries an
	// unknown tag.
	ErrMalformedPacket = errors.New("udpx: malformed packet")

	// ErrPacketTooLarge is returned by Send/SendUnchecked when the
	// supplied payload would not fit in a single datagram.
	ErrPacketTooLarge = errors.New("udpx: packet exceeds max payload size")

	// ErrConnClosed is returned by Send/SendUnchecked once a Conn has
	// transitioned to Closed.
	ErrConnClosed = errors.New("udpx: connection closed")

	// ErrHandshakeFailed is the error value passed to the onConnect
	// callback (and returned by the blocking Dial helper) when Connect
	// exhausts its retry budget without receiving a HandshakeAck.
	ErrHandshakeFailed = errors.New("udpx: handshake failed, no response from peer")
)
