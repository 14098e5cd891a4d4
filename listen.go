package udpx

import (
	"github.com/rs/zerolog/log"

	"github.com/udpx/udpx/internal/clock"
)

// Listener accepts inbound UDPX sessions on a bound port. The source
// repository declares this interface but never implements it (§9);
// this is the symmetric counterpart to Connect that §9 calls for.
type Listener struct {
	sock *socket
	clk  clock.Clock
}

// Listen binds localAddr (e.g. ":9000") and invokes onConnection for
// every peer that completes a handshake. onConnection runs on the
// Listener's receive loop and must not block it.
func Listen(localAddr string, onConnection func(*Conn)) (*Listener, error) {
	logger := log.With().Str("com", "udpx-listener").Str("addr", localAddr).Logger()
	sock, err := bindSocket(localAddr, logger)
	if err != nil {
		return nil, err
	}

	l := &Listener{
		sock: sock,
		clk:  clock.Real{},
	}

	sock.onUnmatched = func(peer PeerAddress, pkt packet) {
		l.handleUnmatched(peer, pkt, onConnection)
	}

	go sock.run()
	return l, nil
}

func (l *Listener) handleUnmatched(peer PeerAddress, pkt packet, onConnection func(*Conn)) {
	if pkt.Tag != TagHandshake {
		// Only Handshake datagrams create sessions; anything else
		// from an address with no Conn yet is discarded (§4.7, §4.8).
		return
	}

	initialSeq := randomInitialSeq()
	conn := newConn(peer, l.sock, initialSeq, pkt.Seq, l.clk, l.sock.log)
	l.sock.register(conn)

	_ = conn.sendRaw(packet{Tag: TagHandshakeAck, Seq: initialSeq})

	if onConnection != nil {
		onConnection(conn)
	}
}

// Close stops accepting new sessions and closes every Conn this
// Listener ever accepted.
func (l *Listener) Close() error {
	for _, c := range l.sock.snapshotConns() {
		c.Disconnect()
	}
	l.sock.close()
	return nil
}

// LocalAddr reports the bound local address.
func (l *Listener) LocalAddr() PeerAddress {
	return peerAddressFromUDP(l.sock.io.localAddr())
}
