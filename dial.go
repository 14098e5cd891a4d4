package udpx

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/udpx/udpx/internal/clock"
)

// Connect is the client-side handshake driver of §4.7: it sends a
// Handshake datagram, retries up to HandshakeMaxAttempts additional
// times at HandshakeAttemptInterval, and queues any non-HandshakeAck
// datagram that arrives from the target peer in the meantime so
// nothing sent immediately after the handshake completes is lost.
// onConnect is invoked exactly once, asynchronously, with either a
// ready Conn or ErrHandshakeFailed.
func Connect(remoteAddr string, onConnect func(conn *Conn, err error)) error {
	peer, err := ResolvePeerAddress(remoteAddr)
	if err != nil {
		return err
	}

	attemptID := uuid.NewString()
	logger := log.With().Str("com", "udpx-connect").Str("attempt", attemptID).Str("peer", peer.String()).Logger()

	sock, err := bindSocket(":0", logger)
	if err != nil {
		return err
	}

	go runHandshake(sock, peer, onConnect, logger)
	return nil
}

// Dial is a blocking convenience wrapper around Connect for callers
// that don't need the asynchronous callback form.
func Dial(remoteAddr string) (*Conn, error) {
	type result struct {
		conn *Conn
		err  error
	}
	done := make(chan result, 1)
	if err := Connect(remoteAddr, func(conn *Conn, err error) {
		done <- result{conn, err}
	}); err != nil {
		return nil, err
	}
	r := <-done
	return r.conn, r.err
}

func runHandshake(sock *socket, peer PeerAddress, onConnect func(*Conn, error), logger zerolog.Logger) {
	initialSeq := randomInitialSeq()

	ackCh := make(chan int32, 1)

	var mu sync.Mutex
	var pendingQueue []packet
	done := false

	sock.onUnmatched = func(from PeerAddress, pkt packet) {
		if from != peer {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if done {
			return
		}
		if pkt.Tag == TagHandshakeAck {
			select {
			case ackCh <- pkt.Seq:
			default:
			}
			return
		}
		pendingQueue = append(pendingQueue, pkt)
	}

	go sock.run()

	handshake := encode(packet{Tag: TagHandshake, Seq: initialSeq})

	for attempt := 0; attempt <= HandshakeMaxAttempts; attempt++ {
		if err := sock.io.send(peer, handshake); err != nil {
			logger.Debug().Err(err).Int("attempt", attempt).Msg("handshake send failed")
		}

		select {
		case peerSeq := <-ackCh:
			mu.Lock()
			done = true
			queue := pendingQueue
			pendingQueue = nil
			mu.Unlock()

			conn := newConn(peer, sock, initialSeq, peerSeq, clock.Real{}, logger)
			conn.ownsSocket = true
			sock.register(conn)
			onConnect(conn, nil)
			for _, p := range queue {
				conn.handleInbound(p)
			}
			return
		case <-time.After(HandshakeAttemptInterval):
			logger.Debug().Int("attempt", attempt).Msg("handshake attempt timed out")
		}
	}

	mu.Lock()
	done = true
	mu.Unlock()
	sock.close()
	onConnect(nil, ErrHandshakeFailed)
}
