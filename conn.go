package udpx

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/udpx/udpx/internal/clock"
)

// OnReceived is invoked for every payload as soon as it arrives,
// whether or not it has been delivered in order yet. checked reports
// whether the payload came in on the reliable (Sequenced) path.
type OnReceived func(checked bool, payload []byte)

// OnReceivedOrdered is invoked once per reliable payload, in strict
// recv_next order.
type OnReceivedOrdered func(payload []byte)

// OnDisconnected is invoked at most once, when the session ends because
// of a peer-initiated Disconnect (explicit is true) or a local timeout
// (explicit is false). A local call to Disconnect does not invoke it.
type OnDisconnected func(explicit bool)

type connState int32

const (
	connEstablished connState = iota
	connClosed
)

// Conn is a single UDPX session: the per-connection reliability engine
// described in §2–§5. A Conn is always born Established — the
// handshake that precedes its existence is driven by Connect (dial.go)
// or Listen (listen.go), neither of which needs a Conn object until a
// HandshakeAck/Handshake has already supplied both sequence numbers.
type Conn struct {
	mu  sync.Mutex
	clk clock.Clock
	log zerolog.Logger

	peer PeerAddress
	sock *socket

	state connState

	initialSeq int32
	sendNext   int32
	recvNext   int32
	recvHigh   int32

	sent *sendStore
	recv *recvBuffer

	keepAliveInterval time.Duration
	timeout           time.Duration
	lastSendAt        time.Time
	lastRecvAt        time.Time

	onReceived        OnReceived
	onReceivedOrdered OnReceivedOrdered
	onDisconnected    OnDisconnected

	// ownsSocket is true for a Conn that holds the only reference to
	// its socket (the Dial case: one ephemeral socket per connection).
	// A Listener's Conns share one socket across every peer and must
	// never close it just because one of them does.
	ownsSocket bool
}

func newConn(peer PeerAddress, sock *socket, initialSeq, recvNext int32, clk clock.Clock, log zerolog.Logger) *Conn {
	now := clk.Now()
	return &Conn{
		clk:        clk,
		log:        log,
		peer:       peer,
		sock:       sock,
		state:      connEstablished,
		initialSeq: initialSeq,
		sendNext:   initialSeq,
		recvNext:   recvNext,
		recvHigh:   recvNext,
		sent:       newSendStore(),
		recv:       newRecvBuffer(),
		lastSendAt: now,
		lastRecvAt: now,
	}
}

// Peer returns the connection's remote address.
func (c *Conn) Peer() PeerAddress { return c.peer }

// SetKeepAlive sets the keep-alive interval. Zero disables emission of
// further KeepAlive datagrams; this takes effect on the next tick.
func (c *Conn) SetKeepAlive(d time.Duration) {
	c.mu.Lock()
	c.keepAliveInterval = d
	c.mu.Unlock()
}

// SetTimeout sets the inbound-silence timeout. Zero disables it.
func (c *Conn) SetTimeout(d time.Duration) {
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
}

// SetOnReceived registers the unordered-delivery callback.
func (c *Conn) SetOnReceived(fn OnReceived) {
	c.mu.Lock()
	c.onReceived = fn
	c.mu.Unlock()
}

// SetOnReceivedOrdered registers the in-order delivery callback.
func (c *Conn) SetOnReceivedOrdered(fn OnReceivedOrdered) {
	c.mu.Lock()
	c.onReceivedOrdered = fn
	c.mu.Unlock()
}

// SetOnDisconnected registers the session-end callback.
func (c *Conn) SetOnDisconnected(fn OnDisconnected) {
	c.mu.Lock()
	c.onDisconnected = fn
	c.mu.Unlock()
}

// Send transmits payload reliably and in order: it is retained until
// cumulatively acked and retransmitted on explicit Request.
func (c *Conn) Send(payload []byte) error {
	if len(payload) > MaxPacketSize {
		return ErrPacketTooLarge
	}
	c.mu.Lock()
	if c.state == connClosed {
		c.mu.Unlock()
		return ErrConnClosed
	}
	seq := c.sendNext
	c.sendNext++
	c.sent.put(seq, payload)
	err := c.sendRawLocked(packet{Tag: TagSequenced, Seq: seq, Ack: c.recvNext, Body: payload})
	c.lastSendAt = c.clk.Now()
	c.mu.Unlock()
	return err
}

// SendUnchecked transmits payload fire-and-forget: no retransmission,
// no ordering, and — per spec — no deduplication on the receive side.
func (c *Conn) SendUnchecked(payload []byte) error {
	if len(payload) > MaxPacketSize {
		return ErrPacketTooLarge
	}
	c.mu.Lock()
	if c.state == connClosed {
		c.mu.Unlock()
		return ErrConnClosed
	}
	err := c.sendRawLocked(packet{Tag: TagUnsequenced, Body: payload})
	c.mu.Unlock()
	return err
}

// Disconnect emits a best-effort Disconnect datagram (sent twice,
// since UDP may lose either copy) and closes the connection. It does
// not itself invoke the OnDisconnected callback — that callback fires
// only for a disconnect the session learns about from the network or
// from a timeout.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	if c.state == connClosed {
		c.mu.Unlock()
		return
	}
	pkt := packet{Tag: TagDisconnect, Seq: c.sendNext, Ack: c.recvNext}
	_ = c.sendRawLocked(pkt)
	_ = c.sendRawLocked(pkt)
	c.closeLocked()
	c.mu.Unlock()
}

// handleInbound is the dispatch table of §4.8. It is called from the
// owning socket's receive loop, and by Connect when it replays the
// datagrams queued during the handshake; c.mu serializes it against
// every other mutation of this Conn's state.
func (c *Conn) handleInbound(pkt packet) {
	c.mu.Lock()
	if c.state == connClosed {
		c.mu.Unlock()
		return
	}

	var fire []func()

	switch pkt.Tag {
	case TagHandshake:
		c.touchRecvLocked()
		_ = c.sendRawLocked(packet{Tag: TagHandshakeAck, Seq: c.initialSeq})

	case TagHandshakeAck:
		c.touchRecvLocked()
		// Established Conns ignore a HandshakeAck; the initiator only
		// ever sees this while its Conn does not exist yet (dial.go).

	case TagUnsequenced:
		c.touchRecvLocked()
		if c.onReceived != nil {
			cb, body := c.onReceived, pkt.Body
			fire = append(fire, func() { cb(false, body) })
		}

	case TagSequenced:
		if !c.validLocked(pkt.Seq, pkt.Ack) {
			break
		}
		c.touchRecvLocked()
		fire = c.handleSequencedLocked(pkt)

	case TagRequest:
		c.touchRecvLocked()
		if body, ok := c.sent.lookup(pkt.Seq); ok {
			_ = c.sendRawLocked(packet{Tag: TagSequenced, Seq: pkt.Seq, Ack: c.recvNext, Body: body})
		}

	case TagKeepAlive:
		if !c.validAckLocked(pkt.Ack) {
			break
		}
		c.touchRecvLocked()
		c.sent.evictBelow(pkt.Ack)
		for i := c.recvNext; i <= pkt.Ack; i++ {
			if !c.recv.has(i) {
				_ = c.sendRawLocked(packet{Tag: TagRequest, Seq: i})
			}
		}

	case TagDisconnect:
		if !c.validAckLocked(pkt.Ack) {
			break
		}
		c.touchRecvLocked()
		if cb := c.onDisconnected; cb != nil {
			fire = append(fire, func() { cb(true) })
		}
		c.closeLocked()
	}
	c.mu.Unlock()

	for _, f := range fire {
		f()
	}
}

// handleSequencedLocked implements §4.5 steps 1–7. Callers must hold
// c.mu and must have already confirmed validLocked(pkt.Seq, pkt.Ack).
func (c *Conn) handleSequencedLocked(pkt packet) []func() {
	var fire []func()

	c.sent.evictBelow(pkt.Ack)

	if c.recv.has(pkt.Seq) || pkt.Seq < c.recvNext {
		return fire // duplicate
	}

	if pkt.Seq > c.recvHigh {
		c.recvHigh = pkt.Seq
	}

	if cb := c.onReceived; cb != nil {
		body := pkt.Body
		fire = append(fire, func() { cb(true, body) })
	}

	if pkt.Seq == c.recvNext {
		fire = append(fire, c.deliverOrderedLocked(pkt.Body))
		c.recvNext++
		for {
			e, ok := c.recv.popIfPresent(c.recvNext)
			if !ok {
				break
			}
			if e.present && e.body != nil {
				fire = append(fire, c.deliverOrderedLocked(e.body))
			}
			c.recvNext++
		}
	} else if c.onReceivedOrdered != nil {
		c.recv.storeCopy(pkt.Seq, pkt.Body)
	} else {
		c.recv.storeSentinel(pkt.Seq)
	}

	for i := c.recvNext; i < c.recvHigh; i++ {
		if !c.recv.has(i) {
			_ = c.sendRawLocked(packet{Tag: TagRequest, Seq: i})
		}
	}

	return fire
}

func (c *Conn) deliverOrderedLocked(body []byte) func() {
	cb := c.onReceivedOrdered
	if cb == nil {
		return func() {}
	}
	return func() { cb(body) }
}

// validLocked implements the four-clause sequence-window test of §4.3.
// It applies only to tags whose Seq carries real ordering information
// (Sequenced); KeepAlive and Disconnect never consult pkt.Seq in their
// handlers, so they're checked with validAckLocked instead — otherwise
// a KeepAlive sent before the connection's first reliable payload
// (Seq == initialSeq-1, one below the receiver's starting recv_next)
// would always fail a Seq check it has no use for.
func (c *Conn) validLocked(seq, ack int32) bool {
	return seq >= c.recvNext &&
		seq < c.recvHigh+SequenceWindow &&
		c.validAckLocked(ack)
}

// validAckLocked checks only the two ack-window clauses of §4.3.
func (c *Conn) validAckLocked(ack int32) bool {
	return ack <= c.sendNext && ack > c.sendNext-SequenceWindow
}

// sendRaw sends pkt after acquiring c.mu; used by callers outside the
// dispatch/tick paths that already hold it (e.g. the Listener, right
// after a Conn is constructed).
func (c *Conn) sendRaw(pkt packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendRawLocked(pkt)
}

func (c *Conn) sendRawLocked(pkt packet) error {
	err := c.sock.io.send(c.peer, encode(pkt))
	if err != nil {
		c.log.Debug().Err(err).Stringer("tag", pkt.Tag).Stringer("peer", c.peer).Msg("send failed")
	}
	return err
}

func (c *Conn) touchRecvLocked() {
	c.lastRecvAt = c.clk.Now()
}

// closeLocked transitions the Conn to Closed and releases its
// retained payloads. Callers must hold c.mu.
func (c *Conn) closeLocked() {
	if c.state == connClosed {
		return
	}
	c.state = connClosed
	c.sent = newSendStore()
	c.recv = newRecvBuffer()
	c.sock.unregister(c)
	if c.ownsSocket {
		c.sock.close()
	}
}

// tick advances this Conn's keep-alive and timeout timers by sampling
// the current time rather than accumulating a fixed sleep duration
// (§9: bounded-jitter timers). It is driven by the owning socket's
// receive loop roughly every tickInterval.
func (c *Conn) tick() {
	c.mu.Lock()
	if c.state == connClosed {
		c.mu.Unlock()
		return
	}

	now := c.clk.Now()
	if c.keepAliveInterval > 0 && now.Sub(c.lastSendAt) > c.keepAliveInterval {
		_ = c.sendRawLocked(packet{Tag: TagKeepAlive, Seq: c.sendNext - 1, Ack: c.recvNext})
		c.lastSendAt = now
	}

	timedOut := c.timeout > 0 && now.Sub(c.lastRecvAt) > c.timeout
	if timedOut {
		c.closeLocked()
	}
	cb := c.onDisconnected
	c.mu.Unlock()

	if timedOut && cb != nil {
		cb(false)
	}
}
