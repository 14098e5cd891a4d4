package udpx

import (
	"errors"
	"net"
	"sync"

	"github.com/rs/zerolog"
)

// socket is the shared demultiplexing layer underneath every Conn: it
// owns the physical *net.UDPConn, runs the single receive-and-tick
// loop a UDPX process needs per bound port (§5 explicitly allows
// realizing each connection's "logical receive task" as "an entry in a
// central select-driven loop"), and routes inbound datagrams to the
// Conn registered for their source address. A Dial'd Conn gets a
// socket of its own (one entry in conns); a Listener shares one socket
// across every Conn it accepts.
type socket struct {
	io  *ioAdapter
	log zerolog.Logger

	mu    sync.Mutex
	conns map[string]*Conn

	// onUnmatched handles a datagram from an address with no
	// registered Conn — either the Listener's handshake acceptor, or
	// the pending-queue hook a Connect attempt installs while waiting
	// for its HandshakeAck.
	onUnmatched func(peer PeerAddress, pkt packet)

	closeOnce sync.Once
	closed    chan struct{}
}

func newSocket(conn *net.UDPConn, log zerolog.Logger) *socket {
	return &socket{
		io:     newIOAdapter(conn),
		log:    log,
		conns:  make(map[string]*Conn),
		closed: make(chan struct{}),
	}
}

func bindSocket(localAddr string, log zerolog.Logger) (*socket, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", localAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, log), nil
}

// register associates peer with c so future inbound datagrams from
// peer are routed to c instead of onUnmatched.
func (s *socket) register(c *Conn) {
	s.mu.Lock()
	s.conns[c.peer.String()] = c
	s.mu.Unlock()
}

func (s *socket) unregister(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c.peer.String())
	s.mu.Unlock()
}

func (s *socket) snapshotConns() []*Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}

// run is the socket's single receive-and-tick loop: poll for a
// datagram up to tickInterval, dispatch it if one arrived, then
// advance every registered Conn's timers. It returns once close is
// called.
func (s *socket) run() {
	for {
		select {
		case <-s.closed:
			return
		default:
		}

		peer, data, err := s.io.receive(tickInterval)
		switch {
		case err == nil:
			s.dispatch(peer, data)
		case errors.Is(err, errWouldBlock):
			// normal steady state; fall through to tick.
		default:
			s.log.Debug().Err(err).Msg("socket read failed, stopping receive loop")
			return
		}

		for _, c := range s.snapshotConns() {
			c.tick()
		}
	}
}

func (s *socket) dispatch(peer PeerAddress, data []byte) {
	pkt, err := decode(data)
	if err != nil {
		s.log.Trace().Stringer("peer", peer).Err(err).Msg("dropping malformed datagram")
		return
	}

	s.mu.Lock()
	c, ok := s.conns[peer.String()]
	s.mu.Unlock()

	if ok {
		c.handleInbound(pkt)
		return
	}
	if s.onUnmatched != nil {
		s.onUnmatched(peer, pkt)
	}
}

func (s *socket) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		_ = s.io.close()
	})
}
