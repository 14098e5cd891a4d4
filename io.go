package udpx

import (
	"errors"
	"net"
	"time"
)

// errWouldBlock is returned by ioAdapter.receive when no datagram
// arrived within the poll window — the normal steady-state result.
var errWouldBlock = errors.New("udpx: would block")

// ioAdapter is the datagram I/O adapter (§4.2): it sends and receives
// length-delimited byte blobs against a *net.UDPConn, presenting a
// non-blocking receive contract built from a per-call read deadline
// rather than a true non-blocking socket (Go's net package offers no
// such primitive directly).
type ioAdapter struct {
	conn *net.UDPConn
}

func newIOAdapter(conn *net.UDPConn) *ioAdapter {
	return &ioAdapter{conn: conn}
}

// send transmits data to peer. A fatal error here is the caller's to
// surface; it never tears down any connection by itself (§7).
func (a *ioAdapter) send(peer PeerAddress, data []byte) error {
	_, err := a.conn.WriteToUDP(data, peer.UDPAddr())
	return err
}

// receive polls for a single inbound datagram for up to poll before
// giving up and returning errWouldBlock. It must never block the
// caller's timer tick for longer than poll (§4.2).
func (a *ioAdapter) receive(poll time.Duration) (PeerAddress, []byte, error) {
	if err := a.conn.SetReadDeadline(time.Now().Add(poll)); err != nil {
		return PeerAddress{}, nil, err
	}
	buf := make([]byte, udpMax)
	n, addr, err := a.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return PeerAddress{}, nil, errWouldBlock
		}
		return PeerAddress{}, nil, err
	}
	return peerAddressFromUDP(addr), buf[:n], nil
}

func (a *ioAdapter) close() error {
	return a.conn.Close()
}

func (a *ioAdapter) localAddr() *net.UDPAddr {
	return a.conn.LocalAddr().(*net.UDPAddr)
}
