package udpx

import (
	"fmt"
	"net"
	"net/netip"
)

// PeerAddress is an immutable IPv4 address and UDP port pair. It is a
// value type: once obtained, comparing or copying it never mutates a
// live connection's state.
type PeerAddress struct {
	ip   netip.Addr
	port uint16
}

// NewPeerAddress builds a PeerAddress from an IPv4 address and port.
func NewPeerAddress(ip netip.Addr, port uint16) PeerAddress {
	if ip.Is4In6() {
		ip = ip.Unmap()
	}
	return PeerAddress{ip: ip, port: port}
}

// peerAddressFromUDP converts a *net.UDPAddr, as returned by the
// datagram I/O adapter, into a value-typed PeerAddress.
func peerAddressFromUDP(addr *net.UDPAddr) PeerAddress {
	ip, _ := netip.AddrFromSlice(addr.IP.To4())
	return PeerAddress{ip: ip, port: uint16(addr.Port)}
}

// UDPAddr converts the PeerAddress back to a *net.UDPAddr for use with
// the standard library's networking primitives.
func (p PeerAddress) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: p.ip.AsSlice(), Port: int(p.port)}
}

// IP returns the peer's IPv4 address.
func (p PeerAddress) IP() netip.Addr { return p.ip }

// Port returns the peer's UDP port.
func (p PeerAddress) Port() uint16 { return p.port }

func (p PeerAddress) String() string {
	return fmt.Sprintf("%s:%d", p.ip, p.port)
}

// ResolvePeerAddress resolves a "host:port" string to a PeerAddress.
func ResolvePeerAddress(hostport string) (PeerAddress, error) {
	addr, err := net.ResolveUDPAddr("udp4", hostport)
	if err != nil {
		return PeerAddress{}, err
	}
	return peerAddressFromUDP(addr), nil
}
