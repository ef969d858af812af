package netpoll

import "net"

// UDPSocket is a non-blocking, connectionless UDP socket and a Source.
// Grounded on original_source/src/net/udp.rs. Unlike TCP, edge-triggered
// readable on a UDP socket means "at least one datagram is queued"; the
// caller must RecvFrom in a loop until ErrWouldBlock, exactly as with a
// stream, per spec.md §8 scenario S5.
type UDPSocket struct {
	fd    rawHandle
	state registrationState
}

// ListenUDP creates and binds a UDP socket for receiving.
func ListenUDP(addr *net.UDPAddr) (*UDPSocket, error) {
	family := familyInet4
	if addr != nil && addr.IP != nil && addr.IP.To4() == nil {
		family = familyInet6
	}
	fd, err := newDatagramSocket(family)
	if err != nil {
		return nil, err
	}
	if err := setReuseAddr(fd, true); err != nil {
		_ = closeFD(fd)
		return nil, err
	}
	if err := bindUDPSocket(fd, addr); err != nil {
		_ = closeFD(fd)
		return nil, err
	}
	return &UDPSocket{fd: fd, state: newRegistrationState(fd)}, nil
}

// DialUDP creates a UDP socket "connected" to addr, restricting Read/Write
// to that peer (as opposed to RecvFrom/SendTo's arbitrary-peer form).
func DialUDP(addr *net.UDPAddr) (*UDPSocket, error) {
	family := familyInet4
	if addr != nil && addr.IP != nil && addr.IP.To4() == nil {
		family = familyInet6
	}
	fd, err := newDatagramSocket(family)
	if err != nil {
		return nil, err
	}
	if err := connectUDPSocket(fd, addr); err != nil {
		_ = closeFD(fd)
		return nil, err
	}
	return &UDPSocket{fd: fd, state: newRegistrationState(fd)}, nil
}

func (u *UDPSocket) RecvFrom(p []byte) (int, net.Addr, error) { return recvFromFD(u.fd, p) }
func (u *UDPSocket) SendTo(p []byte, addr *net.UDPAddr) (int, error) {
	return sendToFD(u.fd, p, addr)
}
func (u *UDPSocket) Read(p []byte) (int, error)  { return readFD(u.fd, p) }
func (u *UDPSocket) Write(p []byte) (int, error) { return writeFD(u.fd, p) }
func (u *UDPSocket) Close() error                { return closeFD(u.fd) }

// LocalAddr reports the address the socket is bound to as a *net.UDPAddr,
// or nil if the kernel cannot report one.
func (u *UDPSocket) LocalAddr() net.Addr {
	if a, ok := localAddrFD(u.fd).(*net.TCPAddr); ok {
		return &net.UDPAddr{IP: a.IP, Port: a.Port, Zone: a.Zone}
	}
	return nil
}

func (u *UDPSocket) registerWithSelector(registry Registry, token Token, interest Interest) error {
	return u.state.register(registry, token, interest)
}

func (u *UDPSocket) reregisterWithSelector(registry Registry, token Token, interest Interest) error {
	return u.state.reregister(registry, token, interest)
}

func (u *UDPSocket) deregisterFromSelector(registry Registry) error {
	return u.state.deregister(registry)
}
