//go:build windows

package netpoll

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

const (
	familyInet4 = windows.AF_INET
	familyInet6 = windows.AF_INET6
)

func newStreamSocket(family int) (rawHandle, error) {
	fd, err := windows.WSASocket(int32(family), windows.SOCK_STREAM, 0, nil, 0, windows.WSA_FLAG_OVERLAPPED|windows.WSA_FLAG_NO_HANDLE_INHERIT)
	if err != nil {
		return invalidHandle, errors.Wrap(err, "netpoll: new TCP socket")
	}
	if err := windows.SetNonblock(fd, true); err != nil {
		_ = windows.CloseHandle(fd)
		return invalidHandle, errors.Wrap(err, "netpoll: set non-blocking")
	}
	return fd, nil
}

func newDatagramSocket(family int) (rawHandle, error) {
	fd, err := windows.WSASocket(int32(family), windows.SOCK_DGRAM, 0, nil, 0, windows.WSA_FLAG_OVERLAPPED|windows.WSA_FLAG_NO_HANDLE_INHERIT)
	if err != nil {
		return invalidHandle, errors.Wrap(err, "netpoll: new UDP socket")
	}
	if err := windows.SetNonblock(fd, true); err != nil {
		_ = windows.CloseHandle(fd)
		return invalidHandle, errors.Wrap(err, "netpoll: set non-blocking")
	}
	return fd, nil
}

func sockaddrFromTCPAddr(addr *net.TCPAddr) (windows.Sockaddr, error) {
	if addr == nil {
		return &windows.SockaddrInet4{}, nil
	}
	if ip4 := addr.IP.To4(); ip4 != nil {
		sa := &windows.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return sa, nil
	}
	sa := &windows.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	return sa, nil
}

func sockaddrFromUDPAddr(addr *net.UDPAddr) (windows.Sockaddr, error) {
	return sockaddrFromTCPAddr(&net.TCPAddr{IP: addr.IP, Port: addr.Port, Zone: addr.Zone})
}

func bindSocket(fd rawHandle, addr *net.TCPAddr) error {
	sa, err := sockaddrFromTCPAddr(addr)
	if err != nil {
		return err
	}
	return errors.Wrap(windows.Bind(fd, sa), "netpoll: bind")
}

func bindUDPSocket(fd rawHandle, addr *net.UDPAddr) error {
	sa, err := sockaddrFromUDPAddr(addr)
	if err != nil {
		return err
	}
	return errors.Wrap(windows.Bind(fd, sa), "netpoll: bind")
}

func listenSocket(fd rawHandle, backlog int) error {
	return errors.Wrap(windows.Listen(fd, backlog), "netpoll: listen")
}

func connectSocket(fd rawHandle, addr *net.TCPAddr) error {
	sa, err := sockaddrFromTCPAddr(addr)
	if err != nil {
		return err
	}
	err = windows.Connect(fd, sa)
	if err != nil && err != windows.WSAEWOULDBLOCK {
		return errors.Wrap(err, "netpoll: connect")
	}
	return nil
}

func connectUDPSocket(fd rawHandle, addr *net.UDPAddr) error {
	sa, err := sockaddrFromUDPAddr(addr)
	if err != nil {
		return err
	}
	return errors.Wrap(windows.Connect(fd, sa), "netpoll: connect")
}

func acceptSocket(fd rawHandle) (rawHandle, net.Addr, error) {
	nfd, sa, err := windows.Accept(fd)
	if err != nil {
		if err == windows.WSAEWOULDBLOCK {
			return invalidHandle, nil, ErrWouldBlock
		}
		return invalidHandle, nil, errors.Wrap(err, "netpoll: accept")
	}
	_ = windows.SetNonblock(nfd, true)
	return nfd, sockaddrToAddr(sa), nil
}

func sockaddrToAddr(sa windows.Sockaddr) net.Addr {
	switch v := sa.(type) {
	case *windows.SockaddrInet4:
		return &net.TCPAddr{IP: append([]byte(nil), v.Addr[:]...), Port: v.Port}
	case *windows.SockaddrInet6:
		return &net.TCPAddr{IP: append([]byte(nil), v.Addr[:]...), Port: v.Port}
	default:
		return nil
	}
}

func readFD(fd rawHandle, p []byte) (int, error) {
	n, err := windows.Read(fd, p)
	if err != nil {
		if err == windows.WSAEWOULDBLOCK {
			return 0, ErrWouldBlock
		}
		return 0, errors.Wrap(err, "netpoll: read")
	}
	return n, nil
}

func writeFD(fd rawHandle, p []byte) (int, error) {
	n, err := windows.Write(fd, p)
	if err != nil {
		if err == windows.WSAEWOULDBLOCK {
			return 0, ErrWouldBlock
		}
		return 0, errors.Wrap(err, "netpoll: write")
	}
	return n, nil
}

func recvFromFD(fd rawHandle, p []byte) (int, net.Addr, error) {
	n, from, err := windows.Recvfrom(fd, p, 0)
	if err != nil {
		if err == windows.WSAEWOULDBLOCK {
			return 0, nil, ErrWouldBlock
		}
		return 0, nil, errors.Wrap(err, "netpoll: recvfrom")
	}
	return n, sockaddrToAddr(from), nil
}

func sendToFD(fd rawHandle, p []byte, addr *net.UDPAddr) (int, error) {
	sa, err := sockaddrFromUDPAddr(addr)
	if err != nil {
		return 0, err
	}
	if err := windows.Sendto(fd, p, 0, sa); err != nil {
		if err == windows.WSAEWOULDBLOCK {
			return 0, ErrWouldBlock
		}
		return 0, errors.Wrap(err, "netpoll: sendto")
	}
	return len(p), nil
}

func closeFD(fd rawHandle) error {
	return errors.Wrap(windows.CloseHandle(fd), "netpoll: close")
}

func localAddrFD(fd rawHandle) net.Addr {
	sa, err := windows.Getsockname(fd)
	if err != nil {
		return nil
	}
	return sockaddrToAddr(sa)
}

func setReuseAddr(fd rawHandle, v bool) error {
	return errors.Wrap(windows.SetsockoptInt(fd, windows.SOL_SOCKET, windows.SO_REUSEADDR, boolToInt(v)), "netpoll: SO_REUSEADDR")
}

func setReusePort(fd rawHandle, v bool) error {
	// Winsock has no SO_REUSEPORT; SO_REUSEADDR already permits multiple
	// listeners to share an address on Windows, so this is a documented
	// no-op rather than an error.
	return nil
}

func setRecvBuf(fd rawHandle, n int) error {
	return errors.Wrap(windows.SetsockoptInt(fd, windows.SOL_SOCKET, windows.SO_RCVBUF, n), "netpoll: SO_RCVBUF")
}

func setSendBuf(fd rawHandle, n int) error {
	return errors.Wrap(windows.SetsockoptInt(fd, windows.SOL_SOCKET, windows.SO_SNDBUF, n), "netpoll: SO_SNDBUF")
}

func setLinger(fd rawHandle, d *time.Duration) error {
	l := windows.Linger{}
	if d != nil {
		l.Onoff = 1
		l.Linger = int32(d.Seconds())
	}
	return errors.Wrap(windows.SetsockoptLinger(fd, windows.SOL_SOCKET, windows.SO_LINGER, &l), "netpoll: SO_LINGER")
}

func setTCPNoDelay(fd rawHandle, v bool) error {
	return errors.Wrap(windows.SetsockoptInt(fd, windows.IPPROTO_TCP, windows.TCP_NODELAY, boolToInt(v)), "netpoll: TCP_NODELAY")
}

func setV6Only(fd rawHandle, v bool) error {
	return errors.Wrap(windows.SetsockoptInt(fd, windows.IPPROTO_IPV6, windows.IPV6_V6ONLY, boolToInt(v)), "netpoll: IPV6_V6ONLY")
}

func setTCPKeepAlive(fd rawHandle, idle time.Duration) error {
	if err := windows.SetsockoptInt(fd, windows.SOL_SOCKET, windows.SO_KEEPALIVE, 1); err != nil {
		return errors.Wrap(err, "netpoll: SO_KEEPALIVE")
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
