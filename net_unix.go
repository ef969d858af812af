//go:build !windows

package netpoll

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

const (
	familyInet4 = unix.AF_INET
	familyInet6 = unix.AF_INET6
)

func newStreamSocket(family int) (rawHandle, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return invalidHandle, wrapSyscallErr("socket", "netpoll: new TCP socket", err)
	}
	return fd, nil
}

func newDatagramSocket(family int) (rawHandle, error) {
	fd, err := unix.Socket(family, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return invalidHandle, wrapSyscallErr("socket", "netpoll: new UDP socket", err)
	}
	return fd, nil
}

func sockaddrFromTCPAddr(addr *net.TCPAddr) (unix.Sockaddr, error) {
	if addr == nil {
		return &unix.SockaddrInet4{}, nil
	}
	if ip4 := addr.IP.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return sa, nil
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	return sa, nil
}

func sockaddrFromUDPAddr(addr *net.UDPAddr) (unix.Sockaddr, error) {
	return sockaddrFromTCPAddr(&net.TCPAddr{IP: addr.IP, Port: addr.Port, Zone: addr.Zone})
}

func bindSocket(fd rawHandle, addr *net.TCPAddr) error {
	sa, err := sockaddrFromTCPAddr(addr)
	if err != nil {
		return err
	}
	return wrapSyscallErr("bind", "netpoll: bind", unix.Bind(fd, sa))
}

func bindUDPSocket(fd rawHandle, addr *net.UDPAddr) error {
	sa, err := sockaddrFromUDPAddr(addr)
	if err != nil {
		return err
	}
	return wrapSyscallErr("bind", "netpoll: bind", unix.Bind(fd, sa))
}

func listenSocket(fd rawHandle, backlog int) error {
	return wrapSyscallErr("listen", "netpoll: listen", unix.Listen(fd, backlog))
}

func connectSocket(fd rawHandle, addr *net.TCPAddr) error {
	sa, err := sockaddrFromTCPAddr(addr)
	if err != nil {
		return err
	}
	err = unix.Connect(fd, sa)
	if err != nil && err != unix.EINPROGRESS {
		return wrapSyscallErr("connect", "netpoll: connect", err)
	}
	return nil
}

func connectUDPSocket(fd rawHandle, addr *net.UDPAddr) error {
	sa, err := sockaddrFromUDPAddr(addr)
	if err != nil {
		return err
	}
	return wrapSyscallErr("connect", "netpoll: connect", unix.Connect(fd, sa))
}

func acceptSocket(fd rawHandle) (rawHandle, net.Addr, error) {
	nfd, sa, err := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.EAGAIN {
			return invalidHandle, nil, ErrWouldBlock
		}
		return invalidHandle, nil, wrapSyscallErr("accept4", "netpoll: accept", err)
	}
	return nfd, sockaddrToAddr(sa), nil
}

func sockaddrToAddr(sa unix.Sockaddr) net.Addr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: append([]byte(nil), v.Addr[:]...), Port: v.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: append([]byte(nil), v.Addr[:]...), Port: v.Port}
	default:
		return nil
	}
}

func readFD(fd rawHandle, p []byte) (int, error) {
	n, err := unix.Read(fd, p)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, ErrWouldBlock
		}
		return 0, wrapSyscallErr("read", "netpoll: read", err)
	}
	return n, nil
}

func writeFD(fd rawHandle, p []byte) (int, error) {
	n, err := unix.Write(fd, p)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, ErrWouldBlock
		}
		return 0, wrapSyscallErr("write", "netpoll: write", err)
	}
	return n, nil
}

func recvFromFD(fd rawHandle, p []byte) (int, net.Addr, error) {
	n, sa, err := unix.Recvfrom(fd, p, 0)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, nil, ErrWouldBlock
		}
		return 0, nil, wrapSyscallErr("recvfrom", "netpoll: recvfrom", err)
	}
	return n, sockaddrToAddr(sa), nil
}

func sendToFD(fd rawHandle, p []byte, addr *net.UDPAddr) (int, error) {
	sa, err := sockaddrFromUDPAddr(addr)
	if err != nil {
		return 0, err
	}
	if err := unix.Sendto(fd, p, 0, sa); err != nil {
		if err == unix.EAGAIN {
			return 0, ErrWouldBlock
		}
		return 0, wrapSyscallErr("sendto", "netpoll: sendto", err)
	}
	return len(p), nil
}

func closeFD(fd rawHandle) error {
	return wrapSyscallErr("close", "netpoll: close", unix.Close(fd))
}

func localAddrFD(fd rawHandle) net.Addr {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil
	}
	return sockaddrToAddr(sa)
}

func setReuseAddr(fd rawHandle, v bool) error {
	return wrapSyscallErr("setsockopt", "netpoll: SO_REUSEADDR", unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, boolToInt(v)))
}

func setRecvBuf(fd rawHandle, n int) error {
	return wrapSyscallErr("setsockopt", "netpoll: SO_RCVBUF", unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, n))
}

func setSendBuf(fd rawHandle, n int) error {
	return wrapSyscallErr("setsockopt", "netpoll: SO_SNDBUF", unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, n))
}

func setLinger(fd rawHandle, d *time.Duration) error {
	l := unix.Linger{}
	if d != nil {
		l.Onoff = 1
		l.Linger = int32(d.Seconds())
	}
	return wrapSyscallErr("setsockopt", "netpoll: SO_LINGER", unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &l))
}

func setReusePort(fd rawHandle, v bool) error {
	err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, boolToInt(v))
	if err != nil {
		return wrapSyscallErr("setsockopt", "netpoll: SO_REUSEPORT", err)
	}
	return nil
}

func setTCPKeepAlive(fd rawHandle, idle time.Duration) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
		return wrapSyscallErr("setsockopt", "netpoll: SO_KEEPALIVE", err)
	}
	if idle <= 0 {
		return nil
	}
	return setTCPKeepAliveIdle(fd, idle)
}

func setTCPNoDelay(fd rawHandle, v bool) error {
	err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, boolToInt(v))
	if err != nil {
		return wrapSyscallErr("setsockopt", "netpoll: TCP_NODELAY", err)
	}
	return nil
}

func setV6Only(fd rawHandle, v bool) error {
	return wrapSyscallErr("setsockopt", "netpoll: IPV6_V6ONLY", unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, boolToInt(v)))
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
