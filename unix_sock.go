//go:build !windows

package netpoll

import (
	"golang.org/x/sys/unix"
)

// UnixListener and UnixStream recover the local-domain socket support the
// distilled spec.md dropped (original_source/src/net/uds/{listener,stream}.rs).
// They share readiness semantics with their TCP counterparts exactly, so
// registration and I/O go through the same registrationState and
// readFD/writeFD helpers; Accept calls accept4 directly.
type UnixListener struct {
	fd    rawHandle
	state registrationState
}

// ListenUnix binds and listens a stream-mode Unix domain socket at path.
func ListenUnix(path string, backlog int) (*UnixListener, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, wrapSyscallErr("socket", "netpoll: new unix socket", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		_ = unix.Close(fd)
		return nil, wrapSyscallErr("bind", "netpoll: bind unix socket", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return nil, wrapSyscallErr("listen", "netpoll: listen unix socket", err)
	}
	return &UnixListener{fd: fd, state: newRegistrationState(fd)}, nil
}

func (l *UnixListener) Accept() (*UnixStream, error) {
	nfd, _, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.EAGAIN {
			return nil, ErrWouldBlock
		}
		return nil, wrapSyscallErr("accept4", "netpoll: accept unix", err)
	}
	return &UnixStream{fd: nfd, state: newRegistrationState(nfd)}, nil
}

func (l *UnixListener) Close() error { return closeFD(l.fd) }

func (l *UnixListener) registerWithSelector(registry Registry, token Token, interest Interest) error {
	return l.state.register(registry, token, interest)
}
func (l *UnixListener) reregisterWithSelector(registry Registry, token Token, interest Interest) error {
	return l.state.reregister(registry, token, interest)
}
func (l *UnixListener) deregisterFromSelector(registry Registry) error {
	return l.state.deregister(registry)
}

// UnixStream is a connected (or connecting) stream-mode Unix domain socket.
type UnixStream struct {
	fd    rawHandle
	state registrationState
}

// DialUnix connects to a Unix domain socket at path, non-blocking.
func DialUnix(path string) (*UnixStream, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, wrapSyscallErr("socket", "netpoll: new unix socket", err)
	}
	err = unix.Connect(fd, &unix.SockaddrUnix{Name: path})
	if err != nil && err != unix.EINPROGRESS {
		_ = unix.Close(fd)
		return nil, wrapSyscallErr("connect", "netpoll: connect unix", err)
	}
	return &UnixStream{fd: fd, state: newRegistrationState(fd)}, nil
}

// UnixStreamPair recovers original_source's UnixStream::pair, an unnamed
// connected pair useful for the same-process waker/self-pipe patterns
// tests in this module rely on.
func UnixStreamPair() (*UnixStream, *UnixStream, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, wrapSyscallErr("socketpair", "netpoll: unix stream pair", err)
	}
	a := &UnixStream{fd: fds[0], state: newRegistrationState(fds[0])}
	b := &UnixStream{fd: fds[1], state: newRegistrationState(fds[1])}
	return a, b, nil
}

func (s *UnixStream) Read(p []byte) (int, error)  { return readFD(s.fd, p) }
func (s *UnixStream) Write(p []byte) (int, error) { return writeFD(s.fd, p) }
func (s *UnixStream) Close() error                { return closeFD(s.fd) }

func (s *UnixStream) registerWithSelector(registry Registry, token Token, interest Interest) error {
	return s.state.register(registry, token, interest)
}
func (s *UnixStream) reregisterWithSelector(registry Registry, token Token, interest Interest) error {
	return s.state.reregister(registry, token, interest)
}
func (s *UnixStream) deregisterFromSelector(registry Registry) error {
	return s.state.deregister(registry)
}

// UnixDatagram is a connectionless local-domain datagram socket, grounded
// on original_source/src/net/uds/datagram.rs.
type UnixDatagram struct {
	fd    rawHandle
	state registrationState
}

func ListenUnixgram(path string) (*UnixDatagram, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, wrapSyscallErr("socket", "netpoll: new unix datagram socket", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		_ = unix.Close(fd)
		return nil, wrapSyscallErr("bind", "netpoll: bind unix datagram", err)
	}
	return &UnixDatagram{fd: fd, state: newRegistrationState(fd)}, nil
}

func (d *UnixDatagram) RecvFrom(p []byte) (int, unix.Sockaddr, error) {
	n, sa, err := unix.Recvfrom(d.fd, p, 0)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, nil, ErrWouldBlock
		}
		return 0, nil, wrapSyscallErr("recvfrom", "netpoll: recvfrom unix", err)
	}
	return n, sa, nil
}

func (d *UnixDatagram) SendTo(p []byte, path string) (int, error) {
	if err := unix.Sendto(d.fd, p, 0, &unix.SockaddrUnix{Name: path}); err != nil {
		if err == unix.EAGAIN {
			return 0, ErrWouldBlock
		}
		return 0, wrapSyscallErr("sendto", "netpoll: sendto unix", err)
	}
	return len(p), nil
}

func (d *UnixDatagram) Close() error { return closeFD(d.fd) }

func (d *UnixDatagram) registerWithSelector(registry Registry, token Token, interest Interest) error {
	return d.state.register(registry, token, interest)
}
func (d *UnixDatagram) reregisterWithSelector(registry Registry, token Token, interest Interest) error {
	return d.state.reregister(registry, token, interest)
}
func (d *UnixDatagram) deregisterFromSelector(registry Registry) error {
	return d.state.deregister(registry)
}
