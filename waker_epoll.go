//go:build linux && !netpoll_pipewaker

package netpoll

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// epollWaker implements Waker on Linux using an eventfd registered
// edge-triggered. Every Wake call adds 1 to the kernel counter; the
// selector drains the counter back to zero after each observed event
// (selector_epoll.go's drainWakerIfArmed) so the next Wake produces a
// fresh 0-to-nonzero edge instead of being swallowed by an already-true
// level.
type epollWaker struct {
	sel   *selector
	token Token
	fd    int
}

func newWakerImpl(sel *selector, token Token) (wakerImpl, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, wrapSyscallErr("eventfd", "netpoll: new waker", err)
	}
	if err := sel.register(fd, token, Readable()); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	sel.armWaker(token, fd)
	return &epollWaker{sel: sel, token: token, fd: fd}, nil
}

func (w *epollWaker) wake() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(w.fd, buf[:])
	if err != nil && err != unix.EAGAIN {
		return wrapSyscallErr("write", "netpoll: wake", err)
	}
	return nil
}

func (w *epollWaker) close() error {
	w.sel.disarmWaker(w.token)
	_ = w.sel.deregister(w.fd)
	return wrapSyscallErr("close", "netpoll: close waker", unix.Close(w.fd))
}
