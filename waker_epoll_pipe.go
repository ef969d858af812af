//go:build linux && netpoll_pipewaker

package netpoll

import "golang.org/x/sys/unix"

// pipeWaker is the fallback Waker back-end selected by the netpoll_pipewaker
// build tag, for environments where eventfd is unavailable (spec.md §4.5:
// "A fallback pipe-based implementation... is supported where eventfd is
// unavailable"). A single byte written to the pipe's write end makes the
// read end edge-triggered readable; the selector drains it the same way it
// drains an eventfd counter.
type pipeWaker struct {
	sel     *selector
	token   Token
	readFD  int
	writeFD int
}

func newWakerImpl(sel *selector, token Token) (wakerImpl, error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return nil, wrapSyscallErr("pipe2", "netpoll: new waker", err)
	}
	if err := sel.register(p[0], token, Readable()); err != nil {
		_ = unix.Close(p[0])
		_ = unix.Close(p[1])
		return nil, err
	}
	sel.armWaker(token, p[0])
	return &pipeWaker{sel: sel, token: token, readFD: p[0], writeFD: p[1]}, nil
}

func (w *pipeWaker) wake() error {
	_, err := unix.Write(w.writeFD, []byte{1})
	if err != nil && err != unix.EAGAIN {
		return wrapSyscallErr("write", "netpoll: wake", err)
	}
	return nil
}

func (w *pipeWaker) close() error {
	w.sel.disarmWaker(w.token)
	_ = w.sel.deregister(w.readFD)
	_ = unix.Close(w.readFD)
	return wrapSyscallErr("close", "netpoll: close waker", unix.Close(w.writeFD))
}
