//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package netpoll

import "golang.org/x/sys/unix"

// kqueueWaker implements Waker with an EVFILT_USER registration, per
// spec.md §4.5. EV_CLEAR resets the filter's triggered state on delivery,
// so — unlike the epoll eventfd back-end — no explicit drain step is
// needed for the next Wake to produce a fresh edge.
type kqueueWaker struct {
	sel   *selector
	token Token
	ident uint64
}

func newWakerImpl(sel *selector, token Token) (wakerImpl, error) {
	sel.mu.Lock()
	ident := uint64(len(sel.regs)) + 1<<32 // outside the fd namespace used by real sources
	sel.mu.Unlock()

	changes := []unix.Kevent_t{{
		Ident:  ident,
		Filter: unix.EVFILT_USER,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
	}}
	if _, err := unix.Kevent(sel.kq, changes, nil, nil); err != nil {
		return nil, wrapSyscallErr("kevent", "netpoll: new waker", err)
	}

	sel.mu.Lock()
	sel.wakerArmed = true
	sel.wakerToken = token
	sel.mu.Unlock()

	return &kqueueWaker{sel: sel, token: token, ident: ident}, nil
}

func (w *kqueueWaker) wake() error {
	changes := []unix.Kevent_t{{
		Ident:  w.ident,
		Filter: unix.EVFILT_USER,
		Fflags: unix.NOTE_TRIGGER,
	}}
	_, err := unix.Kevent(w.sel.kq, changes, nil, nil)
	if err != nil {
		return wrapSyscallErr("kevent", "netpoll: wake", err)
	}
	return nil
}

func (w *kqueueWaker) close() error {
	w.sel.mu.Lock()
	w.sel.wakerArmed = false
	w.sel.mu.Unlock()

	changes := []unix.Kevent_t{{
		Ident:  w.ident,
		Filter: unix.EVFILT_USER,
		Flags:  unix.EV_DELETE,
	}}
	_, err := unix.Kevent(w.sel.kq, changes, nil, nil)
	if err != nil && err != unix.ENOENT {
		return wrapSyscallErr("kevent", "netpoll: close waker", err)
	}
	return nil
}
