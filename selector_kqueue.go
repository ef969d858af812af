//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package netpoll

import (
	"sync"

	"golang.org/x/sys/unix"
)

// kqueueReg records the token and interest a fd is currently registered
// with. kevent identifies events by (ident, filter), not by an arbitrary
// caller-supplied word the way epoll's data union does, so this back-end
// keeps a small side table instead. Grounded directly on
// joeycumines-go-utilpkg's poller_darwin.go SafePoller, which keeps the
// same shape of map (there: fd -> callback; here: fd -> token/interest).
type kqueueReg struct {
	token    Token
	interest Interest
}

// selector wraps a single kqueue instance.
type selector struct {
	selID uint64
	kq    int

	mu   sync.Mutex
	regs map[int]*kqueueReg

	wakerArmed bool
	wakerToken Token

	raw []unix.Kevent_t
}

func newSelector() (*selector, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, wrapSyscallErr("kqueue", "netpoll: create selector", err)
	}
	unix.CloseOnExec(kq)
	return &selector{
		selID: nextSelectorID(),
		kq:    kq,
		regs:  make(map[int]*kqueueReg),
	}, nil
}

func (s *selector) id() uint64 { return s.selID }

func (s *selector) close() error {
	return wrapSyscallErr("close", "netpoll: close selector", unix.Close(s.kq))
}

// changesFor builds the kevent changelist needed to move a fd's active
// kqueue filters from "old" to "new" interest, using EV_CLEAR so each
// filter delivers edge-triggered, matching spec.md §3 invariant 5.
func changesFor(fd int, oldInterest, newInterest Interest, adding bool) []unix.Kevent_t {
	var changes []unix.Kevent_t
	// kqueue folds Priority into the read filter (SPEC_FULL.md §7); AIO/LIO
	// have no kqueue analogue and contribute no filter registration.
	wantRead := newInterest.IsReadable() || newInterest.IsPriority()
	wantWrite := newInterest.IsWritable()
	hadRead := oldInterest.IsReadable() || oldInterest.IsPriority()
	hadWrite := oldInterest.IsWritable()

	if wantRead && (!hadRead || adding) {
		changes = append(changes, unix.Kevent_t{Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_ENABLE | unix.EV_CLEAR})
	} else if !wantRead && hadRead {
		changes = append(changes, unix.Kevent_t{Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE})
	}
	if wantWrite && (!hadWrite || adding) {
		changes = append(changes, unix.Kevent_t{Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD | unix.EV_ENABLE | unix.EV_CLEAR})
	} else if !wantWrite && hadWrite {
		changes = append(changes, unix.Kevent_t{Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE})
	}
	for i := range changes {
		changes[i].Ident = uint64(fd)
	}
	return changes
}

func (s *selector) register(handle rawHandle, token Token, interest Interest) error {
	if interest.IsEmpty() {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	if _, exists := s.regs[int(handle)]; exists {
		s.mu.Unlock()
		return ErrAlreadyExists
	}
	s.mu.Unlock()

	changes := changesFor(int(handle), 0, interest, true)
	if _, err := unix.Kevent(s.kq, changes, nil, nil); err != nil {
		return wrapSyscallErr("kevent", "netpoll: register", err)
	}

	s.mu.Lock()
	s.regs[int(handle)] = &kqueueReg{token: token, interest: interest}
	s.mu.Unlock()
	return nil
}

func (s *selector) reregister(handle rawHandle, token Token, interest Interest) error {
	if interest.IsEmpty() {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	reg, exists := s.regs[int(handle)]
	if !exists {
		s.mu.Unlock()
		return ErrNotFound
	}
	oldInterest := reg.interest
	s.mu.Unlock()

	changes := changesFor(int(handle), oldInterest, interest, false)
	if len(changes) > 0 {
		if _, err := unix.Kevent(s.kq, changes, nil, nil); err != nil {
			return wrapSyscallErr("kevent", "netpoll: reregister", err)
		}
	}

	s.mu.Lock()
	reg.token = token
	reg.interest = interest
	s.mu.Unlock()
	return nil
}

func (s *selector) deregister(handle rawHandle) error {
	s.mu.Lock()
	reg, exists := s.regs[int(handle)]
	if !exists {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.regs, int(handle))
	s.mu.Unlock()

	changes := changesFor(int(handle), reg.interest, 0, false)
	if len(changes) > 0 {
		if _, err := unix.Kevent(s.kq, changes, nil, nil); err != nil && err != unix.ENOENT {
			return wrapSyscallErr("kevent", "netpoll: deregister", err)
		}
	}
	return nil
}

func (s *selector) selectEvents(events *Events, timeoutMillis int) error {
	dst := events.reset()
	need := cap(dst)
	if cap(s.raw) < need {
		s.raw = make([]unix.Kevent_t, need)
	}
	raw := s.raw[:need]

	var ts *unix.Timespec
	if timeoutMillis >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMillis / 1000),
			Nsec: int64(timeoutMillis%1000) * 1_000_000,
		}
	}

	n, err := unix.Kevent(s.kq, nil, raw, ts)
	for err == unix.EINTR {
		log.Trace().Msg("kevent interrupted by signal, retrying")
		n, err = unix.Kevent(s.kq, nil, raw, ts)
	}
	if err != nil {
		return wrapSyscallErr("kevent", "netpoll: select", err)
	}

	dst = dst[:0]
	s.mu.Lock()
	for i := 0; i < n; i++ {
		ev := &raw[i]
		if ev.Filter == unix.EVFILT_USER && s.wakerArmed {
			dst = append(dst, Event{token: s.wakerToken, flags: flagReadable})
			continue
		}
		fd := int(ev.Ident)
		reg, ok := s.regs[fd]
		if !ok {
			continue
		}
		var flags eventFlags
		switch ev.Filter {
		case unix.EVFILT_READ:
			flags |= flagReadable
		case unix.EVFILT_WRITE:
			flags |= flagWritable
		}
		if ev.Flags&unix.EV_EOF != 0 {
			switch ev.Filter {
			case unix.EVFILT_READ:
				flags |= flagReadClosed
			case unix.EVFILT_WRITE:
				flags |= flagWriteClosed
			}
			if ev.Fflags != 0 {
				flags |= flagError
			}
		}
		if ev.Flags&unix.EV_ERROR != 0 {
			flags |= flagError
		}
		dst = append(dst, Event{token: reg.token, flags: flags})
	}
	s.mu.Unlock()

	events.setLen(len(dst))
	return nil
}
