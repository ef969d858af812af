//go:build windows

package netpoll

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

type afdRegState int

const (
	afdIdle afdRegState = iota
	afdPolling
	afdCancelling
)

// afdPollReq is the per-registration AFD poll block plus the OVERLAPPED
// used to submit and track it through IOCP. hdr must stay the first field:
// selectEvents recovers this struct's address directly from the
// OVERLAPPED pointer IOCP hands back (see ioop_windows.go).
type afdPollReq struct {
	hdr        ioOpHeader
	info       afdPollInfo
	socket     windows.Handle
	baseSocket windows.Handle
	token      Token
	interest   Interest
	state      afdRegState
}

// selector is the Windows Selector: one IOCP handle fanning in completions
// from AFD poll submissions, named-pipe read/write completions, and the
// Waker's posted packets, per spec.md §4.7. There is no runtime interface
// dispatch on the hot path — one concrete selector type per platform,
// matching momentics-hioload-ws's reactor package convention.
type selector struct {
	selID uint64
	iocp  windows.Handle
	afd   windows.Handle

	mu   sync.Mutex
	regs map[windows.Handle]*afdPollReq

	wakerArmed bool
	wakerToken Token

	raw []windows.OverlappedEntry
}

func newSelector() (*selector, error) {
	iocp, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return nil, errors.Wrap(err, "netpoll: create IOCP")
	}
	afd, err := openAfdDevice(iocp)
	if err != nil {
		_ = windows.CloseHandle(iocp)
		return nil, err
	}
	return &selector{
		selID: nextSelectorID(),
		iocp:  iocp,
		afd:   afd,
		regs:  make(map[windows.Handle]*afdPollReq),
	}, nil
}

func (s *selector) id() uint64 { return s.selID }

func (s *selector) close() error {
	_ = windows.CloseHandle(s.afd)
	return errors.Wrap(windows.CloseHandle(s.iocp), "netpoll: close selector")
}

func (s *selector) register(handle rawHandle, token Token, interest Interest) error {
	if interest.IsEmpty() {
		return ErrInvalidArgument
	}
	base, err := resolveBaseHandle(handle)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, exists := s.regs[handle]; exists {
		s.mu.Unlock()
		return ErrAlreadyExists
	}
	req := &afdPollReq{socket: handle, baseSocket: base, token: token, interest: interest}
	s.regs[handle] = req
	s.mu.Unlock()

	return s.submitPoll(req)
}

func (s *selector) reregister(handle rawHandle, token Token, interest Interest) error {
	if interest.IsEmpty() {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	req, exists := s.regs[handle]
	if !exists {
		s.mu.Unlock()
		return ErrNotFound
	}
	req.token = token
	req.interest = interest
	needsResubmit := req.state == afdIdle
	s.mu.Unlock()

	if needsResubmit {
		return s.submitPoll(req)
	}
	// A poll is already in flight; it picks up the new token/interest the
	// next time it completes and is re-armed, per spec.md §4.7 step 4.
	return nil
}

func (s *selector) deregister(handle rawHandle) error {
	s.mu.Lock()
	req, exists := s.regs[handle]
	if !exists {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.regs, handle)
	req.state = afdCancelling
	s.mu.Unlock()

	// Cancel any outstanding IOCTL_AFD_POLL so the driver stops writing
	// into req.info after we free it. ERROR_NOT_FOUND means it already
	// completed; that completion, when it arrives, is dropped by
	// selectEvents because the registration is no longer in s.regs.
	err := windows.CancelIoEx(s.afd, &req.hdr.overlapped)
	if err != nil && err != windows.ERROR_NOT_FOUND {
		return errors.Wrap(err, "netpoll: cancel AFD poll")
	}
	return nil
}

func (s *selector) submitPoll(req *afdPollReq) error {
	req.info = afdPollInfo{
		Timeout:         1<<63 - 1,
		NumberOfHandles: 1,
		Handles: [1]afdPollHandleInfo{{
			Handle: req.baseSocket,
			Events: interestToAfdBits(req.interest),
		}},
	}
	req.hdr = ioOpHeader{kind: ioOpAfdPoll}
	req.state = afdPolling

	return ntDeviceIoControlFile(
		s.afd,
		&req.hdr.overlapped,
		ioctlAfdPoll,
		unsafe.Pointer(&req.info),
		uint32(unsafe.Sizeof(req.info)),
		unsafe.Pointer(&req.info),
		uint32(unsafe.Sizeof(req.info)),
	)
}

func (s *selector) selectEvents(events *Events, timeoutMillis int) error {
	dst := events.reset()
	if cap(s.raw) < cap(dst) {
		s.raw = make([]windows.OverlappedEntry, cap(dst))
	}
	entries := s.raw[:cap(dst)]

	timeout := uint32(windows.INFINITE)
	if timeoutMillis >= 0 {
		timeout = uint32(timeoutMillis)
	}

	var n uint32
	err := windows.GetQueuedCompletionStatusEx(s.iocp, entries, &n, timeout, false)
	if err != nil {
		if err == windows.WAIT_TIMEOUT {
			events.setLen(0)
			return nil
		}
		return errors.Wrap(err, "netpoll: GetQueuedCompletionStatusEx")
	}

	dst = dst[:0]
	s.mu.Lock()
	for i := uint32(0); i < n; i++ {
		entry := entries[i]
		if entry.Overlapped == nil {
			// A wake posted with no OVERLAPPED (waker_windows.go).
			if s.wakerArmed {
				dst = append(dst, Event{token: s.wakerToken, flags: flagReadable})
			}
			continue
		}
		hdr := (*ioOpHeader)(unsafe.Pointer(entry.Overlapped))
		switch hdr.kind {
		case ioOpAfdPoll:
			if ev, ok := s.completeAfdPoll(entry.Overlapped); ok {
				dst = append(dst, ev)
			}
		case ioOpPipeRead, ioOpPipeWrite:
			if ev, ok := completePipeOp(entry.Overlapped, hdr.kind, entry.BytesTransferred); ok {
				dst = append(dst, ev)
			}
		}
	}
	s.mu.Unlock()

	events.setLen(len(dst))
	return nil
}

func (s *selector) completeAfdPoll(o *windows.Overlapped) (Event, bool) {
	req := (*afdPollReq)(unsafe.Pointer(o))
	if _, live := s.regs[req.socket]; !live {
		// Deregistered while the completion was in flight; drop it.
		return Event{}, false
	}
	bits := req.info.Handles[0].Events
	var ev Event
	if req.info.Handles[0].Status != 0 && bits == 0 {
		// POLL_ABORT / driver-reported failure with no bits set: treat as
		// a full close, per spec.md §4.7 step 5.
		ev = Event{token: req.token, flags: flagError | flagReadClosed | flagWriteClosed}
	} else {
		ev = Event{token: req.token, flags: decodeAfdBits(bits)}
	}
	req.state = afdIdle
	if err := s.submitPoll(req); err != nil {
		log.Warn().Err(err).Msg("netpoll: failed to resubmit AFD poll")
	}
	return ev, true
}
