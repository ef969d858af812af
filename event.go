package netpoll

import "fmt"

// eventFlags is the portable, decoded predicate set every back-end
// translates its raw kernel event into. The per-platform decode rules live
// in decodeEpollBits (selector_epoll.go), the kqueue selectEvents loop
// (selector_kqueue.go) and decodeAfdBits (afd_windows.go).
type eventFlags uint32

const (
	flagReadable eventFlags = 1 << iota
	flagWritable
	flagError
	flagReadClosed
	flagWriteClosed
	flagPriority
)

// Event is a read-only, portable view over a single kernel readiness
// transition. Event values are plain data — safe to copy or hold onto —
// but the token and flags they carry only describe the transition that was
// current when the owning Events buffer was last filled by Poll.Poll.
type Event struct {
	token Token
	flags eventFlags
}

// Token returns the token the source was registered with, as observed in
// the kernel event itself. A reregistration that changes the token is
// reflected here from the next transition onward, per spec.md §4.4.
func (e Event) Token() Token { return e.token }

// IsReadable reports readiness for a non-blocking read or accept.
func (e Event) IsReadable() bool { return e.flags&flagReadable != 0 }

// IsWritable reports readiness for a non-blocking write, or that a pending
// connect has resolved (successfully or not — check IsError too).
func (e Event) IsWritable() bool { return e.flags&flagWritable != 0 }

// IsError reports that the source has an error condition. Readable/writable
// predicates on the same Event remain meaningful: a caller should still
// drain before treating the source as dead.
func (e Event) IsError() bool { return e.flags&flagError != 0 }

// IsReadClosed reports that the source's read direction has closed: EOF,
// or the peer will send no more data.
func (e Event) IsReadClosed() bool { return e.flags&flagReadClosed != 0 }

// IsWriteClosed reports that the source's write direction has closed.
func (e Event) IsWriteClosed() bool { return e.flags&flagWriteClosed != 0 }

// IsPriority reports readiness of out-of-band or priority data.
func (e Event) IsPriority() bool { return e.flags&flagPriority != 0 }

// String renders the event for debug logging.
func (e Event) String() string {
	return fmt.Sprintf(
		"Event{token: %d, readable: %t, writable: %t, error: %t, read_closed: %t, write_closed: %t, priority: %t}",
		e.token, e.IsReadable(), e.IsWritable(), e.IsError(), e.IsReadClosed(), e.IsWriteClosed(), e.IsPriority(),
	)
}
