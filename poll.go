package netpoll

import "time"

// Poll is the single-owner entry point combining a Selector and a
// Registry (spec.md §4.3). A Poll is typically owned and polled by one
// goroutine; any number of goroutines may hold a clone of its Registry and
// register sources concurrently with that polling.
type Poll struct {
	sel *selector
	reg Registry
}

// New constructs a Poll backed by a fresh OS readiness object.
func New() (*Poll, error) {
	sel, err := newSelector()
	if err != nil {
		return nil, err
	}
	return &Poll{sel: sel, reg: Registry{sel: sel}}, nil
}

// Registry returns a Registry clone tied to this Poll's selector. Registry
// is cloneable; Poll is not.
func (p *Poll) Registry() Registry { return p.reg }

// Poll fills events with up to its capacity ready events, waiting at most
// timeout (nil means block indefinitely). It returns when at least one
// event arrived, the timeout expired, or a Waker fired. Interruption by a
// signal is retried transparently and never surfaced to the caller.
//
// The timeout is clamped to the platform's maximum supported wait, per
// spec.md §4.3, to avoid the pre-2.6.37 32-bit Linux epoll_wait bug that
// turns an overlong timeout into an immediate return.
func (p *Poll) Poll(events *Events, timeout *time.Duration) error {
	ms := -1
	if timeout != nil {
		ms = int(timeout.Milliseconds())
		if ms < 0 {
			ms = 0
		}
	}
	ms = clampTimeoutMillis(ms)
	return p.sel.selectEvents(events, ms)
}

// Close releases the underlying OS readiness object. Any Registry clones
// and any sources still registered become unusable; deregister sources
// before closing to avoid leaking kernel-side state.
func (p *Poll) Close() error {
	return p.sel.close()
}
