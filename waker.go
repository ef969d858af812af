package netpoll

// Waker is a scoped wake primitive: constructed from a Registry and a
// token, it lets any goroutine force a Poll blocked in Poll.Poll to return
// (spec.md §4.5). Wake is safe to call from any goroutine, including
// concurrently with itself; multiple wakes issued before a Poll observes
// them may coalesce into a single delivered event. After a Poll returns
// because of a wake, the Waker is left armed — the caller never needs to
// rearm it.
type Waker struct {
	registry Registry
	token    Token
	impl     wakerImpl
}

// wakerImpl is the per-back-end implementation Waker delegates to. Exactly
// one of waker_epoll.go, waker_epoll_pipe.go, waker_kqueue.go, or
// waker_windows.go is compiled for a given build.
type wakerImpl interface {
	wake() error
	close() error
}

// NewWaker constructs a Waker bound to registry's selector and armed under
// token. The Poll backing registry must outlive the Waker.
func NewWaker(registry Registry, token Token) (*Waker, error) {
	impl, err := newWakerImpl(registry.sel, token)
	if err != nil {
		return nil, err
	}
	return &Waker{registry: registry, token: token, impl: impl}, nil
}

// Wake forces the Poll blocked on this Waker's selector to return.
func (w *Waker) Wake() error {
	log.Debug().Uint64("token", uint64(w.token)).Msg("waker: wake")
	return w.impl.wake()
}

// Close deregisters the waker. Wake must not be called after Close.
func (w *Waker) Close() error {
	return w.impl.close()
}
