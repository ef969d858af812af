package netpoll

// Source is the contract any registrable object must implement so a
// Registry can delegate to a back-end-appropriate registration call
// (spec.md §4.6). A Source knows its own kernel handle and how to hand it
// to a Selector; the Registry never inspects the handle itself.
type Source interface {
	registerWithSelector(registry Registry, token Token, interest Interest) error
	reregisterWithSelector(registry Registry, token Token, interest Interest) error
	deregisterFromSelector(registry Registry) error
}

// registrationState is the guard every concrete Source in this module
// embeds to track which selector (if any) it is currently bound to. It
// recovers the original Rust implementation's IoSource<T> wrapper
// (SPEC_FULL.md §6 item 1) and enforces spec.md §3 invariants 1 and 2: a
// source registered with at most one selector at a time, and a clean error
// instead of silent corruption when a caller tries to register it with a
// second one.
//
// registrationState is not itself safe for concurrent register/reregister/
// deregister calls on the *same* source from multiple goroutines — the
// application-level ordering of those calls on one source is the caller's
// responsibility, per spec.md §3 invariant 2's "undefined at the
// application level" note. It is safe for the Source to be registered on
// one goroutine while a wholly different Source is registered, reregistered
// or deregistered concurrently on another, since each has its own state and
// the underlying Selector serializes its own bookkeeping.
type registrationState struct {
	handle     rawHandle
	selectorID uint64 // 0 means unregistered
}

func newRegistrationState(handle rawHandle) registrationState {
	return registrationState{handle: handle}
}

func (r *registrationState) register(registry Registry, token Token, interest Interest) error {
	if r.selectorID != 0 {
		if r.selectorID == registry.sel.id() {
			return ErrAlreadyExists
		}
		return ErrCrossSelector
	}
	if err := registry.sel.register(r.handle, token, interest); err != nil {
		return err
	}
	r.selectorID = registry.sel.id()
	return nil
}

func (r *registrationState) reregister(registry Registry, token Token, interest Interest) error {
	if r.selectorID == 0 {
		return ErrNotFound
	}
	if r.selectorID != registry.sel.id() {
		return ErrCrossSelector
	}
	return registry.sel.reregister(r.handle, token, interest)
}

func (r *registrationState) deregister(registry Registry) error {
	if r.selectorID == 0 {
		return ErrNotFound
	}
	if r.selectorID != registry.sel.id() {
		return ErrCrossSelector
	}
	if err := registry.sel.deregister(r.handle); err != nil {
		return err
	}
	r.selectorID = 0
	return nil
}
