package netpoll

// Registry is a shareable, cloneable handle to one Selector. It is the
// unit external I/O sources use to register, re-register, and deregister
// themselves; separating Registry from Poll allows registration from any
// goroutine while polling is done from one (spec.md §4.2). Registry holds
// a non-owning back-reference to the Selector owned by a Poll — cloning a
// Registry never extends that Selector's lifetime (spec.md §9).
type Registry struct {
	sel *selector
}

// Register adds source to the selector under token with the given
// interest. It fails with ErrInvalidArgument if interest is empty, with
// ErrAlreadyExists if source is already registered with this selector, or
// with ErrCrossSelector if source is registered with a different one.
func (r Registry) Register(source Source, token Token, interest Interest) error {
	return source.registerWithSelector(r, token, interest)
}

// Reregister atomically changes the token and/or interest for a source
// already registered with this selector. It fails with ErrNotFound if the
// source is not currently registered, or ErrCrossSelector if it is
// registered with a different selector.
func (r Registry) Reregister(source Source, token Token, interest Interest) error {
	return source.reregisterWithSelector(r, token, interest)
}

// Deregister removes source's registration. Once Deregister returns, no
// further events for source will appear in any Events buffer filled by a
// Poll call that starts afterward (spec.md §5).
func (r Registry) Deregister(source Source) error {
	return source.deregisterFromSelector(r)
}

// Clone returns a Registry referring to the same selector. Unlike the
// original Rust implementation, where cloning duplicates an OS handle and
// can fail, a Go Registry is a value wrapping a pointer to the shared
// Selector: cloning it can never fail, so Clone has no error return
// (SPEC_FULL.md §6 item 4 / DESIGN.md Open Question decisions).
func (r Registry) Clone() Registry {
	return Registry{sel: r.sel}
}
