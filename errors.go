package netpoll

import (
	"os"

	"github.com/pkg/errors"
)

// Sentinel errors identifying the taxonomy kinds from spec.md §7 that are
// not plain OS errors. Wrap with errors.Wrap (or errors.Is against these)
// rather than constructing new error values, so callers can classify a
// failure with errors.Is regardless of which back-end produced it.
var (
	// ErrInvalidArgument is returned for an empty Interest, or any other
	// argument the operation rejects outright without touching the kernel.
	ErrInvalidArgument = errors.New("netpoll: invalid argument")

	// ErrNotFound is returned by Reregister or Deregister on a source that
	// is not currently registered with the selector.
	ErrNotFound = errors.New("netpoll: source not registered")

	// ErrAlreadyExists is returned by Register on a source already bound to
	// a selector, whether the same one or a different one.
	ErrAlreadyExists = errors.New("netpoll: source already registered")

	// ErrCrossSelector is returned by Register when a source is bound to a
	// different selector than the one the Registry belongs to. It wraps
	// ErrAlreadyExists so callers checking only for that are still correct.
	ErrCrossSelector = errors.Wrap(ErrAlreadyExists, "source belongs to a different selector")

	// ErrClosed names the use of a closed Poll or Waker. No operation in
	// this package returns it: an operation on a closed Poll fails with the
	// OS error for the closed handle instead.
	ErrClosed = errors.New("netpoll: use of closed selector")

	// ErrWouldBlock is returned by a Source's Read/Write/RecvFrom/SendTo
	// when the underlying non-blocking syscall reports EAGAIN/EWOULDBLOCK.
	// It is not part of the registration taxonomy in spec.md §7, but
	// callers driving a readiness loop need to distinguish it from a real
	// I/O error without inspecting a wrapped os.SyscallError.
	ErrWouldBlock = errors.New("netpoll: operation would block")
)

// wrapSyscallErr mirrors the teacher's pervasive os.NewSyscallError idiom:
// an OS error is propagated with its errno intact via os.SyscallError, and
// pkg/errors adds the call-site context on top so a log line shows both the
// syscall name and where in netpoll it was issued from.
func wrapSyscallErr(syscallName, op string, err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(os.NewSyscallError(syscallName, err), op)
}
