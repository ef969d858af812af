//go:build windows

package netpoll

import "golang.org/x/sys/windows"

// ioOpKind discriminates which concrete operation owns a completion packet
// recovered from its OVERLAPPED pointer (selector_windows.go and
// namedpipe_windows.go each define one such operation type). Both embed
// ioOpHeader as their first field, so a completion's *windows.Overlapped
// address equals the address of its owning struct and can be dispatched
// on Kind before being re-cast to the concrete type.
type ioOpKind byte

const (
	ioOpAfdPoll ioOpKind = iota
	ioOpPipeRead
	ioOpPipeWrite
)

type ioOpHeader struct {
	overlapped windows.Overlapped
	kind       ioOpKind
}
