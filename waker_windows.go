//go:build windows

package netpoll

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// iocpWaker implements Waker by posting a completion packet with no
// OVERLAPPED directly onto the IOCP port, the pattern documented for
// Windows wake-ups in the retrieval pack (a NULL-overlapped completion is
// unambiguous with AFD poll completions, which always carry one). No
// eventfd/pipe registration is needed: GetQueuedCompletionStatusEx already
// wakes for this packet the same as any other completion.
type iocpWaker struct {
	sel   *selector
	token Token
}

func newWakerImpl(sel *selector, token Token) (wakerImpl, error) {
	sel.mu.Lock()
	sel.wakerArmed = true
	sel.wakerToken = token
	sel.mu.Unlock()
	return &iocpWaker{sel: sel, token: token}, nil
}

func (w *iocpWaker) wake() error {
	if err := windows.PostQueuedCompletionStatus(w.sel.iocp, 0, 0, nil); err != nil {
		return errors.Wrap(err, "netpoll: PostQueuedCompletionStatus")
	}
	return nil
}

func (w *iocpWaker) close() error {
	w.sel.mu.Lock()
	w.sel.wakerArmed = false
	w.sel.mu.Unlock()
	return nil
}
