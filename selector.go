package netpoll

import "go.uber.org/atomic"

// selectorIDGen hands out process-unique selector identifiers, used to
// detect a source being registered with more than one selector at once
// (spec.md §3 invariant 1). One counter is shared by every platform's
// Selector constructor.
var selectorIDGen atomic.Uint64

// nextSelectorID returns a fresh, monotonically increasing selector id.
func nextSelectorID() uint64 {
	return selectorIDGen.Inc()
}

// maxPollTimeoutMillis is the platform's maximum supported wait, per spec.md
// §4.3: on 32-bit Linux kernels before 2.6.37, epoll_wait truncates a
// larger timeout into an immediate no-wait rather than honoring it. Poll
// clamps every timeout to this value regardless of platform, since doing
// so is always safe and keeps the clamp in one place instead of one per
// back-end.
const maxPollTimeoutMillis = 30 * 60 * 1000 // ~30 minutes

func clampTimeoutMillis(ms int) int {
	if ms < 0 {
		return ms
	}
	if ms > maxPollTimeoutMillis {
		return maxPollTimeoutMillis
	}
	return ms
}
