//go:build windows

package netpoll

// This file implements the IOCP readiness emulator's wire protocol,
// described in spec.md §4.7, following the approach the "wepoll" project
// pioneered: Windows has no native per-socket readiness API, so one is
// built on top of the undocumented AFD (Ancillary Function Driver) device
// that sits below Winsock, driven through IOCP for the actual blocking
// wait. No AFD example exists anywhere in the retrieval pack; the wire
// protocol below (device path, IOCTL code, poll-info layout, bit meanings)
// is built directly from spec.md's numbered description rather than
// adapted from a sibling file, and is noted as such in DESIGN.md.
// selector_windows.go owns the registration/completion-loop machinery
// that drives this protocol.

import "golang.org/x/sys/windows"

// AFD poll condition bits, passed in AfdPollInfo.Handles[i].Events and
// returned in the same field once the driver satisfies the poll.
const (
	afdPollReceive          uint32 = 0x0001
	afdPollReceiveExpedited uint32 = 0x0002
	afdPollSend             uint32 = 0x0004
	afdPollDisconnect       uint32 = 0x0008
	afdPollAbort            uint32 = 0x0010
	afdPollLocalClose       uint32 = 0x0020
	afdPollConnect          uint32 = 0x0040
	afdPollAccept           uint32 = 0x0080
	afdPollConnectFail      uint32 = 0x0100
)

// ioctlAfdPoll is the device control code AFD understands for a readiness
// poll request (spec.md §4.7 step 2).
const ioctlAfdPoll uint32 = 0x00012024

// afdPollHandleInfo is one entry of an AFD_POLL_INFO block.
type afdPollHandleInfo struct {
	Handle windows.Handle
	Events uint32
	_      uint32 // alignment padding to match the native 8-byte-aligned union
	Status int32  // NTSTATUS, filled in by the driver on completion
	_      uint32
}

// afdPollInfo is submitted via IOCTL_AFD_POLL and, on completion, holds the
// bits that actually became true. This module only ever polls one handle
// per submission, so NumberOfHandles is always 1 and Handles has a single
// element — each registered source owns its own block (spec.md §9 "AFD
// block ownership on Windows").
type afdPollInfo struct {
	Timeout         int64
	NumberOfHandles uint32
	Exclusive       uint32
	Handles         [1]afdPollHandleInfo
}

// interestToAfdBits maps an Interest onto the AFD poll bits from the
// translation table in spec.md §4.1. AIO/LIO have no AFD analogue.
func interestToAfdBits(interest Interest) uint32 {
	var bits uint32
	if interest.IsReadable() {
		bits |= afdPollReceive | afdPollAccept
	}
	if interest.IsPriority() {
		bits |= afdPollReceiveExpedited
	}
	if interest.IsWritable() {
		bits |= afdPollSend | afdPollConnect
	}
	// Always watch for the ways a socket can go away so read-closed /
	// write-closed / error can be decoded regardless of requested interest.
	bits |= afdPollDisconnect | afdPollAbort | afdPollConnectFail | afdPollLocalClose
	return bits
}

func decodeAfdBits(bits uint32) eventFlags {
	var flags eventFlags
	if bits&(afdPollReceive|afdPollAccept|afdPollReceiveExpedited) != 0 {
		flags |= flagReadable
	}
	if bits&afdPollReceiveExpedited != 0 {
		flags |= flagPriority
	}
	if bits&(afdPollSend|afdPollConnect) != 0 {
		flags |= flagWritable
	}
	if bits&(afdPollDisconnect|afdPollAbort) != 0 {
		flags |= flagReadClosed
	}
	if bits&(afdPollLocalClose|afdPollAbort) != 0 {
		flags |= flagWriteClosed
	}
	if bits&(afdPollConnectFail|afdPollAbort) != 0 {
		flags |= flagError
	}
	return flags
}
