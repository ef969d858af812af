//go:build windows

package netpoll

import "golang.org/x/sys/windows"

// rawHandle is the OS-level identity of a registrable Source on Windows: a
// socket handle (or, for named pipes, a file handle).
type rawHandle = windows.Handle

const invalidHandle rawHandle = windows.InvalidHandle
