//go:build !windows

package netpoll

// rawHandle is the OS-level identity of a registrable Source on Unix-like
// platforms: a file descriptor.
type rawHandle = int

const invalidHandle rawHandle = -1
