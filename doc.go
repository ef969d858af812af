// Package netpoll is a thin, low-overhead wrapper around the operating
// system's readiness-based I/O notification facility: epoll on Linux,
// kqueue on the BSDs and Darwin, and an IOCP/AFD readiness emulator on
// Windows.
//
// A Poll owns a Selector and hands out a cloneable Registry. Any number of
// goroutines may register, re-register, or deregister a Source through a
// Registry clone while one goroutine blocks in Poll.Poll waiting for the
// next batch of events. The package performs no file I/O of its own, runs
// no timers, and owns no connection-level buffering — it reports readiness,
// nothing else.
package netpoll
