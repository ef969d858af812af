//go:build linux

package netpoll

import (
	"time"

	"golang.org/x/sys/unix"
)

func setTCPKeepAliveIdle(fd rawHandle, idle time.Duration) error {
	err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, int(idle.Seconds()))
	if err != nil {
		return wrapSyscallErr("setsockopt", "netpoll: TCP_KEEPIDLE", err)
	}
	return nil
}
