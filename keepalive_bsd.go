//go:build dragonfly || freebsd || netbsd || openbsd

package netpoll

import "time"

// The remaining BSDs disagree on the sockopt name for the keepalive idle
// time (or lack a stable one across releases); SO_KEEPALIVE alone, already
// set by setTCPKeepAlive, is honored everywhere. Only the idle-time tuning
// step is skipped here.
func setTCPKeepAliveIdle(fd rawHandle, idle time.Duration) error {
	log.Debug().Dur("idle", idle).Msg("netpoll: TCP keepalive idle tuning not supported on this platform")
	return nil
}
