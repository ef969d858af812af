package netpoll

import (
	"os"

	"github.com/rs/zerolog"
)

// log is the package-scoped logger, following the teacher's pattern of a
// single global zerolog logger threaded through every file. Callers
// embedding netpoll in a larger service can redirect it with SetLogger.
var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("component", "netpoll").Logger().Level(zerolog.InfoLevel)

// SetLogger replaces the logger netpoll uses for its own diagnostics
// (EINTR retries at trace level, waker coalescing at debug level, the
// Windows LSP fallback warning at warn level). It is safe to call once
// before constructing any Poll; it is not safe to call concurrently with
// polling.
func SetLogger(l zerolog.Logger) { log = l }
