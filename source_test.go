package netpoll

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustListenLoopback(t *testing.T) *TCPListener {
	t.Helper()
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ln, err := ListenTCP(addr, 16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return ln
}

func TestRegistrationStateRejectsDoubleRegister(t *testing.T) {
	poll, err := New()
	require.NoError(t, err)
	defer poll.Close()
	reg := poll.Registry()

	ln := mustListenLoopback(t)
	require.NoError(t, reg.Register(ln, Token(1), Readable()))
	assert.ErrorIs(t, reg.Register(ln, Token(1), Readable()), ErrAlreadyExists)
}

func TestRegistrationStateRejectsCrossSelectorRegister(t *testing.T) {
	pollA, err := New()
	require.NoError(t, err)
	defer pollA.Close()
	pollB, err := New()
	require.NoError(t, err)
	defer pollB.Close()

	ln := mustListenLoopback(t)
	require.NoError(t, pollA.Registry().Register(ln, Token(1), Readable()))
	assert.ErrorIs(t, pollB.Registry().Register(ln, Token(1), Readable()), ErrAlreadyExists)
}

func TestRegistrationStateReregisterRequiresPriorRegister(t *testing.T) {
	poll, err := New()
	require.NoError(t, err)
	defer poll.Close()
	reg := poll.Registry()

	ln := mustListenLoopback(t)
	assert.ErrorIs(t, reg.Reregister(ln, Token(2), Readable()), ErrNotFound)
}

func TestRegistrationStateReregisterChangesTokenAndInterest(t *testing.T) {
	poll, err := New()
	require.NoError(t, err)
	defer poll.Close()
	reg := poll.Registry()

	ln := mustListenLoopback(t)
	require.NoError(t, reg.Register(ln, Token(1), Readable()))
	require.NoError(t, reg.Reregister(ln, Token(2), Readable().Add(Writable())))
}

func TestRegistrationStateDeregisterRequiresPriorRegister(t *testing.T) {
	poll, err := New()
	require.NoError(t, err)
	defer poll.Close()
	reg := poll.Registry()

	ln := mustListenLoopback(t)
	assert.ErrorIs(t, reg.Deregister(ln), ErrNotFound)
}

func TestRegistrationStateAllowsReregisterAfterDeregisterThenRegister(t *testing.T) {
	poll, err := New()
	require.NoError(t, err)
	defer poll.Close()
	reg := poll.Registry()

	ln := mustListenLoopback(t)
	require.NoError(t, reg.Register(ln, Token(1), Readable()))
	require.NoError(t, reg.Deregister(ln))
	require.NoError(t, reg.Register(ln, Token(2), Readable()))
}
