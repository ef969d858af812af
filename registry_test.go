package netpoll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a minimal Source that records how the Registry dispatched
// to it, without touching any real selector or OS handle.
type fakeSource struct {
	registerCalls   int
	reregisterCalls int
	deregisterCalls int

	lastToken    Token
	lastInterest Interest

	registerErr   error
	reregisterErr error
	deregisterErr error
}

func (f *fakeSource) registerWithSelector(_ Registry, token Token, interest Interest) error {
	f.registerCalls++
	f.lastToken, f.lastInterest = token, interest
	return f.registerErr
}

func (f *fakeSource) reregisterWithSelector(_ Registry, token Token, interest Interest) error {
	f.reregisterCalls++
	f.lastToken, f.lastInterest = token, interest
	return f.reregisterErr
}

func (f *fakeSource) deregisterWithSelector(_ Registry) error {
	f.deregisterCalls++
	return f.deregisterErr
}

func (f *fakeSource) deregisterFromSelector(registry Registry) error {
	return f.deregisterWithSelector(registry)
}

func TestRegistryDispatchesToSource(t *testing.T) {
	poll, err := New()
	require.NoError(t, err)
	defer poll.Close()
	reg := poll.Registry()

	src := &fakeSource{}
	require.NoError(t, reg.Register(src, Token(5), Readable()))
	assert.Equal(t, 1, src.registerCalls)
	assert.Equal(t, Token(5), src.lastToken)
	assert.True(t, src.lastInterest.IsReadable())

	require.NoError(t, reg.Reregister(src, Token(6), Writable()))
	assert.Equal(t, 1, src.reregisterCalls)
	assert.Equal(t, Token(6), src.lastToken)

	require.NoError(t, reg.Deregister(src))
	assert.Equal(t, 1, src.deregisterCalls)
}

func TestRegistryPropagatesSourceErrors(t *testing.T) {
	poll, err := New()
	require.NoError(t, err)
	defer poll.Close()
	reg := poll.Registry()

	src := &fakeSource{registerErr: ErrInvalidArgument}
	assert.ErrorIs(t, reg.Register(src, Token(1), Readable()), ErrInvalidArgument)
}

func TestRegistryCloneSharesSelector(t *testing.T) {
	poll, err := New()
	require.NoError(t, err)
	defer poll.Close()
	reg := poll.Registry()

	clone := reg.Clone()
	assert.Equal(t, reg.sel, clone.sel)
}
