package netpoll

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrCrossSelectorWrapsErrAlreadyExists(t *testing.T) {
	assert.True(t, errors.Is(ErrCrossSelector, ErrAlreadyExists))
}

func TestWrapSyscallErrNilPassthrough(t *testing.T) {
	assert.NoError(t, wrapSyscallErr("read", "netpoll: read", nil))
}

func TestWrapSyscallErrPreservesSyscallError(t *testing.T) {
	inner := os.ErrPermission
	wrapped := wrapSyscallErr("bind", "netpoll: bind", inner)
	require.Error(t, wrapped)
	assert.Contains(t, wrapped.Error(), "netpoll: bind")
	assert.Contains(t, wrapped.Error(), "bind")
}
