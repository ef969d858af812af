package netpoll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterestConstructorsAreSingleBit(t *testing.T) {
	require.True(t, Readable().IsReadable())
	require.False(t, Readable().IsWritable())
	require.True(t, Writable().IsWritable())
	require.False(t, Writable().IsReadable())
	require.True(t, Priority().IsPriority())
	require.True(t, AIO().IsAIO())
	require.True(t, LIO().IsLIO())
}

func TestInterestAddUnion(t *testing.T) {
	i := Readable().Add(Writable())
	assert.True(t, i.IsReadable())
	assert.True(t, i.IsWritable())
	assert.False(t, i.IsPriority())
}

func TestInterestRemoveClearsOnlyGivenBits(t *testing.T) {
	i := Readable().Add(Writable()).Add(Priority())
	i = i.Remove(Writable())
	assert.True(t, i.IsReadable())
	assert.False(t, i.IsWritable())
	assert.True(t, i.IsPriority())
}

func TestInterestIsEmpty(t *testing.T) {
	var zero Interest
	assert.True(t, zero.IsEmpty())
	assert.False(t, Readable().IsEmpty())
}

func TestInterestString(t *testing.T) {
	assert.Equal(t, "(empty)", Interest(0).String())
	assert.Equal(t, "READABLE", Readable().String())
	assert.Equal(t, "READABLE|WRITABLE", Readable().Add(Writable()).String())
}
