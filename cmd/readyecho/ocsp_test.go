package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOCSPCacheMissThenPutThenHit(t *testing.T) {
	cache, err := NewOCSPCache(1 << 16)
	require.NoError(t, err)

	_, ok := cache.Get("serial-1")
	assert.False(t, ok)

	cache.Put("serial-1", []byte("der-response"), time.Minute)
	// Ristretto's set is processed asynchronously; give it a moment to land
	// before asserting a hit, matching the read-your-write caveat callers
	// of a Ristretto-backed cache must observe.
	time.Sleep(10 * time.Millisecond)

	got, ok := cache.Get("serial-1")
	require.True(t, ok)
	assert.Equal(t, []byte("der-response"), got)
}

func TestNewOCSPCacheDefaultsSizeWhenNonPositive(t *testing.T) {
	cache, err := NewOCSPCache(0)
	require.NoError(t, err)
	require.NotNil(t, cache)
}
