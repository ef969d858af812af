package netpoll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventPredicates(t *testing.T) {
	ev := Event{token: Token(7), flags: flagReadable | flagError}
	assert.Equal(t, Token(7), ev.Token())
	assert.True(t, ev.IsReadable())
	assert.True(t, ev.IsError())
	assert.False(t, ev.IsWritable())
	assert.False(t, ev.IsReadClosed())
}

func TestEventString(t *testing.T) {
	ev := Event{token: Token(1), flags: flagReadable}
	s := ev.String()
	assert.Contains(t, s, "token: 1")
	assert.Contains(t, s, "readable: true")
	assert.Contains(t, s, "writable: false")
}

func TestNewEventsClampsNonPositiveCapacity(t *testing.T) {
	e := NewEvents(0)
	require.Equal(t, 1, e.Capacity())
	e = NewEvents(-5)
	require.Equal(t, 1, e.Capacity())
}

func TestEventsResetAndSetLen(t *testing.T) {
	e := NewEvents(4)
	dst := e.reset()
	require.Len(t, dst, 0)
	require.Equal(t, 4, cap(dst))

	dst = dst[:2]
	dst[0] = Event{token: Token(1), flags: flagReadable}
	dst[1] = Event{token: Token(2), flags: flagWritable}
	e.setLen(2)

	require.Equal(t, 2, e.Len())
	assert.Equal(t, Token(1), e.Get(0).Token())
	assert.Equal(t, Token(2), e.Get(1).Token())
}

func TestEventsClear(t *testing.T) {
	e := NewEvents(4)
	dst := e.reset()[:1]
	dst[0] = Event{token: Token(9)}
	e.setLen(1)
	require.Equal(t, 1, e.Len())

	e.Clear()
	assert.Equal(t, 0, e.Len())
	assert.Equal(t, 4, e.Capacity())
}

func TestEventsIterReflectsCurrentContents(t *testing.T) {
	e := NewEvents(2)
	dst := e.reset()[:2]
	dst[0] = Event{token: Token(1)}
	dst[1] = Event{token: Token(2)}
	e.setLen(2)

	got := e.Iter()
	require.Len(t, got, 2)
	assert.Equal(t, Token(1), got[0].Token())
	assert.Equal(t, Token(2), got[1].Token())
}

func TestEventsStringListsEachEvent(t *testing.T) {
	e := NewEvents(2)
	dst := e.reset()[:1]
	dst[0] = Event{token: Token(3), flags: flagWritable}
	e.setLen(1)
	assert.Contains(t, e.String(), "token: 3")
}
