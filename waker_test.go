package netpoll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWakerInterruptsBlockedPoll is spec.md §8 scenario S4: a Poll blocked
// indefinitely is interrupted by a Waker fired from another goroutine
// well within a generous bound.
func TestWakerInterruptsBlockedPoll(t *testing.T) {
	poll, err := New()
	require.NoError(t, err)
	defer poll.Close()
	reg := poll.Registry()

	const wakeToken Token = 0
	waker, err := NewWaker(reg, wakeToken)
	require.NoError(t, err)
	defer waker.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		require.NoError(t, waker.Wake())
	}()

	events := NewEvents(4)
	start := time.Now()
	require.NoError(t, poll.Poll(events, nil))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 500*time.Millisecond)
}

// TestWakerCoalescesConcurrentWakes checks that firing Wake multiple times
// before Poll observes any of them never causes an error, matching the
// "may coalesce" language on Waker.Wake.
func TestWakerCoalescesConcurrentWakes(t *testing.T) {
	poll, err := New()
	require.NoError(t, err)
	defer poll.Close()
	reg := poll.Registry()

	waker, err := NewWaker(reg, Token(0))
	require.NoError(t, err)
	defer waker.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, waker.Wake())
	}

	events := NewEvents(4)
	timeout := time.Second
	require.NoError(t, poll.Poll(events, &timeout))
}

// TestWakerRemainsArmedAfterWake ensures a second Wake after the Poll loop
// observed the first one still interrupts a subsequent blocked Poll,
// matching "the caller never needs to rearm it".
func TestWakerRemainsArmedAfterWake(t *testing.T) {
	poll, err := New()
	require.NoError(t, err)
	defer poll.Close()
	reg := poll.Registry()

	waker, err := NewWaker(reg, Token(0))
	require.NoError(t, err)
	defer waker.Close()

	require.NoError(t, waker.Wake())
	events := NewEvents(4)
	timeout := time.Second
	require.NoError(t, poll.Poll(events, &timeout))

	require.NoError(t, waker.Wake())
	require.NoError(t, poll.Poll(events, &timeout))
}
