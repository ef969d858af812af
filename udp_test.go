package netpoll

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUDPSendToRecvFrom(t *testing.T) {
	addr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	require.NoError(t, err)
	sock, err := ListenUDP(addr)
	require.NoError(t, err)
	defer sock.Close()

	peer, err := net.DialUDP("udp", nil, sock.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer peer.Close()

	_, err = peer.Write([]byte("datagram"))
	require.NoError(t, err)

	buf := make([]byte, 32)
	deadline := time.Now().Add(2 * time.Second)
	var n int
	for {
		n, _, err = sock.RecvFrom(buf)
		if err == ErrWouldBlock {
			if time.Now().After(deadline) {
				t.Fatal("timed out waiting for datagram")
			}
			time.Sleep(time.Millisecond)
			continue
		}
		require.NoError(t, err)
		break
	}
	assert.Equal(t, "datagram", string(buf[:n]))
}

// TestUDPEdgeTriggeredReadableFiresOncePerBurst is spec.md §8 scenario S5:
// edge-triggered readable on a UDP socket does not re-fire on a second
// poll that doesn't drain the socket, but does fire again once the socket
// is drained and a fresh datagram arrives.
func TestUDPEdgeTriggeredReadableFiresOncePerBurst(t *testing.T) {
	poll, err := New()
	require.NoError(t, err)
	defer poll.Close()
	reg := poll.Registry()

	addr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	require.NoError(t, err)
	sock, err := ListenUDP(addr)
	require.NoError(t, err)
	defer sock.Close()

	const sockToken Token = 1
	require.NoError(t, reg.Register(sock, sockToken, Readable()))

	peer, err := net.DialUDP("udp", nil, sock.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer peer.Close()

	_, err = peer.Write([]byte("first"))
	require.NoError(t, err)
	_, err = peer.Write([]byte("second"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	events := NewEvents(8)
	timeout := 200 * time.Millisecond
	require.NoError(t, poll.Poll(events, &timeout))
	require.GreaterOrEqual(t, events.Len(), 1)

	require.NoError(t, poll.Poll(events, &timeout))
	assert.Equal(t, 0, events.Len(), "edge-triggered readable re-fired without a fresh datagram")

	buf := make([]byte, 64)
	for {
		_, _, err := sock.RecvFrom(buf)
		if err == ErrWouldBlock {
			break
		}
		require.NoError(t, err)
	}

	_, err = peer.Write([]byte("third"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, poll.Poll(events, &timeout))
	assert.GreaterOrEqual(t, events.Len(), 1, "no readable event after drain + new datagram")
}

func TestDialUDPRestrictsToPeer(t *testing.T) {
	serverAddr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	require.NoError(t, err)
	server, err := ListenUDP(serverAddr)
	require.NoError(t, err)
	defer server.Close()

	client, err := DialUDP(server.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()

	n, err := client.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
