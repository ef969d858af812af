//go:build !windows

package netpoll

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempSocketPath(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, fmt.Sprintf("%s-%d.sock", name, os.Getpid()))
}

func TestUnixListenerAcceptRoundTrip(t *testing.T) {
	path := tempSocketPath(t, "listener")
	ln, err := ListenUnix(path, 8)
	require.NoError(t, err)
	defer ln.Close()

	dialDone := make(chan error, 1)
	go func() {
		stream, err := DialUnix(path)
		if err == nil {
			defer stream.Close()
		}
		dialDone <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		stream, err := ln.Accept()
		if err == ErrWouldBlock {
			if time.Now().After(deadline) {
				t.Fatal("timed out waiting for a pending connection")
			}
			time.Sleep(time.Millisecond)
			continue
		}
		require.NoError(t, err)
		defer stream.Close()
		break
	}
	require.NoError(t, <-dialDone)
}

func TestUnixStreamPairReadWrite(t *testing.T) {
	a, b, err := UnixStreamPair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	_, err = a.Write([]byte("pair"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	deadline := time.Now().Add(2 * time.Second)
	var n int
	for {
		n, err = b.Read(buf)
		if err == ErrWouldBlock {
			if time.Now().After(deadline) {
				t.Fatal("timed out waiting for data on pair")
			}
			time.Sleep(time.Millisecond)
			continue
		}
		require.NoError(t, err)
		break
	}
	assert.Equal(t, "pair", string(buf[:n]))
}

func TestUnixDatagramSendToRecvFrom(t *testing.T) {
	serverPath := tempSocketPath(t, "dgram-server")
	clientPath := tempSocketPath(t, "dgram-client")

	server, err := ListenUnixgram(serverPath)
	require.NoError(t, err)
	defer server.Close()

	client, err := ListenUnixgram(clientPath)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.SendTo([]byte("dgram"), serverPath)
	require.NoError(t, err)

	buf := make([]byte, 16)
	deadline := time.Now().Add(2 * time.Second)
	var n int
	for {
		n, _, err = server.RecvFrom(buf)
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
	assert.Equal(t, "dgram", string(buf[:n]))
}

func TestUnixStreamRegistersLikeAnyOtherSource(t *testing.T) {
	poll, err := New()
	require.NoError(t, err)
	defer poll.Close()
	reg := poll.Registry()

	a, b, err := UnixStreamPair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	require.NoError(t, reg.Register(a, Token(1), Readable()))
	_, err = b.Write([]byte("x"))
	require.NoError(t, err)

	events := NewEvents(4)
	timeout := 2 * time.Second
	require.NoError(t, poll.Poll(events, &timeout))
	require.GreaterOrEqual(t, events.Len(), 1)
	assert.True(t, events.Get(0).IsReadable())
}
