package netpoll

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenTCPAndAcceptRoundTrip(t *testing.T) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ln, err := ListenTCP(addr, 8)
	require.NoError(t, err)
	defer ln.Close()

	dialDone := make(chan error, 1)
	go func() {
		conn, err := net.Dial("tcp", ln.LocalAddr().String())
		if err == nil {
			conn.Close()
		}
		dialDone <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		stream, _, err := ln.Accept()
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

func TestConnectTCPReadWrite(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	acceptedCh := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			acceptedCh <- conn
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	stream, err := ConnectTCP(addr)
	require.NoError(t, err)
	defer stream.Close()
	require.NoError(t, stream.SetNoDelay(true))

	conn := <-acceptedCh
	defer conn.Close()

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	deadline := time.Now().Add(2 * time.Second)
	var n int
	for {
		n, err = stream.Read(buf)
		if err == ErrWouldBlock {
			if time.Now().After(deadline) {
				t.Fatal("timed out waiting for data")
			}
			time.Sleep(time.Millisecond)
			continue
		}
		require.NoError(t, err)
		break
	}
	assert.Equal(t, "ping", string(buf[:n]))
}

func TestTCPStreamWriteThenPeerReads(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	acceptedCh := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			acceptedCh <- conn
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	stream, err := ConnectTCP(addr)
	require.NoError(t, err)
	defer stream.Close()

	conn := <-acceptedCh
	defer conn.Close()

	n, err := stream.Write([]byte("pong"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	rn, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf[:rn]))
}

func TestNewTCPSocketOptionSetters(t *testing.T) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	sock, err := NewTCPSocket(addr)
	require.NoError(t, err)

	require.NoError(t, sock.SetReuseAddr(true))
	require.NoError(t, sock.SetRecvBufferSize(4096))
	require.NoError(t, sock.SetSendBufferSize(4096))

	require.NoError(t, sock.Bind(addr))
	ln, err := sock.Listen(8)
	require.NoError(t, err)
	defer ln.Close()
}
