package remote

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shellq/client/task"
)

const testAuth = "00112233445566778899aabbccddeeff"

// fakeServer accepts one connection, validates the auth handshake, then
// lets the test drive frame-level assertions directly on the raw conn.
func fakeServer(t *testing.T) (addr string, accept func() net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	connCh := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		secret := make([]byte, authSecretLen)
		if _, err := readFull(conn, secret); err != nil {
			return
		}
		want, _ := hex.DecodeString(testAuth)
		if !bytes.Equal(secret, want) {
			_, _ = conn.Write([]byte{0})
			_ = conn.Close()
			return
		}
		_, _ = conn.Write([]byte{1})
		connCh <- conn
	}()

	return ln.Addr().String(), func() net.Conn { return <-connCh }
}

func splitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestTCPEndpointHandshakeAndScheduledFrame(t *testing.T) {
	addr, accept := fakeServer(t)
	host, port := splitHostPort(t, addr)

	ep, err := NewTCPEndpoint(context.Background(), host, port, testAuth)
	require.NoError(t, err)
	defer ep.Close()

	serverConn := accept()
	defer serverConn.Close()

	packed, err := task.New("t1", "echo hi").Pack()
	require.NoError(t, err)
	bundle := task.Bundle{packed}

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(bundle))
	header := make([]byte, 5)
	header[0] = tagScheduled
	binary.BigEndian.PutUint32(header[1:], uint32(buf.Len()))
	_, err = serverConn.Write(header)
	require.NoError(t, err)
	_, err = serverConn.Write(buf.Bytes())
	require.NoError(t, err)

	got, err := ep.GetScheduled(context.Background(), time.Second)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestTCPEndpointAuthFailure(t *testing.T) {
	addr, _ := fakeServer(t)
	host, port := splitHostPort(t, addr)

	_, err := NewTCPEndpoint(context.Background(), host, port, "00000000000000000000000000000000")
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestTCPEndpointDisconnectSentinel(t *testing.T) {
	addr, accept := fakeServer(t)
	host, port := splitHostPort(t, addr)

	ep, err := NewTCPEndpoint(context.Background(), host, port, testAuth)
	require.NoError(t, err)
	defer ep.Close()

	serverConn := accept()
	require.NoError(t, serverConn.Close()) // abrupt close -> EOF -> disconnect sentinel

	bundle, err := ep.GetScheduled(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, bundle)
}
