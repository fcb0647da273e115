package server

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/wschat/internal/protocol"
	"github.com/muurk/wschat/internal/registry"
)

func newPipeSession(t *testing.T) (*Session, net.Conn, *registry.Registry) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() {
		_ = serverConn.Close()
		_ = clientConn.Close()
	})

	metrics := NewMetrics(prometheus.NewRegistry())
	reg := registry.New(registry.WithObserver(metrics))
	return newSession(serverConn, reg, metrics, nil), clientConn, reg
}

func runSession(s *Session) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		s.Run()
		close(done)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(ioTimeout):
		t.Fatal("session did not finish")
	}
}

func TestSession_RejectedHandshake(t *testing.T) {
	session, client, reg := newPipeSession(t)
	assert.Equal(t, StateAwaitingHandshake, session.State())
	assert.NotEmpty(t, session.ConnID())

	done := runSession(session)

	_, err := client.Write([]byte("GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"))
	require.NoError(t, err)

	// Nothing is written back before the connection closes
	data, err := io.ReadAll(client)
	require.NoError(t, err)
	assert.Empty(t, data)

	waitDone(t, done)
	assert.Equal(t, StateClosed, session.State())
	assert.Equal(t, 0, reg.Len())
}

func TestSession_Lifecycle(t *testing.T) {
	session, client, reg := newPipeSession(t)
	done := runSession(session)

	_, err := client.Write([]byte("GET / HTTP/1.1\r\nUpgrade: websocket\r\nSec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n\r\n"))
	require.NoError(t, err)

	expected := protocol.UpgradeResponse("s3pPLMBiTxaQ9kYGzzhZRbK+xOo=")
	response := make([]byte, len(expected))
	_, err = io.ReadFull(client, response)
	require.NoError(t, err)
	assert.Equal(t, expected, response)

	require.Eventually(t, func() bool {
		return session.State() == StateRegistered
	}, ioTimeout, 5*time.Millisecond)
	c, ok := reg.Lookup(session)
	require.True(t, ok)
	assert.Equal(t, uint64(1), c.ID)

	// net.Pipe writes block until read, so the close reply is read concurrently
	reply := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 2)
		_, _ = io.ReadFull(client, buf)
		reply <- buf
	}()

	_, err = client.Write([]byte{0x88, 0x80, 0x01, 0x02, 0x03, 0x04})
	require.NoError(t, err)

	select {
	case got := <-reply:
		assert.Equal(t, protocol.EncodeClose(), got)
	case <-time.After(ioTimeout):
		t.Fatal("no close reply")
	}

	waitDone(t, done)
	assert.Equal(t, StateClosed, session.State())
	_, ok = reg.Lookup(session)
	assert.False(t, ok)
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateAwaitingHandshake, "awaiting_handshake"},
		{StateRegistered, "registered"},
		{StateClosed, "closed"},
		{State(9), "State(9)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}
