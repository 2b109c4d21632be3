package server

import (
	"bufio"
	"chat-relay/domain"
	"chat-relay/runtime"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return NewServer(log,
		runtime.NewRegistry(),
		runtime.NewBus(log, 100),
		runtime.NewHistoryStore(50),
		nil,
		Options{
			Host:         "127.0.0.1",
			Port:         0,
			DefaultRoom:  "general",
			WriteTimeout: time.Second,
			QueueLimit:   128,
			AdminUsers:   []string{"admin"},
		})
}

// startSession runs handleConn against one end of a pipe and returns the
// client side.
func startSession(t *testing.T, srv *Server) (net.Conn, chan struct{}) {
	t.Helper()
	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.handleConn(context.Background(), server)
	}()
	t.Cleanup(func() { _ = client.Close() })
	return client, done
}

func readLine(t *testing.T, conn net.Conn, r *bufio.Reader) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSpace(line)
}

func TestSession_InvalidUsername_RawErrorThenClose(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)
	client, done := startSession(t, srv)
	r := bufio.NewReader(client)

	// When the handshake carries an invalid username
	_, err := client.Write([]byte("not a name\n"))
	req.NoError(err)

	// Then a raw error line arrives and the connection closes unregistered
	req.Equal(rawInvalidUsername, readLine(t, client, r))
	<-done
	req.Zero(srv.registry.Count())
}

func TestSession_DuplicateUsername_Rejected(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	// Given alice is already live
	req.NoError(srv.registry.Register(
		runtime.NewSession("alice", domain.RoleUser, runtime.NewQueue(16), "general")))

	client, done := startSession(t, srv)
	r := bufio.NewReader(client)

	// When a second connection claims alice
	_, err := client.Write([]byte(`{"username": "alice"}` + "\n"))
	req.NoError(err)

	// Then it is turned away before registration
	req.Equal(rawUsernameTaken, readLine(t, client, r))
	<-done
	req.Equal(1, srv.registry.Count())
}

func TestSession_HandshakeToChat(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)
	client, done := startSession(t, srv)
	r := bufio.NewReader(client)

	// When alice completes the handshake
	_, err := client.Write([]byte(`{"username": "alice"}` + "\n"))
	req.NoError(err)

	// Then she is registered and sees her own join announcement
	var join domain.Message
	req.NoError(json.Unmarshal([]byte(readLine(t, client, r)), &join))
	req.Equal(domain.KindUserJoin, join.Kind)
	req.Contains(join.Content, "alice joined room 'general'")

	// When she chats
	_, err = client.Write([]byte("hello\n"))
	req.NoError(err)

	// Then the chat comes back through the bus, room-filtered
	var chat domain.Message
	req.NoError(json.Unmarshal([]byte(readLine(t, client, r)), &chat))
	req.Equal(domain.KindChat, chat.Kind)
	req.Equal("alice", chat.Username)
	req.Equal("hello", chat.Content)

	// And disconnecting tears the session down
	req.NoError(client.Close())
	<-done
	req.Zero(srv.registry.Count())
}

func TestSession_RawUsernameFallback(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)
	client, done := startSession(t, srv)
	r := bufio.NewReader(client)

	// A bare username line still registers (telnet compatibility)
	_, err := client.Write([]byte("bob\n"))
	req.NoError(err)

	var join domain.Message
	req.NoError(json.Unmarshal([]byte(readLine(t, client, r)), &join))
	req.Equal(domain.KindUserJoin, join.Kind)

	_, ok := srv.registry.Lookup("bob")
	req.True(ok)

	req.NoError(client.Close())
	<-done
}
