package server

import (
	"bufio"
	"chat-relay/domain"
	"chat-relay/runtime"
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// Raw pre-registration error lines. Everything after a successful
// handshake is JSON; these two are the only plain-text responses.
const (
	rawInvalidUsername = "Error: Invalid username (alphanumeric, max 15)"
	rawUsernameTaken   = "Error: Username taken"
)

// handleConn drives one connection through its lifecycle:
// Connecting -> Handshaking -> Active -> Closing -> Closed.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	reader := bufio.NewReader(conn)

	// Handshaking: the first line carries the username.
	line, err := reader.ReadString('\n')
	if err != nil {
		s.log.Debug("Connection dropped before handshake", "remote", conn.RemoteAddr())
		return
	}
	hs := domain.ParseHandshake(line)
	if err := hs.Validate(); err != nil {
		s.rawError(conn, rawInvalidUsername)
		return
	}
	username := hs.Username

	queue := runtime.NewQueue(s.opts.QueueLimit)
	sess := runtime.NewSession(username,
		domain.RoleFor(username, s.opts.AdminUsers), queue, s.opts.DefaultRoom)

	if err := s.registry.Register(sess); err != nil {
		s.rawError(conn, rawUsernameTaken)
		return
	}

	s.log.Info("(+) client connected",
		"username", username, "remote", conn.RemoteAddr(), "role", sess.Role)

	// Active: subscribe to the bus, replay the default room's history onto
	// the private queue, then announce the join.
	sub := s.bus.Subscribe()
	for _, m := range s.history.Snapshot(s.opts.DefaultRoom) {
		_ = queue.Push(m)
	}
	join := domain.NewEvent(domain.KindUserJoin,
		fmt.Sprintf("%s joined room '%s'", username, s.opts.DefaultRoom), s.opts.DefaultRoom)
	s.bus.Publish(join)
	s.history.Append(s.opts.DefaultRoom, join)

	writeCtx, cancelWrite := context.WithCancel(ctx)
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		// Closing the socket is what unblocks the read loop after a kick,
		// a write failure, or a queue overflow.
		defer func() { _ = conn.Close() }()
		s.writeLoop(writeCtx, conn, sess, sub)
	}()

	s.readLoop(reader, sess)

	// Closing: stop the write side, leave the bus, and announce the
	// departure. A kicked session was already removed by the interpreter,
	// so Unregister returns nil and no second leave is broadcast.
	cancelWrite()
	sub.Cancel()
	<-writeDone
	queue.Close()

	if removed, lastRoom := s.registry.Unregister(username); removed != nil {
		s.bus.Publish(domain.NewEvent(domain.KindUserLeave,
			fmt.Sprintf("%s disconnected", username), lastRoom))
	}

	s.log.Info("(-) client disconnected", "username", username, "remote", conn.RemoteAddr())
}

// readLoop consumes inbound lines until EOF or a socket error. Lines
// starting with '/' go to the command interpreter, everything else is
// plain chat. Malformed text is still literal chat content; well-formed
// lines are never silently dropped.
func (s *Server) readLoop(reader *bufio.Reader, sess *runtime.Session) {
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			s.interp.Execute(sess, input)
		} else {
			s.interp.PostChat(sess, input)
		}
	}
}

// writeLoop merges the session's private queue and the bus subscription
// into socket writes. Each source's own order is preserved; there is no
// interleaving guarantee between the two. The private queue is drained
// first so history replay and errors are never starved by broadcast
// traffic.
func (s *Server) writeLoop(ctx context.Context, conn net.Conn, sess *runtime.Session, sub *runtime.Subscription) {
	w := bufio.NewWriter(conn)

	for {
		if err := s.drainQueue(conn, w, sess); err != nil {
			return
		}

		if n := sub.Lagged(); n > 0 {
			if err := s.writeMessage(conn, w, s.gapNotice(sess, n)); err != nil {
				s.logWriteError(sess, err)
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-sess.Queue.Done():
			// Loop back to drain whatever is still pending; the drain
			// reports closure once the queue is empty.
		case <-sess.Queue.Ready():
		case m := <-sub.C:
			if !s.wantsBroadcast(sess, m) {
				continue
			}
			// Queue entries enqueued before this broadcast was published
			// (history replay, errors) must hit the socket first.
			if err := s.drainQueue(conn, w, sess); err != nil {
				return
			}
			if err := s.writeMessage(conn, w, m); err != nil {
				s.logWriteError(sess, err)
				return
			}
		}
	}
}

// drainQueue writes every pending private message in FIFO order. It
// returns ErrQueueClosed once the queue is closed and empty (kick or
// overflow), or the write error that ended the session.
func (s *Server) drainQueue(conn net.Conn, w *bufio.Writer, sess *runtime.Session) error {
	for {
		m, ok, err := sess.Queue.TryPop()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := s.writeMessage(conn, w, m); err != nil {
			s.logWriteError(sess, err)
			return err
		}
	}
}

// wantsBroadcast applies the room filter: a bus message reaches this
// session only if its room matches the session's current room. Private
// messages travel on the queue exclusively and are dropped here to avoid
// double delivery.
func (s *Server) wantsBroadcast(sess *runtime.Session, m domain.Message) bool {
	if m.Kind == domain.KindPrivateMessage {
		return false
	}
	room, err := s.registry.RoomOf(sess.Username)
	if err != nil {
		return false
	}
	return m.Room == room
}

func (s *Server) writeMessage(conn net.Conn, w *bufio.Writer, m domain.Message) error {
	b, err := m.Encode()
	if err != nil {
		return err
	}
	if s.opts.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
			return err
		}
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return err
	}
	return w.Flush()
}

// gapNotice is synthesized locally when the subscription lost messages;
// it never goes through the bus or history.
func (s *Server) gapNotice(sess *runtime.Session, n int64) domain.Message {
	room, _ := s.registry.RoomOf(sess.Username)
	return domain.NewSystem(fmt.Sprintf("%d messages dropped (slow consumer)", n), room)
}

func (s *Server) logWriteError(sess *runtime.Session, err error) {
	s.log.Debug("Write failed, closing session", "username", sess.Username, "error", err)
}

// rawError sends a plain pre-registration error line. The connection is
// closed right after, so a failed write is irrelevant.
func (s *Server) rawError(conn net.Conn, msg string) {
	if s.opts.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}
	_, _ = conn.Write([]byte(msg + "\n"))
}
