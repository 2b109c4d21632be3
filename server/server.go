// Package server implements the TCP surface of the chat system: the
// listener worker, the per-connection session handler, and the command
// interpreter that mutates routing state.
package server

import (
	"chat-relay/contract"
	"chat-relay/moderation"
	"chat-relay/runtime"
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Ensure *Server implements the contract.Worker interface at compile time.
var _ contract.Worker = (*Server)(nil)

// Options carries the server's tunables, resolved from the environment by
// the entrypoint.
type Options struct {
	Host         string
	Port         int
	DefaultRoom  string
	WriteTimeout time.Duration
	QueueLimit   int
	AdminUsers   []string
}

// Server accepts client connections and spawns one session handler per
// connection. It owns the registry, bus, and history it hands to sessions;
// there are no ambient singletons.
type Server struct {
	log      *slog.Logger
	opts     Options
	registry *runtime.Registry
	bus      *runtime.Bus
	history  *runtime.HistoryStore
	interp   *Interpreter
}

func NewServer(log *slog.Logger, registry *runtime.Registry, bus *runtime.Bus,
	history *runtime.HistoryStore, moderator *moderation.Moderator, opts Options) *Server {
	return &Server{
		log:      log,
		opts:     opts,
		registry: registry,
		bus:      bus,
		history:  history,
		interp:   NewInterpreter(log, registry, history, bus, moderator),
	}
}

// Addr is the host:port the server listens on.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
}

// Run implements contract.Worker. It listens until the context is
// canceled; each accepted connection runs in its own goroutine so one
// session's slow peer never holds up the others.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.Addr(), err)
	}

	// Closing the listener is what unblocks Accept on cancellation.
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	s.log.Info("Chat server listening", "address", s.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}
