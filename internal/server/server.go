// Package server answers navigator requests: directory browsing relative to
// a served root, plus dependency and strong-component analysis of files
// beneath it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/phobologic/reponav/internal/analysis"
	"github.com/phobologic/reponav/internal/comm"
	"github.com/phobologic/reponav/internal/discover"
	"github.com/phobologic/reponav/internal/dispatch"
	"github.com/phobologic/reponav/internal/logging"
	"github.com/phobologic/reponav/internal/message"
	"github.com/phobologic/reponav/internal/navigation"
)

// Options configures a Server.
type Options struct {
	Root     string
	Endpoint message.Endpoint
	// Patterns optionally restricts file listings to names matching one
	// of the globs.
	Patterns []string
	// Extractor defaults to a tree-sitter extractor without a size limit.
	Extractor analysis.Extractor
	Logger    *slog.Logger
}

// Server holds the dispatch table and per-endpoint navigation state.
// Requests from all connections run one at a time.
type Server struct {
	root     string
	endpoint message.Endpoint
	sessions *navigation.Sessions
	analyzer *analysis.Analyzer
	table    *dispatch.Table[*navigation.State]
	log      *slog.Logger

	mu sync.Mutex

	stopOnce sync.Once
	done     chan struct{}
}

// New creates a Server rooted at opts.Root.
func New(opts Options) (*Server, error) {
	if opts.Root == "" {
		return nil, errors.New("server root is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("server root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("server root %s: %w", root, discover.ErrNotDir)
	}
	if opts.Endpoint == "" {
		opts.Endpoint = "server"
	}
	log := logging.OrDiscard(opts.Logger)

	extractor := opts.Extractor
	if extractor == nil {
		ts, err := analysis.NewTreeSitterExtractor(1024, 0)
		if err != nil {
			return nil, err
		}
		extractor = ts
	}

	s := &Server{
		root:     root,
		endpoint: opts.Endpoint,
		sessions: navigation.NewSessions(root, opts.Patterns),
		analyzer: analysis.New(extractor, log),
		table:    dispatch.NewTable[*navigation.State](),
		log:      log,
		done:     make(chan struct{}),
	}
	s.register()
	return s, nil
}

// Endpoint returns the name the server answers to.
func (s *Server) Endpoint() message.Endpoint {
	return s.endpoint
}

// Commands returns the registered commands.
func (s *Server) Commands() []message.Command {
	return s.table.Commands()
}

// Handle runs the handler for a request and returns its reply.
func (s *Server) Handle(ctx context.Context, env message.Envelope) message.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("request",
		"command", env.Command,
		"from", env.From,
		"args", env.Arguments,
	)
	reply := s.table.Serve(ctx, s.sessions.Get(env.From), env)
	if reply.IsError() {
		s.log.Info("request failed", "command", env.Command, "from", env.From, "error", reply.Err())
	}
	return reply
}

// Serve reads requests from conn and answers each one before reading the
// next. It returns nil when conn closes, ctx ends or a shutdown envelope
// arrives, and the transport error otherwise.
func (s *Server) Serve(ctx context.Context, conn comm.Conn) error {
	for {
		env, err := conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, comm.ErrClosed) {
				s.log.Debug("connection closed", "error", err)
				return nil
			}
			s.log.Error("receive failed", "error", err)
			return fmt.Errorf("receiving: %w", err)
		}

		switch env.Kind {
		case message.Shutdown:
			s.log.Info("shutdown requested", "from", env.From)
			s.Stop()
			return nil
		case message.Reply:
			s.log.Debug("ignoring reply", "command", env.Command, "from", env.From)
			continue
		}

		if env.Command == "" {
			s.log.Warn("skipping request without command", "from", env.From)
			continue
		}

		reply := s.Handle(ctx, env)
		if err := conn.Send(reply); err != nil {
			s.log.Error("send failed", "command", env.Command, "error", err)
			return fmt.Errorf("sending %s reply: %w", env.Command, err)
		}
	}
}

// Stop marks the server as shut down. It is safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Done is closed once a shutdown envelope arrived or Stop was called.
func (s *Server) Done() <-chan struct{} {
	return s.done
}
