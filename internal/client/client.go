// Package client is the requesting side of the navigator protocol. A
// single receive loop applies replies to a View through a dispatch table
// that mirrors the server's, and hands them to waiting callers or to an
// inbox channel.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phobologic/reponav/internal/comm"
	"github.com/phobologic/reponav/internal/dispatch"
	"github.com/phobologic/reponav/internal/logging"
	"github.com/phobologic/reponav/internal/message"
)

// ErrTimeout is returned by Call when no reply arrives in time.
var ErrTimeout = errors.New("timed out waiting for reply")

const inboxSize = 32

// Options configures a Client.
type Options struct {
	Endpoint message.Endpoint
	Server   message.Endpoint
	Author   string
	// Timeout bounds each Call. Zero means only the caller's context
	// applies.
	Timeout time.Duration
	Logger  *slog.Logger
}

type pendingCall struct {
	request message.Envelope
	waiter  chan message.Envelope // nil once nobody is waiting
}

// Client sends requests over a Conn and tracks the replies.
type Client struct {
	conn     comm.Conn
	endpoint message.Endpoint
	server   message.Endpoint
	author   string
	timeout  time.Duration
	log      *slog.Logger
	table    *dispatch.Table[*exchange]

	mu      sync.Mutex
	view    View
	pending map[string]*pendingCall

	inbox chan message.Envelope
	done  chan struct{}
	err   error
}

// New creates a Client on conn. Call Run to start receiving.
func New(conn comm.Conn, opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = "client"
	}
	if opts.Server == "" {
		opts.Server = "server"
	}
	return &Client{
		conn:     conn,
		endpoint: opts.Endpoint,
		server:   opts.Server,
		author:   opts.Author,
		timeout:  opts.Timeout,
		log:      logging.OrDiscard(opts.Logger),
		table:    mirrorTable(),
		pending:  make(map[string]*pendingCall),
		inbox:    make(chan message.Envelope, inboxSize),
		done:     make(chan struct{}),
	}
}

// Endpoint returns the client's own endpoint name.
func (c *Client) Endpoint() message.Endpoint {
	return c.endpoint
}

// Inbox delivers replies nobody is waiting for, in arrival order. It is
// meant for a single consumer and is closed when Run returns.
func (c *Client) Inbox() <-chan message.Envelope {
	return c.inbox
}

// Done is closed when Run returns.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended Run, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Run receives replies until the connection closes or ctx ends. Every
// pending Call fails once Run returns.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.inbox)
	for {
		env, err := c.conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, comm.ErrClosed) {
				c.finish(fmt.Errorf("receiving: %w", err))
				return nil
			}
			c.log.Error("receive failed", "error", err)
			c.finish(fmt.Errorf("receiving: %w", err))
			return err
		}

		switch env.Kind {
		case message.Reply:
			c.deliver(ctx, env)
		case message.Shutdown:
			c.log.Info("peer shut down", "from", env.From)
			c.finish(comm.ErrClosed)
			return nil
		default:
			c.log.Debug("ignoring request", "command", env.Command, "from", env.From)
		}
	}
}

func (c *Client) finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
	}
	c.err = err
	c.pending = make(map[string]*pendingCall)
	close(c.done)
}

func (c *Client) deliver(ctx context.Context, reply message.Envelope) {
	c.mu.Lock()
	call, ok := c.pending[reply.ReplyTo]
	delete(c.pending, reply.ReplyTo)
	var request message.Envelope
	if ok {
		request = call.request
	}
	c.apply(ctx, request, reply)
	var waiter chan message.Envelope
	if ok {
		waiter = call.waiter
	}
	c.mu.Unlock()

	if waiter != nil {
		waiter <- reply
		return
	}
	select {
	case c.inbox <- reply:
	default:
		c.log.Warn("inbox full, dropping reply", "command", reply.Command)
	}
}

// apply runs the mirror handler for reply. c.mu must be held.
func (c *Client) apply(ctx context.Context, request, reply message.Envelope) {
	if reply.IsError() {
		c.view.LastError = reply.Err()
		return
	}
	c.view.LastError = nil
	if _, err := c.table.Dispatch(ctx, &exchange{view: &c.view, request: request}, reply); err != nil {
		c.log.Debug("reply not applied", "command", reply.Command, "error", err)
	}
}

func (c *Client) newRequest(cmd message.Command, args []string) message.Envelope {
	req := message.NewRequest(c.endpoint, c.server, cmd, args...)
	req.Author = c.author
	return req
}

func (c *Client) send(req message.Envelope, waiter chan message.Envelope) error {
	c.mu.Lock()
	select {
	case <-c.done:
		err := c.err
		c.mu.Unlock()
		return err
	default:
	}
	c.pending[req.ID] = &pendingCall{request: req, waiter: waiter}
	c.mu.Unlock()

	if err := c.conn.Send(req); err != nil {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
		return fmt.Errorf("sending %s: %w", req.Command, err)
	}
	c.log.Debug("request sent", "command", req.Command, "id", req.ID, "args", req.Arguments)
	return nil
}

// Post sends a request without waiting. Its reply updates the View and
// then appears on Inbox. Post returns the request ID.
func (c *Client) Post(cmd message.Command, args ...string) (string, error) {
	req := c.newRequest(cmd, args)
	if err := c.send(req, nil); err != nil {
		return "", err
	}
	return req.ID, nil
}

// Call sends a request and waits for its reply. The View is updated
// before Call returns. An error reply is returned together with its
// *message.RemoteError.
func (c *Client) Call(ctx context.Context, cmd message.Command, args ...string) (message.Envelope, error) {
	req := c.newRequest(cmd, args)
	waiter := make(chan message.Envelope, 1)
	if err := c.send(req, waiter); err != nil {
		return message.Envelope{}, err
	}

	var timeout <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case reply := <-waiter:
		return reply, reply.Err()
	case <-timeout:
		c.abandon(req.ID)
		return message.Envelope{}, fmt.Errorf("%s: %w", cmd, ErrTimeout)
	case <-ctx.Done():
		c.abandon(req.ID)
		return message.Envelope{}, ctx.Err()
	case <-c.done:
		select {
		case reply := <-waiter:
			return reply, reply.Err()
		default:
		}
		return message.Envelope{}, c.Err()
	}
}

// abandon keeps the request so a late reply still updates the View, but
// routes that reply to the inbox.
func (c *Client) abandon(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if call, ok := c.pending[id]; ok {
		call.waiter = nil
	}
}

// Shutdown asks the server to stop.
func (c *Client) Shutdown() error {
	if err := c.conn.Send(message.NewShutdown(c.endpoint, c.server)); err != nil {
		return fmt.Errorf("sending shutdown: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
