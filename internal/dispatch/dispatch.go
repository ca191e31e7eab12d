// Package dispatch routes envelopes to handlers by command.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"

	"github.com/phobologic/reponav/internal/message"
)

// ErrUnknownCommand is returned by Dispatch when no handler is registered.
var ErrUnknownCommand = errors.New("unknown command")

// Handler consumes an envelope together with the caller's state S. On the
// serving side it returns the reply; on the receiving side of replies the
// returned envelope is ignored.
type Handler[S any] func(ctx context.Context, state S, env message.Envelope) message.Envelope

// Table maps commands to handlers. Register everything before the first
// Dispatch; the table is read-only afterwards.
type Table[S any] struct {
	handlers map[message.Command]Handler[S]
}

// NewTable returns an empty table.
func NewTable[S any]() *Table[S] {
	return &Table[S]{handlers: make(map[message.Command]Handler[S])}
}

// Register binds cmd to h, replacing any earlier handler.
func (t *Table[S]) Register(cmd message.Command, h Handler[S]) {
	t.handlers[cmd] = h
}

// Commands returns the registered commands, sorted.
func (t *Table[S]) Commands() []message.Command {
	cmds := make([]message.Command, 0, len(t.handlers))
	for c := range t.handlers {
		cmds = append(cmds, c)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i] < cmds[j] })
	return cmds
}

// Dispatch runs the handler registered for env.Command. A panicking
// handler is reported as an error instead of unwinding the caller's loop.
func (t *Table[S]) Dispatch(ctx context.Context, state S, env message.Envelope) (reply message.Envelope, err error) {
	h, ok := t.handlers[env.Command]
	if !ok {
		return message.Envelope{}, fmt.Errorf("%w %q", ErrUnknownCommand, env.Command)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v\n%s", env.Command, r, debug.Stack())
		}
	}()
	return h(ctx, state, env), nil
}

// Serve dispatches env and always produces a reply: an unknown command or
// a panicking handler becomes an error reply.
func (t *Table[S]) Serve(ctx context.Context, state S, env message.Envelope) message.Envelope {
	reply, err := t.Dispatch(ctx, state, env)
	switch {
	case errors.Is(err, ErrUnknownCommand):
		return env.ErrorReply(message.CodeUnknownCommand, err.Error())
	case err != nil:
		return env.ErrorReply(message.CodeInternal, fmt.Sprintf("%s failed", env.Command))
	}
	return reply
}
