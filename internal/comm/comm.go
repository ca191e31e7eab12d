// Package comm carries envelopes between two endpoints. Delivery is
// ordered; Send never blocks and Receive blocks until an envelope arrives,
// the connection fails, or the context ends.
package comm

import (
	"context"
	"errors"
	"sync"

	"github.com/phobologic/reponav/internal/message"
)

var (
	// ErrClosed is returned once a connection has been closed or has failed.
	ErrClosed = errors.New("connection closed")
	// ErrQueueFull is returned by Send when the outbound queue is full.
	ErrQueueFull = errors.New("send queue full")
)

// Conn is one end of a point-to-point envelope channel.
type Conn interface {
	// Send enqueues env for delivery and returns immediately.
	Send(env message.Envelope) error
	// Receive returns the next envelope.
	Receive(ctx context.Context) (message.Envelope, error)
	// Close releases the connection. Pending Receive calls return ErrClosed.
	Close() error
}

// Pipe returns two connected in-memory ends, each able to queue buffer
// envelopes. Closing either end closes both.
func Pipe(buffer int) (Conn, Conn) {
	ab := make(chan message.Envelope, buffer)
	ba := make(chan message.Envelope, buffer)
	shared := &pipeState{done: make(chan struct{})}
	return &pipeConn{in: ba, out: ab, state: shared}, &pipeConn{in: ab, out: ba, state: shared}
}

type pipeState struct {
	once sync.Once
	done chan struct{}
}

type pipeConn struct {
	in    <-chan message.Envelope
	out   chan<- message.Envelope
	state *pipeState
}

func (p *pipeConn) Send(env message.Envelope) error {
	select {
	case <-p.state.done:
		return ErrClosed
	default:
	}
	select {
	case p.out <- env:
		return nil
	case <-p.state.done:
		return ErrClosed
	default:
		return ErrQueueFull
	}
}

func (p *pipeConn) Receive(ctx context.Context) (message.Envelope, error) {
	select {
	case env := <-p.in:
		return env, nil
	case <-p.state.done:
		return message.Envelope{}, ErrClosed
	case <-ctx.Done():
		return message.Envelope{}, ctx.Err()
	}
}

func (p *pipeConn) Close() error {
	p.state.once.Do(func() { close(p.state.done) })
	return nil
}
