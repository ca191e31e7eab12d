package comm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/phobologic/reponav/internal/message"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
	wsQueueSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Dial opens a websocket connection to url (ws:// or wss://).
func Dial(ctx context.Context, url string) (Conn, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return newWSConn(c), nil
}

// Upgrade turns an HTTP request into a websocket Conn.
func Upgrade(w http.ResponseWriter, r *http.Request) (Conn, error) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrading connection: %w", err)
	}
	return newWSConn(c), nil
}

type wsConn struct {
	conn *websocket.Conn
	out  chan message.Envelope
	in   chan message.Envelope
	done chan struct{}

	closing    chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once

	once  sync.Once
	errMu sync.Mutex
	err   error
}

func newWSConn(c *websocket.Conn) *wsConn {
	w := &wsConn{
		conn: c,
		out:  make(chan message.Envelope, wsQueueSize),
		in:   make(chan message.Envelope, wsQueueSize),
		done: make(chan struct{}),

		closing:    make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	go w.readLoop()
	go w.writeLoop()
	return w
}

func (w *wsConn) readLoop() {
	if err := w.conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		w.fail(err)
		return
	}
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			w.fail(err)
			return
		}
		env, err := message.Decode(data)
		if err != nil {
			w.fail(err)
			return
		}
		select {
		case w.in <- env:
		case <-w.done:
			return
		}
	}
}

func (w *wsConn) writeLoop() {
	defer close(w.writerDone)
	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-w.closing:
			w.drain()
			return
		case env := <-w.out:
			if err := w.write(env); err != nil {
				w.fail(err)
				return
			}
		case <-ticker.C:
			if err := w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				w.fail(err)
				return
			}
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				w.fail(err)
				return
			}
		}
	}
}

func (w *wsConn) write(env message.Envelope) error {
	if err := w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return w.conn.WriteJSON(env)
}

// drain writes whatever is still queued, then the close frame.
func (w *wsConn) drain() {
	for {
		select {
		case env := <-w.out:
			if err := w.write(env); err != nil {
				return
			}
		default:
			_ = w.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return
		}
	}
}

func (w *wsConn) fail(err error) {
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
	w.once.Do(func() {
		close(w.done)
		_ = w.conn.Close()
	})
}

func (w *wsConn) closeErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil || errors.Is(w.err, ErrClosed) {
		return ErrClosed
	}
	return fmt.Errorf("%w: %v", ErrClosed, w.err)
}

func (w *wsConn) Send(env message.Envelope) error {
	select {
	case <-w.done:
		return w.closeErr()
	case <-w.closing:
		return ErrClosed
	default:
	}
	select {
	case w.out <- env:
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *wsConn) Receive(ctx context.Context) (message.Envelope, error) {
	select {
	case env := <-w.in:
		return env, nil
	case <-w.done:
		return message.Envelope{}, w.closeErr()
	case <-ctx.Done():
		return message.Envelope{}, ctx.Err()
	}
}

// Close writes any queued envelopes and a close frame, then tears the
// connection down.
func (w *wsConn) Close() error {
	w.closeOnce.Do(func() { close(w.closing) })
	select {
	case <-w.writerDone:
	case <-time.After(wsWriteWait):
	}
	w.fail(ErrClosed)
	return nil
}
