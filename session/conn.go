// Package session implements the duplex engine shared by the evi chat and
// expression streaming clients: one persistent websocket carrying one JSON
// message per text frame.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	attune "github.com/attune-ai/attune-go"
)

// ErrClosed is returned by Send, Receive and Close once the connection has
// been closed or has failed.
var ErrClosed = errors.New("session: connection closed")

const (
	defaultDialTimeout = 10 * time.Second
	defaultWriteWait   = 10 * time.Second
	defaultReadLimit   = 16 << 20
	closeGracePeriod   = 5 * time.Second
	frameBuffer        = 256
)

// Options configures a duplex connection.
type Options struct {
	// DialTimeout bounds the websocket handshake.
	DialTimeout time.Duration
	// WriteWait bounds each frame write.
	WriteWait time.Duration
	// ReadLimit caps inbound frame size in bytes.
	ReadLimit int64
	Logger    *slog.Logger
}

// Conn owns one duplex websocket. A single goroutine pumps inbound frames
// into an ordered queue; writes are serialized internally. At most one
// goroutine should call Receive concurrently.
type Conn struct {
	ws        *websocket.Conn
	logger    *slog.Logger
	writeWait time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	state   State
	readErr error

	frames   chan []byte
	closed   chan struct{}
	readDone chan struct{}

	teardownOnce sync.Once
	teardownErr  error
}

// Dial performs the websocket handshake against rawURL and starts the read
// pump. The returned connection is Open; the server's first message is
// observed through Receive, not awaited here.
func Dial(ctx context.Context, rawURL string, opts Options) (*Conn, error) {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaultWriteWait
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dialer := websocket.Dialer{HandshakeTimeout: opts.DialTimeout}
	ws, res, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		if res != nil {
			res.Body.Close()
			err = fmt.Errorf("%w (status %d)", err, res.StatusCode)
		}
		return nil, &attune.TransportError{Op: "dial", Err: err}
	}
	if res != nil && res.Body != nil {
		res.Body.Close()
	}
	ws.SetReadLimit(opts.ReadLimit)

	c := &Conn{
		ws:        ws,
		logger:    opts.Logger,
		writeWait: opts.WriteWait,
		state:     Open,
		frames:    make(chan []byte, frameBuffer),
		closed:    make(chan struct{}),
		readDone:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// State reports the current lifecycle phase.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send serializes payload as one JSON text frame and writes it. Concurrent
// senders are serialized; frames are never interleaved. Once the connection
// is closed or failed, Send returns ErrClosed and writes nothing.
func (c *Conn) Send(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return &attune.ValidationError{Message: fmt.Sprintf("encode message: %v", err)}
	}
	return c.SendText(ctx, data)
}

// SendText writes one pre-encoded text frame.
func (c *Conn) SendText(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state != Open {
		return ErrClosed
	}

	deadline := time.Now().Add(c.writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.fail()
		return &attune.TransportError{Op: "write", Err: err}
	}
	return nil
}

// Receive blocks for the next inbound frame. Frames are delivered in wire
// order. When the peer closes the connection cleanly Receive returns io.EOF;
// a transport fault returns the fault and leaves the connection Failed.
func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data, ok := <-c.frames:
		if !ok {
			return nil, c.terminalError()
		}
		return data, nil
	case <-c.closed:
		// Drain frames that arrived before the local close.
		select {
		case data, ok := <-c.frames:
			if !ok {
				return nil, c.terminalError()
			}
			return data, nil
		default:
			return nil, c.terminalError()
		}
	}
}

// Close performs the orderly shutdown: it sends a close frame, waits
// briefly for the peer to finish, then releases the connection. A second
// Close returns ErrClosed.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.state != Open {
		c.mu.Unlock()
		return ErrClosed
	}
	c.state = Closing
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
	_ = c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	close(c.closed)

	select {
	case <-c.readDone:
	case <-time.After(closeGracePeriod):
		c.logger.Debug("close grace period elapsed before peer close")
	}

	err := c.teardown()

	c.mu.Lock()
	if !c.state.Terminal() {
		c.state = Closed
	}
	c.mu.Unlock()
	return err
}

// CloseIdempotent closes the connection if it is still open, mapping the
// double-close error to nil so it is safe to defer.
func (c *Conn) CloseIdempotent() error {
	err := c.Close()
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

// readLoop is the sole reader of the websocket. It pumps text frames into
// the queue in arrival order and records the terminal outcome.
func (c *Conn) readLoop() {
	defer close(c.readDone)
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			c.finishRead(err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		select {
		case c.frames <- data:
		case <-c.closed:
			return
		}
	}
}

func (c *Conn) finishRead(err error) {
	c.mu.Lock()
	switch {
	case c.state == Closing || c.state == Closed:
		c.state = Closed
		c.readErr = io.EOF
	case isOrderlyClose(err):
		c.state = Closed
		c.readErr = io.EOF
	default:
		c.state = Failed
		c.readErr = &attune.TransportError{Op: "read", Err: err}
		c.logger.Debug("read pump failed", "error", err)
	}
	c.mu.Unlock()
	close(c.frames)
	_ = c.teardown()
}

func (c *Conn) terminalError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return c.readErr
	}
	// Locally closed before the read pump recorded an outcome.
	return io.EOF
}

func (c *Conn) fail() {
	c.mu.Lock()
	if !c.state.Terminal() {
		c.state = Failed
	}
	c.mu.Unlock()
	_ = c.teardown()
}

func (c *Conn) teardown() error {
	c.teardownOnce.Do(func() {
		c.teardownErr = c.ws.Close()
	})
	return c.teardownErr
}

func isOrderlyClose(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived)
}
