package websocket

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	ws "nhooyr.io/websocket"
)

// ReadyState mirrors the browser WebSocket readyState for one side of a tunnel.
type ReadyState int32

const (
	StateOpen ReadyState = iota
	StateClosing
	StateClosed
)

func (s ReadyState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn wraps a nhooyr.io/websocket.Conn with an optional ping/pong keepalive,
// graceful close-frame logic and a ready state other goroutines can consult
// before writing.
type Conn struct {
	inner  *ws.Conn
	opts   Options
	cancel context.CancelFunc
	done   chan struct{}
	state  atomic.Int32

	mu     sync.Mutex
	closed bool
}

// WrapConn wraps an established WebSocket connection. When a ping interval is
// configured it starts a background goroutine that pings the peer. Call Close
// to stop the goroutine and close the connection.
//
// IMPORTANT: The caller must have an active Read loop on the connection for
// pong responses to be processed (nhooyr.io/websocket v1.x requirement).
func WrapConn(ctx context.Context, c *ws.Conn, options ...Option) *Conn {
	opts := applyOptions(options)
	ctx, cancel := context.WithCancel(ctx)
	conn := &Conn{
		inner:  c,
		opts:   opts,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if opts.PingInterval > 0 {
		go conn.pingLoop(ctx)
	} else {
		close(conn.done)
	}
	return conn
}

// Inner returns the underlying nhooyr.io/websocket.Conn for direct read/write.
func (c *Conn) Inner() *ws.Conn {
	return c.inner
}

// State returns the current ready state.
func (c *Conn) State() ReadyState {
	return ReadyState(c.state.Load())
}

// IsOpen reports whether messages may still be written to the peer.
func (c *Conn) IsOpen() bool {
	return c.State() == StateOpen
}

// Read reads the next message. Any error means the connection is finished
// and moves it to the closed state.
func (c *Conn) Read(ctx context.Context) (ws.MessageType, []byte, error) {
	typ, data, err := c.inner.Read(ctx)
	if err != nil {
		c.state.Store(int32(StateClosed))
		c.cancel()
	}
	return typ, data, err
}

// Write sends one message with the given type.
func (c *Conn) Write(ctx context.Context, typ ws.MessageType, data []byte) error {
	return c.inner.Write(ctx, typ, data)
}

// Close sends a close frame and shuts down the connection.
func (c *Conn) Close(code ws.StatusCode, reason string) error {
	if !c.markClosing() {
		return nil
	}
	c.cancel()
	<-c.done
	err := c.inner.Close(code, reason)
	c.state.Store(int32(StateClosed))
	return err
}

// CloseWithContext sends a close frame within the given context deadline.
func (c *Conn) CloseWithContext(ctx context.Context, code ws.StatusCode, reason string) error {
	if !c.markClosing() {
		return nil
	}
	c.cancel()

	// Wait for ping loop to finish, but respect ctx deadline
	select {
	case <-c.done:
	case <-ctx.Done():
	}
	err := c.inner.Close(code, reason)
	c.state.Store(int32(StateClosed))
	return err
}

// ForceClose immediately closes the underlying connection without sending a
// close frame. It also cuts short a close handshake already in progress.
func (c *Conn) ForceClose() {
	c.markClosing()
	c.cancel()
	c.inner.CloseNow()
	c.state.Store(int32(StateClosed))
}

// markClosing flips the connection into the closing state exactly once.
func (c *Conn) markClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing))
	return true
}

func (c *Conn) pingLoop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, c.opts.PongTimeout)
			err := c.inner.Ping(pingCtx)
			pingCancel()
			if err != nil {
				if ctx.Err() != nil {
					// Parent context cancelled, not a pong timeout
					return
				}
				c.opts.Logger.Warn("pong timeout, closing connection", slog.String("error", err.Error()))
				// Use CloseNow to avoid blocking on close handshake with unresponsive peer
				c.state.Store(int32(StateClosed))
				c.inner.CloseNow()
				return
			}
		}
	}
}
