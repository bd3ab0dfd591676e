package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultReadTimeout bounds one proxied HTTP exchange with the dev server.
	DefaultReadTimeout = 60 * time.Second
	// DefaultKeepalive is the ping interval on the browser side of a tunnel.
	DefaultKeepalive = 15 * time.Second
	// DefaultDialTimeout bounds the WebSocket handshake with the dev server.
	DefaultDialTimeout = 5 * time.Second
	// DefaultWriteTimeout bounds forwarding one WebSocket message.
	DefaultWriteTimeout = 10 * time.Second
)

type options struct {
	logger       *slog.Logger
	mountPrefix  string
	readTimeout  time.Duration
	keepalive    time.Duration
	dialTimeout  time.Duration
	writeTimeout time.Duration
	transport    http.RoundTripper
}

// Option configures the dev proxy components.
type Option func(*options)

// WithLogger sets the logger used for request and tunnel diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMountPrefix sets the path the host application is mounted under.
// It is removed before the Vite base is matched and before forwarding.
func WithMountPrefix(prefix string) Option {
	return func(o *options) { o.mountPrefix = prefix }
}

// WithDefaultReadTimeout sets the timeout applied when a request carries
// no per-request hint (see ContextWithReadTimeout).
func WithDefaultReadTimeout(d time.Duration) Option {
	return func(o *options) { o.readTimeout = d }
}

// WithKeepalive sets the ping interval for browser connections. Zero
// disables pings.
func WithKeepalive(d time.Duration) Option {
	return func(o *options) { o.keepalive = d }
}

// WithDialTimeout bounds the WebSocket handshake with the dev server.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

// WithWriteTimeout bounds forwarding a single WebSocket message.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.writeTimeout = d }
}

// WithTransport replaces the round tripper used for HTTP forwarding.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

func applyOptions(opts []Option) options {
	o := options{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		readTimeout:  DefaultReadTimeout,
		keepalive:    DefaultKeepalive,
		dialTimeout:  DefaultDialTimeout,
		writeTimeout: DefaultWriteTimeout,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.transport == nil {
		o.transport = newTransport()
	}
	return o
}

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	// The dev server is always local; never route it through HTTP_PROXY.
	t.Proxy = nil
	t.MaxIdleConnsPerHost = 32
	return t
}

type readTimeoutKey struct{}

// ContextWithReadTimeout attaches a per-request read timeout hint that
// overrides the proxy default.
func ContextWithReadTimeout(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, readTimeoutKey{}, d)
}

func readTimeoutFrom(ctx context.Context, def time.Duration) time.Duration {
	if d, ok := ctx.Value(readTimeoutKey{}).(time.Duration); ok && d > 0 {
		return d
	}
	return def
}
