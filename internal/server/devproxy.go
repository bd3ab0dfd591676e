package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rathix/vite-devproxy/internal/viteconfig"
)

// DevProxy bundles the dispatcher with its HTTP and WebSocket forwarders.
type DevProxy struct {
	config     viteconfig.Config
	dispatcher *Dispatcher
	http       *HTTPProxy
	ws         *WebSocketProxy
}

// NewDevProxy builds the proxy for a resolved Vite configuration. A
// configuration without a base is rejected.
func NewDevProxy(cfg viteconfig.Config, runner Runner, opts ...Option) (*DevProxy, error) {
	base, err := cfg.Base()
	if err != nil {
		return nil, fmt.Errorf("vite config: %w", err)
	}
	o := applyOptions(opts)
	p := &DevProxy{
		config: cfg,
		http:   newHTTPProxy(cfg, o),
		ws:     newWebSocketProxy(cfg, o),
	}
	p.dispatcher = newDispatcher(base, runner, p.http, p.ws, o)

	o.logger.Info("vite dev proxy configured",
		slog.String("base", base),
		slog.String("backend", cfg.Addr()),
		slog.String("mountPrefix", NormalizeBasePath(o.mountPrefix)),
	)
	return p, nil
}

// Config returns the Vite configuration the proxy was built for.
func (p *DevProxy) Config() viteconfig.Config { return p.config }

// Dispatcher returns the request router.
func (p *DevProxy) Dispatcher() *Dispatcher { return p.dispatcher }

// WebSocket returns the tunnel endpoint.
func (p *DevProxy) WebSocket() *WebSocketProxy { return p.ws }

// Middleware wraps next so dev server paths are proxied.
func (p *DevProxy) Middleware(next http.Handler) http.Handler {
	return p.dispatcher.Wrap(next)
}

// Shutdown closes every open WebSocket tunnel.
func (p *DevProxy) Shutdown(ctx context.Context) {
	p.ws.Shutdown(ctx)
}
