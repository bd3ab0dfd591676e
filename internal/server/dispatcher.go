package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	appws "github.com/rathix/vite-devproxy/internal/websocket"
)

// Runner makes sure the dev server is up before a request is forwarded.
type Runner interface {
	EnsureRunning(ctx context.Context) error
}

// Dispatcher is the middleware that decides, per request, whether the Vite
// dev server or the host application handles it.
type Dispatcher struct {
	base        string
	mountPrefix string
	runner      Runner
	http        http.Handler
	ws          http.Handler
	log         *slog.Logger
}

// NewDispatcher creates a dispatcher for assets under base. A nil runner
// skips the dev server check.
func NewDispatcher(base string, runner Runner, httpProxy, wsProxy http.Handler, opts ...Option) *Dispatcher {
	o := applyOptions(opts)
	return newDispatcher(base, runner, httpProxy, wsProxy, o)
}

func newDispatcher(base string, runner Runner, httpProxy, wsProxy http.Handler, o options) *Dispatcher {
	return &Dispatcher{
		base:        base,
		mountPrefix: o.mountPrefix,
		runner:      runner,
		http:        httpProxy,
		ws:          wsProxy,
		log:         o.logger,
	}
}

// Eligible reports whether r belongs to the dev server and returns the path
// to forward. The Vite base is matched anywhere in the path, not only as a
// prefix, after the mount prefix has been removed.
func (d *Dispatcher) Eligible(r *http.Request) (string, bool) {
	p := StripBasePath(d.mountPrefix, r.URL.Path)
	return p, strings.Contains(p, d.base)
}

// Wrap returns a handler that serves dev server requests and passes every
// other request to next untouched.
func (d *Dispatcher) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := d.Eligible(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		if d.runner != nil {
			if err := d.runner.EnsureRunning(r.Context()); err != nil {
				d.log.Error("failed to start dev server", slog.String("error", err.Error()))
			}
		}

		if p != r.URL.Path {
			r2 := r.Clone(r.Context())
			r2.URL.Path = p
			r2.URL.RawPath = ""
			r = r2
		}

		if appws.IsUpgradeRequest(r) {
			d.ws.ServeHTTP(w, r)
			return
		}
		d.http.ServeHTTP(w, r)
	})
}
