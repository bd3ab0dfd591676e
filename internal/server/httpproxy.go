package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rathix/vite-devproxy/internal/viteconfig"
)

const httpErrorMessage = "Error communicating with Vite dev server"

// HTTPProxy forwards plain HTTP requests to the Vite dev server and streams
// the response back. Redirects are passed through, never followed.
type HTTPProxy struct {
	target      viteconfig.Config
	transport   http.RoundTripper
	readTimeout time.Duration
	log         *slog.Logger
}

// NewHTTPProxy creates an HTTP forwarder for the dev server described by target.
func NewHTTPProxy(target viteconfig.Config, opts ...Option) *HTTPProxy {
	o := applyOptions(opts)
	return newHTTPProxy(target, o)
}

func newHTTPProxy(target viteconfig.Config, o options) *HTTPProxy {
	return &HTTPProxy{
		target:      target,
		transport:   o.transport,
		readTimeout: o.readTimeout,
		log:         o.logger,
	}
}

func (p *HTTPProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timeout := readTimeoutFrom(r.Context(), p.readTimeout)
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	u := p.target.HTTPURL(r.URL.Path, r.URL.RawQuery)
	u.RawPath = r.URL.RawPath

	var body io.Reader
	if bodyAllowed(r.Method) && r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0 {
		body = r.Body
	}
	out, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		writeBackendError(w, httpErrorMessage, err)
		return
	}
	out.Header = forwardHeaders(r)
	out.Host = u.Host
	if body != nil {
		out.ContentLength = r.ContentLength
	}

	resp, err := p.transport.RoundTrip(out)
	if err != nil {
		p.log.Warn("dev server request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeBackendError(w, httpErrorMessage, err)
		return
	}
	defer resp.Body.Close()

	p.log.Debug("proxied request",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", resp.StatusCode),
	)

	copyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if err := streamBody(w, resp.Body); err != nil && !errors.Is(err, context.Canceled) {
		p.log.Debug("response body copy aborted",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// bodyAllowed reports whether requests with method may carry a body to the
// dev server.
func bodyAllowed(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete,
		http.MethodOptions, http.MethodTrace, http.MethodConnect:
		return false
	}
	return true
}

// streamBody relays the backend body chunk by chunk, flushing after each
// write so partial responses reach the browser as they arrive.
func streamBody(w http.ResponseWriter, body io.Reader) error {
	rc := http.NewResponseController(w)
	buf := make([]byte, 32<<10)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			_ = rc.Flush()
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
