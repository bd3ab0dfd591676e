package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "nhooyr.io/websocket"

	"github.com/rathix/vite-devproxy/internal/viteconfig"
	appws "github.com/rathix/vite-devproxy/internal/websocket"
)

// HMRProtocol is the sub-protocol Vite's HMR client negotiates.
const HMRProtocol = "vite-hmr"

const wsErrorMessage = "Failed to connect to Vite dev server"

// WebSocketProxy tunnels WebSocket connections between the browser and the
// dev server. Every live tunnel is tracked in a pair registry so either side
// closing tears down the other.
type WebSocketProxy struct {
	target       viteconfig.Config
	registry     *appws.PairRegistry
	keepalive    time.Duration
	dialTimeout  time.Duration
	writeTimeout time.Duration
	log          *slog.Logger
}

// NewWebSocketProxy creates a tunnel endpoint for the dev server described by target.
func NewWebSocketProxy(target viteconfig.Config, opts ...Option) *WebSocketProxy {
	return newWebSocketProxy(target, applyOptions(opts))
}

func newWebSocketProxy(target viteconfig.Config, o options) *WebSocketProxy {
	return &WebSocketProxy{
		target:       target,
		registry:     appws.NewRegistry(o.logger),
		keepalive:    o.keepalive,
		dialTimeout:  o.dialTimeout,
		writeTimeout: o.writeTimeout,
		log:          o.logger,
	}
}

// Registry exposes the live tunnel pairs.
func (p *WebSocketProxy) Registry() *appws.PairRegistry {
	return p.registry
}

// Shutdown closes every open tunnel on both sides.
func (p *WebSocketProxy) Shutdown(ctx context.Context) {
	p.registry.CloseAll(ctx)
}

// ServeHTTP opens the dev server side first so a failure can still be
// answered with a plain HTTP error, then upgrades the browser connection and
// relays messages until either side closes.
func (p *WebSocketProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := p.target.WSURL(r.URL.Path, r.URL.RawQuery)

	dialCtx, cancel := context.WithTimeout(r.Context(), p.dialTimeout)
	serverRaw, err := appws.Dial(dialCtx, target.String(), HMRProtocol)
	cancel()
	if err != nil {
		p.log.Warn("dev server websocket dial failed",
			slog.String("url", target.String()),
			slog.String("error", err.Error()),
		)
		writeBackendError(w, wsErrorMessage, err)
		return
	}

	clientRaw, err := appws.Accept(w, r, HMRProtocol)
	if err != nil {
		p.log.Debug("client websocket handshake failed", slog.String("error", err.Error()))
		serverRaw.CloseNow()
		return
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	client := appws.WrapConn(ctx, clientRaw,
		appws.WithPingInterval(p.keepalive),
		appws.WithLogger(p.log),
	)
	server := appws.WrapConn(ctx, serverRaw,
		appws.WithPingInterval(0),
		appws.WithLogger(p.log),
	)
	pair := p.registry.Add(client, server)
	p.log.Debug("websocket tunnel opened",
		slog.String("id", pair.ID),
		slog.String("path", r.URL.Path),
		slog.Int("open", p.registry.Count()),
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		err := p.relay(ctx, client, server, "client->server")
		p.clientClosed(pair.ID, err)
	}()
	go func() {
		defer wg.Done()
		err := p.relay(ctx, server, client, "server->client")
		p.serverClosed(server, err)
	}()
	wg.Wait()
}

// relay copies messages from src to dst, preserving text/binary framing,
// until src fails. Messages arriving while dst is not open are dropped.
func (p *WebSocketProxy) relay(ctx context.Context, src, dst *appws.Conn, direction string) error {
	for {
		typ, data, err := src.Read(ctx)
		if err != nil {
			return err
		}
		if !dst.IsOpen() {
			p.log.Debug("dropping websocket message",
				slog.String("direction", direction),
				slog.String("peer", dst.State().String()),
			)
			continue
		}
		wctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
		err = dst.Write(wctx, typ, data)
		cancel()
		if err != nil {
			p.log.Debug("websocket forward failed",
				slog.String("direction", direction),
				slog.String("error", err.Error()),
			)
			continue
		}
		p.log.Debug("websocket message forwarded",
			slog.String("direction", direction),
			slog.Int("bytes", len(data)),
		)
	}
}

func (p *WebSocketProxy) clientClosed(id string, err error) {
	pair, ok := p.registry.Remove(id)
	if !ok {
		return
	}
	code, reason := closeStatus(err)
	p.log.Debug("client websocket closed",
		slog.String("id", id),
		slog.Int("code", int(code)),
		slog.Int("open", p.registry.Count()),
	)
	if pair.Server.State() != appws.StateClosed {
		_ = pair.Server.Close(code, reason)
	}
}

func (p *WebSocketProxy) serverClosed(server *appws.Conn, err error) {
	pair, ok := p.registry.RemoveByServer(server)
	if !ok {
		return
	}
	code, reason := closeStatus(err)
	p.log.Debug("dev server websocket closed",
		slog.String("id", pair.ID),
		slog.Int("code", int(code)),
		slog.Int("open", p.registry.Count()),
	)
	if pair.Client.State() != appws.StateClosed {
		_ = pair.Client.Close(code, reason)
	}
}

// closeStatus picks the code to propagate to the other side. Codes that may
// not be sent on the wire become StatusGoingAway.
func closeStatus(err error) (ws.StatusCode, string) {
	var ce ws.CloseError
	if errors.As(err, &ce) {
		switch ce.Code {
		case ws.StatusNoStatusRcvd, ws.StatusAbnormalClosure, ws.StatusTLSHandshake:
		default:
			return ce.Code, ce.Reason
		}
	}
	return ws.StatusGoingAway, ""
}
