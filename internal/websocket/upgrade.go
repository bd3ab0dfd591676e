package websocket

import (
	"context"
	"net/http"
	"strings"

	ws "nhooyr.io/websocket"
)

// MaxMessageSize caps a single relayed message.
const MaxMessageSize = 32 << 20

// IsUpgradeRequest reports whether r asks to switch to the WebSocket protocol.
func IsUpgradeRequest(r *http.Request) bool {
	return headerContainsToken(r.Header, "Connection", "upgrade") &&
		headerContainsToken(r.Header, "Upgrade", "websocket")
}

func headerContainsToken(h http.Header, key, token string) bool {
	for _, v := range h.Values(key) {
		for _, t := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(t), token) {
				return true
			}
		}
	}
	return false
}

// Accept upgrades an HTTP request to a WebSocket connection offering the
// given sub-protocols. Origin checks are skipped; the proxy shares the host
// application's origin.
func Accept(w http.ResponseWriter, r *http.Request, subprotocols ...string) (*ws.Conn, error) {
	c, err := ws.Accept(w, r, &ws.AcceptOptions{
		Subprotocols:       subprotocols,
		InsecureSkipVerify: true,
	})
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(MaxMessageSize)
	return c, nil
}

// Dial opens a client WebSocket connection to url offering the given sub-protocols.
func Dial(ctx context.Context, url string, subprotocols ...string) (*ws.Conn, error) {
	c, _, err := ws.Dial(ctx, url, &ws.DialOptions{Subprotocols: subprotocols})
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(MaxMessageSize)
	return c, nil
}
