package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// hopHeaders are connection-scoped and never forwarded; the Go transport
// manages its own connection to the dev server.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func isHopHeader(key string) bool {
	for _, h := range hopHeaders {
		if strings.EqualFold(h, key) {
			return true
		}
	}
	return false
}

// forwardHeaders rebuilds the inbound headers for the dev server with
// canonical (title-case) keys and an extended X-Forwarded-For chain.
func forwardHeaders(r *http.Request) http.Header {
	out := make(http.Header, len(r.Header)+1)
	for k, vv := range r.Header {
		if isHopHeader(k) {
			continue
		}
		ck := http.CanonicalHeaderKey(k)
		out[ck] = append(out[ck], vv...)
	}
	out.Set("X-Forwarded-For", forwardedFor(r))
	return out
}

// forwardedFor appends the immediate caller to any existing X-Forwarded-For chain.
func forwardedFor(r *http.Request) string {
	var chain []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(v, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				chain = append(chain, hop)
			}
		}
	}
	if ip := remoteIP(r.RemoteAddr); ip != "" {
		chain = append(chain, ip)
	}
	return strings.Join(chain, ", ")
}

func remoteIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// copyResponseHeaders copies backend headers with canonical keys. The
// response is re-framed by this server, so Transfer-Encoding is dropped.
func copyResponseHeaders(dst, src http.Header) {
	for k, vv := range src {
		ck := http.CanonicalHeaderKey(k)
		if ck == "Transfer-Encoding" {
			continue
		}
		dst[ck] = append(dst[ck], vv...)
	}
}

// writeBackendError writes the synthetic response used whenever the dev
// server cannot be reached.
func writeBackendError(w http.ResponseWriter, msg string, err error) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, "%s: %v", msg, err)
}
