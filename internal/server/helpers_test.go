package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/rathix/vite-devproxy/internal/viteconfig"
)

func startLocalHTTPServer(t *testing.T, h http.Handler) *httptest.Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping network-bound test: cannot bind loopback socket: %v", err)
	}
	srv := httptest.NewUnstartedServer(h)
	srv.Listener = ln
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}

// viteConfigFor builds a resolved Vite config pointing at srv with the given base.
func viteConfigFor(t *testing.T, srv *httptest.Server, base string) viteconfig.Config {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return testConfig(t, u.Hostname(), u.Port(), base)
}

func testConfig(t *testing.T, host, port, base string) viteconfig.Config {
	t.Helper()
	p, err := strconv.Atoi(port)
	if err != nil {
		t.Fatal(err)
	}
	raw := `{"base":` + strconv.Quote(base) + `,"server":{"host":` + strconv.Quote(host) + `,"port":` + strconv.Itoa(p) + `}}`
	cfg, err := viteconfig.Parse([]byte(raw), false)
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	return cfg
}

// closedPort returns a loopback port with nothing listening on it.
func closedPort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping network-bound test: cannot bind loopback socket: %v", err)
	}
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()
	return port
}
