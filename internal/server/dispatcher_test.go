package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rathix/vite-devproxy/internal/viteconfig"
)

type fakeRunner struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRunner) EnsureRunning(context.Context) error {
	f.calls.Add(1)
	return f.err
}

// pathRecorder responds with its name and the path it received.
func pathRecorder(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(name + ":" + r.URL.Path))
	})
}

// hostApp answers with its own status, headers and body.
func hostApp() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Host-App", "dashboard")
		w.Header().Add("Set-Cookie", "session=abc; Path=/")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("app:" + r.URL.Path))
	})
}

func newRoutingRequest(path string, upgrade bool) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if upgrade {
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
	}
	return req
}

func TestDispatcherRouting(t *testing.T) {
	tests := []struct {
		name        string
		prefix      string
		path        string
		upgrade     bool
		wantBody    string
		wantEnsured bool
	}{
		{"host route passes through", "", "/dashboard", false, "app:/dashboard", false},
		{"vite asset proxied", "", "/vite/main.js", false, "http:/vite/main.js", true},
		{"base matched anywhere in path", "", "/assets/vite/logo.svg", false, "http:/assets/vite/logo.svg", true},
		{"upgrade goes to websocket", "", "/vite/", true, "ws:/vite/", true},
		{"upgrade outside base passes through", "", "/cable", true, "app:/cable", false},
		{"mounted asset stripped", "/shop", "/shop/vite/main.js", false, "http:/vite/main.js", true},
		{"mounted host route untouched", "/shop", "/shop/dashboard", false, "app:/shop/dashboard", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{}
			d := NewDispatcher("/vite/", runner, pathRecorder("http"), pathRecorder("ws"), WithMountPrefix(tc.prefix))
			h := d.Wrap(hostApp())

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, newRoutingRequest(tc.path, tc.upgrade))

			if rec.Body.String() != tc.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tc.wantBody)
			}
			if ensured := runner.calls.Load() > 0; ensured != tc.wantEnsured {
				t.Errorf("EnsureRunning called = %v, want %v", ensured, tc.wantEnsured)
			}

			if !strings.HasPrefix(tc.wantBody, "app:") {
				return
			}
			direct := httptest.NewRecorder()
			hostApp().ServeHTTP(direct, newRoutingRequest(tc.path, tc.upgrade))
			if rec.Code != direct.Code {
				t.Errorf("status = %d, want %d from the host app", rec.Code, direct.Code)
			}
			if !reflect.DeepEqual(rec.Header(), direct.Header()) {
				t.Errorf("headers = %v, want %v from the host app", rec.Header(), direct.Header())
			}
		})
	}
}

func TestDispatcherForwardsWhenStartFails(t *testing.T) {
	runner := &fakeRunner{err: errors.New("spawn failed")}
	d := NewDispatcher("/vite/", runner, pathRecorder("http"), pathRecorder("ws"))

	rec := httptest.NewRecorder()
	d.Wrap(pathRecorder("app")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vite/main.js", nil))

	if rec.Body.String() != "http:/vite/main.js" {
		t.Errorf("body = %q, want request forwarded anyway", rec.Body.String())
	}
}

func TestDispatcherNilRunner(t *testing.T) {
	d := NewDispatcher("/vite/", nil, pathRecorder("http"), pathRecorder("ws"))
	rec := httptest.NewRecorder()
	d.Wrap(pathRecorder("app")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vite/main.js", nil))
	if rec.Body.String() != "http:/vite/main.js" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestDevProxyUnreachableDevServer(t *testing.T) {
	runner := &fakeRunner{}
	p, err := NewDevProxy(testConfig(t, "127.0.0.1", closedPort(t), "/vite/"), runner)
	if err != nil {
		t.Fatalf("NewDevProxy: %v", err)
	}
	h := p.Middleware(hostApp())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rec.Body.String() != "app:/dashboard" || runner.calls.Load() != 0 {
		t.Errorf("host route: body %q, ensure calls %d", rec.Body.String(), runner.calls.Load())
	}
	if rec.Code != http.StatusTeapot || rec.Header().Get("X-Host-App") != "dashboard" {
		t.Errorf("host route: status %d, headers %v", rec.Code, rec.Header())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vite/main.js", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Error communicating") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if runner.calls.Load() != 1 {
		t.Errorf("EnsureRunning calls = %d, want 1", runner.calls.Load())
	}
}

func TestNewDevProxyRequiresBase(t *testing.T) {
	_, err := NewDevProxy(viteconfig.Config{}, nil)
	if !errors.Is(err, viteconfig.ErrMissingBase) {
		t.Errorf("err = %v, want ErrMissingBase", err)
	}
}
