package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	ws "nhooyr.io/websocket"
)

func TestRegistry_AddRemove(t *testing.T) {
	reg := NewRegistry(slog.Default())
	client, server := &Conn{}, &Conn{}

	p := reg.Add(client, server)
	if p.ID == "" {
		t.Fatal("expected a generated pair ID")
	}
	if got := reg.Count(); got != 1 {
		t.Errorf("expected count 1, got %d", got)
	}
	if got, ok := reg.Get(p.ID); !ok || got != p {
		t.Errorf("Get(%q) = %v, %v", p.ID, got, ok)
	}

	removed, ok := reg.Remove(p.ID)
	if !ok || removed != p {
		t.Fatalf("Remove(%q) = %v, %v", p.ID, removed, ok)
	}
	if got := reg.Count(); got != 0 {
		t.Errorf("expected count 0 after remove, got %d", got)
	}
	if reg.References(client) || reg.References(server) {
		t.Error("registry still references a removed pair")
	}
	if _, ok := reg.Remove(p.ID); ok {
		t.Error("second Remove should report missing pair")
	}
	if _, ok := reg.RemoveByServer(server); ok {
		t.Error("reverse index should be cleared by Remove")
	}
}

func TestRegistry_RemoveByServer(t *testing.T) {
	reg := NewRegistry(slog.Default())
	a := reg.Add(&Conn{}, &Conn{})
	b := reg.Add(&Conn{}, &Conn{})
	if a.ID == b.ID {
		t.Fatal("pair IDs must be unique")
	}

	removed, ok := reg.RemoveByServer(b.Server)
	if !ok || removed != b {
		t.Fatalf("RemoveByServer = %v, %v; want pair %s", removed, ok, b.ID)
	}
	if reg.References(b.Client) || reg.References(b.Server) {
		t.Error("registry still references the removed pair")
	}
	if !reg.References(a.Client) || !reg.References(a.Server) {
		t.Error("unrelated pair should remain registered")
	}
	if got := reg.Count(); got != 1 {
		t.Errorf("expected count 1, got %d", got)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry(slog.Default())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := reg.Add(&Conn{}, &Conn{})
			if i%2 == 0 {
				reg.Remove(p.ID)
			} else {
				reg.RemoveByServer(p.Server)
			}
		}()
	}
	wg.Wait()
	if got := reg.Count(); got != 0 {
		t.Errorf("expected empty registry, got %d", got)
	}
}

// dialPair returns both ends of a real WebSocket connection: the accepted
// server-side conn and the dialed client-side conn, each with a read loop.
func dialPair(t *testing.T) (accepted, dialed *Conn) {
	t.Helper()
	acceptedCh := make(chan *Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := Accept(w, r)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		conn := WrapConn(context.Background(), c, WithPingInterval(0))
		acceptedCh <- conn
		for {
			if _, _, err := conn.Read(context.Background()); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, "ws"+srv.URL[4:])
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	dialed = WrapConn(context.Background(), c, WithPingInterval(0))
	go func() {
		for {
			if _, _, err := dialed.Read(context.Background()); err != nil {
				return
			}
		}
	}()

	select {
	case accepted = <-acceptedCh:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for accept")
	}
	t.Cleanup(func() {
		accepted.ForceClose()
		dialed.ForceClose()
	})
	return accepted, dialed
}

func TestRegistry_CloseAll(t *testing.T) {
	reg := NewRegistry(slog.Default())
	const numPairs = 3

	pairs := make([]*Pair, 0, numPairs)
	for i := 0; i < numPairs; i++ {
		client, _ := dialPair(t)
		_, server := dialPair(t)
		pairs = append(pairs, reg.Add(client, server))
	}
	if got := reg.Count(); got != numPairs {
		t.Fatalf("expected %d pairs, got %d", numPairs, got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reg.CloseAll(ctx)

	if got := reg.Count(); got != 0 {
		t.Errorf("expected empty registry after CloseAll, got %d", got)
	}
	for _, p := range pairs {
		if p.Client.State() != StateClosed || p.Server.State() != StateClosed {
			t.Errorf("pair %s not closed: client=%v server=%v", p.ID, p.Client.State(), p.Server.State())
		}
	}
}

func TestRegistry_CloseAllEmpty(t *testing.T) {
	reg := NewRegistry(slog.Default())
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	reg.CloseAll(ctx)
}

func TestNewRegistry_NilLogger(t *testing.T) {
	reg := NewRegistry(nil)
	if reg.log == nil {
		t.Fatal("expected non-nil logger when nil passed to NewRegistry")
	}
}

func TestConn_StateTransitions(t *testing.T) {
	accepted, dialed := dialPair(t)
	if !accepted.IsOpen() || !dialed.IsOpen() {
		t.Fatal("new connections should be open")
	}

	if err := dialed.Close(ws.StatusNormalClosure, "bye"); err != nil {
		t.Logf("close: %v", err)
	}
	if got := dialed.State(); got != StateClosed {
		t.Errorf("closer state = %v, want closed", got)
	}

	deadline := time.Now().Add(5 * time.Second)
	for accepted.State() != StateClosed {
		if time.Now().After(deadline) {
			t.Fatalf("peer state = %v, want closed once its read loop ends", accepted.State())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
