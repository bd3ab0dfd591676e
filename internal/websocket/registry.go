package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	ws "nhooyr.io/websocket"
)

// Pair is one proxied connection: the browser-facing side and the dev server side.
type Pair struct {
	ID     string
	Client *Conn
	Server *Conn
}

// PairRegistry tracks live tunnel pairs by an opaque ID, with a reverse index
// from the server-side connection so server-initiated closes avoid a scan.
type PairRegistry struct {
	mu       sync.Mutex
	pairs    map[string]*Pair
	byServer map[*Conn]string
	log      *slog.Logger
}

// NewRegistry creates a new PairRegistry.
func NewRegistry(logger *slog.Logger) *PairRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PairRegistry{
		pairs:    make(map[string]*Pair),
		byServer: make(map[*Conn]string),
		log:      logger,
	}
}

// Add registers a new pair under a freshly generated ID.
func (r *PairRegistry) Add(client, server *Conn) *Pair {
	p := &Pair{ID: uuid.NewString(), Client: client, Server: server}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs[p.ID] = p
	r.byServer[server] = p.ID
	return p
}

// Get returns the pair with the given ID.
func (r *PairRegistry) Get(id string) (*Pair, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pairs[id]
	return p, ok
}

// Remove deletes and returns the pair with the given ID.
func (r *PairRegistry) Remove(id string) (*Pair, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pairs[id]
	if !ok {
		return nil, false
	}
	delete(r.pairs, id)
	delete(r.byServer, p.Server)
	return p, true
}

// RemoveByServer deletes and returns the pair whose server side is server.
func (r *PairRegistry) RemoveByServer(server *Conn) (*Pair, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byServer[server]
	if !ok {
		return nil, false
	}
	p := r.pairs[id]
	delete(r.pairs, id)
	delete(r.byServer, server)
	return p, p != nil
}

// References reports whether any registered pair holds c on either side.
func (r *PairRegistry) References(c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byServer[c]; ok {
		return true
	}
	for _, p := range r.pairs {
		if p.Client == c {
			return true
		}
	}
	return false
}

// Count returns the number of live pairs.
func (r *PairRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pairs)
}

// CloseAll sends a close frame on both sides of every registered pair and
// empties the registry. It waits for the closes to complete or for the
// context to expire.
func (r *PairRegistry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	snapshot := make([]*Pair, 0, len(r.pairs))
	for _, p := range r.pairs {
		snapshot = append(snapshot, p)
	}
	r.pairs = make(map[string]*Pair)
	r.byServer = make(map[*Conn]string)
	r.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}

	r.log.Info("closing all WebSocket tunnels", slog.Int("count", len(snapshot)))

	var wg sync.WaitGroup
	for _, p := range snapshot {
		for _, c := range []*Conn{p.Client, p.Server} {
			wg.Add(1)
			go func(c *Conn) {
				defer wg.Done()
				_ = c.CloseWithContext(ctx, ws.StatusGoingAway, "server shutting down")
			}(c)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.log.Info("all WebSocket tunnels closed")
	case <-ctx.Done():
		r.log.Warn("shutdown timeout reached, some WebSocket tunnels may not have closed cleanly")
	}
}
