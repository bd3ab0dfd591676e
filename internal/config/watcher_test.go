package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// testCallback captures change notifications for assertions.
type testCallback struct {
	mu      sync.Mutex
	paths   []string
	callsCh chan struct{}
}

func newTestCallback() *testCallback {
	return &testCallback{callsCh: make(chan struct{}, 100)}
}

func (tc *testCallback) fn(path string) {
	tc.mu.Lock()
	tc.paths = append(tc.paths, path)
	tc.mu.Unlock()
	tc.callsCh <- struct{}{}
}

func (tc *testCallback) waitForCall(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-tc.callsCh:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for callback")
	}
}

func (tc *testCallback) count() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.paths)
}

func (tc *testCallback) last() string {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.paths[len(tc.paths)-1]
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// startWatcher runs a watcher for paths until the test ends.
func startWatcher(t *testing.T, paths []string, cb *testCallback, debounce time.Duration) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	w := NewWatcher(paths, cb.fn, logger, WithDebounce(debounce))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Run() returned error: %v", err)
		}
	})

	// Give watcher time to start
	time.Sleep(100 * time.Millisecond)
}

const viteConfigTS = "export default { base: '/vite/' }\n"

func TestWatcher_FileModificationTriggersCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vite.config.ts")
	writeFile(t, path, viteConfigTS)

	cb := newTestCallback()
	startWatcher(t, []string{path}, cb, 50*time.Millisecond)

	writeFile(t, path, "export default { base: '/assets/' }\n")
	cb.waitForCall(t, 2*time.Second)

	if got := cb.last(); got != path {
		t.Errorf("callback path = %q, want %q", got, path)
	}
}

func TestWatcher_DebounceRapidWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vite.config.ts")
	writeFile(t, path, viteConfigTS)

	cb := newTestCallback()
	startWatcher(t, []string{path}, cb, 100*time.Millisecond)

	// Rapid writes — should debounce to one callback
	for i := 0; i < 3; i++ {
		writeFile(t, path, viteConfigTS)
		time.Sleep(20 * time.Millisecond)
	}
	cb.waitForCall(t, 2*time.Second)

	// Wait a bit more to confirm no extra callbacks fire
	time.Sleep(300 * time.Millisecond)
	if count := cb.count(); count != 1 {
		t.Errorf("expected exactly 1 callback (debounced), got %d", count)
	}
}

func TestWatcher_FileCreatedAfterStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devproxy.yaml")

	cb := newTestCallback()
	startWatcher(t, []string{path}, cb, 50*time.Millisecond)

	writeFile(t, path, "debug: true\n")
	cb.waitForCall(t, 2*time.Second)
	if got := cb.last(); got != path {
		t.Errorf("callback path = %q, want %q", got, path)
	}
}

func TestWatcher_AtomicRenameTriggersCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vite.config.ts")
	writeFile(t, path, viteConfigTS)

	cb := newTestCallback()
	startWatcher(t, []string{path}, cb, 50*time.Millisecond)

	// Simulate editor atomic save: write temp file, then rename over target.
	tmpPath := filepath.Join(dir, "vite.config.ts.tmp")
	writeFile(t, tmpPath, viteConfigTS)
	if err := os.Rename(tmpPath, path); err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	cb.waitForCall(t, 2*time.Second)
	if got := cb.last(); got != path {
		t.Errorf("callback path = %q, want %q", got, path)
	}
}

func TestWatcher_IgnoresUnwatchedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vite.config.ts")
	writeFile(t, path, viteConfigTS)

	cb := newTestCallback()
	startWatcher(t, []string{path}, cb, 50*time.Millisecond)

	writeFile(t, filepath.Join(dir, "package.json"), "{}")
	time.Sleep(300 * time.Millisecond)
	if count := cb.count(); count != 0 {
		t.Errorf("expected no callbacks for unrelated files, got %d", count)
	}
}

func TestWatcher_MultipleFilesReportedSeparately(t *testing.T) {
	viteDir, settingsDir := t.TempDir(), t.TempDir()
	vitePath := filepath.Join(viteDir, "vite.config.ts")
	settingsPath := filepath.Join(settingsDir, "devproxy.yaml")
	writeFile(t, vitePath, viteConfigTS)
	writeFile(t, settingsPath, "debug: false\n")

	cb := newTestCallback()
	startWatcher(t, []string{vitePath, settingsPath, ""}, cb, 50*time.Millisecond)

	writeFile(t, vitePath, viteConfigTS)
	writeFile(t, settingsPath, "debug: true\n")
	cb.waitForCall(t, 2*time.Second)
	cb.waitForCall(t, 2*time.Second)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	seen := map[string]bool{}
	for _, p := range cb.paths {
		seen[p] = true
	}
	if !seen[vitePath] || !seen[settingsPath] {
		t.Errorf("callbacks = %v, want both files", cb.paths)
	}
}

func TestWatcher_ContextCancellationReturnsNil(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vite.config.ts")
	writeFile(t, path, viteConfigTS)

	w := NewWatcher([]string{path}, func(string) {}, nil, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() should return nil on context cancel, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

func TestWatcher_MissingDirectoryFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "vite.config.ts")
	w := NewWatcher([]string{path}, func(string) {}, nil)
	if err := w.Run(context.Background()); err == nil {
		t.Error("expected error watching a missing directory")
	}
}
