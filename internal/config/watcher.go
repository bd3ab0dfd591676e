package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is invoked with the cleaned path of a watched file after it
// was written, created or replaced.
type ChangeCallback func(path string)

// Watcher monitors a set of files for changes. The resolved Vite config is
// cached for the process lifetime, so callers typically only report that a
// restart is needed.
type Watcher struct {
	paths    map[string]struct{}
	callback ChangeCallback
	logger   *slog.Logger
	debounce time.Duration
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce duration. Default is 1 second.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a watcher for paths. Files that do not exist yet are
// reported once they are created.
func NewWatcher(paths []string, callback ChangeCallback, logger *slog.Logger, opts ...WatcherOption) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		paths:    make(map[string]struct{}, len(paths)),
		callback: callback,
		logger:   logger,
		debounce: time.Second,
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		w.paths[filepath.Clean(p)] = struct{}{}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the parent directories of the configured files and invokes the
// callback on debounced write/create/rename events, once per file. It blocks
// until ctx is cancelled, then returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	// Watch parent directories to catch atomic write patterns (vim, VS Code).
	dirs := make(map[string]struct{})
	for p := range w.paths {
		dir := filepath.Dir(p)
		if _, seen := dirs[dir]; seen {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			return err
		}
		dirs[dir] = struct{}{}
	}

	changed := make(chan string, len(w.paths))
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(event.Name)
			if _, watched := w.paths[name]; !watched {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if t, ok := timers[name]; ok {
				t.Stop()
			}
			timers[name] = time.AfterFunc(w.debounce, func() {
				select {
				case changed <- name:
				default:
				}
			})

		case name := <-changed:
			w.logger.Debug("watched file changed", slog.String("path", name))
			w.callback(name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}
