package devserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultPollAttempts is how many times the port is probed while waiting for startup.
	DefaultPollAttempts = 20
	// DefaultPollInterval is the delay between startup probes.
	DefaultPollInterval = 200 * time.Millisecond
	// DefaultTermGrace is the wait between the graceful and forceful group signals.
	DefaultTermGrace = 500 * time.Millisecond
)

// Config describes the dev server command and its files.
type Config struct {
	// Command is run through the shell. Empty disables process management.
	Command string
	// Dir is the application root the command runs in.
	Dir string
	// Addr is the host:port the dev server listens on.
	Addr string

	LockFile string
	PIDFile  string
	LogFile  string
}

// DefaultLockFile returns the lock file path under an application root.
func DefaultLockFile(root string) string {
	return filepath.Join(root, "tmp", "vite_dev_server.lock")
}

// DefaultPIDFile returns the PID file path under an application root.
func DefaultPIDFile(root string) string {
	return filepath.Join(root, "tmp", "vite_dev_server.pid")
}

// DefaultLogFile returns the dev server log path under an application root.
func DefaultLogFile(root string) string {
	return filepath.Join(root, "log", "vite_dev_server.log")
}

// Option is a functional option for the Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger for the supervisor.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// WithProbeTimeout sets the connect timeout of a single port probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.probeTimeout = d }
}

// WithPolling sets how long to wait for the port after a spawn or while
// another process holds the lock.
func WithPolling(attempts int, interval time.Duration) Option {
	return func(s *Supervisor) {
		s.pollAttempts = attempts
		s.pollInterval = interval
	}
}

// WithTermGrace sets the wait between SIGTERM and SIGKILL.
func WithTermGrace(d time.Duration) Option {
	return func(s *Supervisor) { s.termGrace = d }
}

// Supervisor keeps exactly one dev server running across goroutines and OS
// processes. It holds no process state in memory; every call recomputes it
// from the port, the lock file and the PID file.
type Supervisor struct {
	cfg          Config
	logger       *slog.Logger
	probeTimeout time.Duration
	pollAttempts int
	pollInterval time.Duration
	termGrace    time.Duration
}

// NewSupervisor creates a Supervisor. Empty file paths default to the
// conventional locations under cfg.Dir.
func NewSupervisor(cfg Config, opts ...Option) *Supervisor {
	if cfg.LockFile == "" {
		cfg.LockFile = DefaultLockFile(cfg.Dir)
	}
	if cfg.PIDFile == "" {
		cfg.PIDFile = DefaultPIDFile(cfg.Dir)
	}
	if cfg.LogFile == "" {
		cfg.LogFile = DefaultLogFile(cfg.Dir)
	}
	s := &Supervisor{
		cfg:          cfg,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		probeTimeout: DefaultProbeTimeout,
		pollAttempts: DefaultPollAttempts,
		pollInterval: DefaultPollInterval,
		termGrace:    DefaultTermGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the resolved configuration.
func (s *Supervisor) Config() Config {
	return s.cfg
}

// EnsureRunning starts the dev server unless it is already serving. Only the
// caller holding the lock file spawns; every other caller polls the port for
// a bounded time. A dev server that never comes up is not an error: requests
// proceed and fail against the backend.
func (s *Supervisor) EnsureRunning(ctx context.Context) error {
	if s.cfg.Command == "" {
		return nil
	}
	if s.portOpen() {
		return nil
	}

	lock, err := tryLock(s.cfg.LockFile)
	if errors.Is(err, errLockHeld) {
		s.logger.Debug("another process is starting the dev server", slog.String("lock_file", s.cfg.LockFile))
		if !s.waitForPort(ctx) {
			s.logger.Warn("dev server did not come up while waiting on another process", slog.String("addr", s.cfg.Addr))
		}
		return nil
	}
	if err != nil {
		return &ProcessError{Op: "lock", Err: err}
	}
	defer func() {
		if err := lock.Release(); err != nil {
			s.logger.Warn("failed to release dev server lock", slog.String("error", err.Error()))
		}
	}()

	if s.portOpen() {
		return nil
	}
	return s.start(ctx)
}

func (s *Supervisor) start(ctx context.Context) error {
	s.cleanupStale()

	s.logger.Debug("launching dev server", slog.String("command", s.cfg.Command), slog.String("dir", s.cfg.Dir))
	pid, err := spawn(s.cfg.Command, s.cfg.Dir, s.cfg.LogFile)
	if err != nil {
		return &ProcessError{Op: "spawn", Err: err}
	}
	if err := writePIDFile(s.cfg.PIDFile, pid); err != nil {
		s.logger.Warn("failed to write dev server PID file", slog.Int("pid", pid), slog.String("error", err.Error()))
	}
	s.logger.Info("started dev server", slog.Int("pid", pid), slog.String("log_file", s.cfg.LogFile))

	if !s.waitForPort(ctx) {
		s.logger.Warn("dev server did not open its port in time",
			slog.Int("pid", pid), slog.String("addr", s.cfg.Addr))
	}
	return nil
}

// cleanupStale terminates a previously recorded dev server that is alive but
// not serving. The PID file is removed whatever happens.
func (s *Supervisor) cleanupStale() {
	pid, err := readPIDFile(s.cfg.PIDFile)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	defer func() {
		if err := removePIDFile(s.cfg.PIDFile); err != nil {
			s.logger.Debug("failed to remove PID file", slog.String("error", err.Error()))
		}
	}()
	if err != nil {
		s.logger.Debug("error checking old PID", slog.String("error", err.Error()))
		return
	}

	h := s.handle(pid)
	if !h.IsAlive() {
		return
	}
	s.logger.Debug("found running dev server", slog.Int("pid", pid))
	if s.portOpen() {
		return
	}
	s.terminate(h)
}

// Stop terminates the dev server recorded in the PID file, if any.
func (s *Supervisor) Stop(ctx context.Context) error {
	pid, err := readPIDFile(s.cfg.PIDFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &ProcessError{Op: "stop", Err: err}
	}
	if pid > 0 {
		s.terminate(s.handle(pid))
	}
	if err := removePIDFile(s.cfg.PIDFile); err != nil {
		return &ProcessError{Op: "stop", PID: pid, Err: err}
	}
	return nil
}

func (s *Supervisor) terminate(h ProcessHandle) {
	s.logger.Debug("killing dev server process group", slog.Int("pid", h.PID))
	err := h.Terminate(s.termGrace)
	if errors.Is(err, os.ErrProcessDone) {
		s.logger.Debug("dev server PID is not running", slog.Int("pid", h.PID))
		return
	}
	if err != nil {
		s.logger.Warn("failed to terminate dev server",
			slog.String("error", (&ProcessError{Op: "terminate", PID: h.PID, Err: err}).Error()))
	}
}

func (s *Supervisor) handle(pid int) ProcessHandle {
	return ProcessHandle{
		PID:      pid,
		LockFile: s.cfg.LockFile,
		PIDFile:  s.cfg.PIDFile,
		LogFile:  s.cfg.LogFile,
	}
}

func (s *Supervisor) portOpen() bool {
	return PortOpen(s.cfg.Addr, s.probeTimeout)
}

// waitForPort probes up to pollAttempts times, pollInterval apart.
func (s *Supervisor) waitForPort(ctx context.Context) bool {
	for i := 0; i < s.pollAttempts; i++ {
		if s.portOpen() {
			return true
		}
		if i == s.pollAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.pollInterval):
		}
	}
	return false
}
