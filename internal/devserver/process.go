package devserver

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessHandle identifies an externally running dev server. It is rebuilt
// from the PID file whenever needed and never shared between requests.
type ProcessHandle struct {
	PID      int
	LockFile string
	PIDFile  string
	LogFile  string
}

// IsAlive reports whether a process with the handle's PID exists.
func (h ProcessHandle) IsAlive() bool {
	if h.PID <= 0 {
		return false
	}
	exists, err := process.PidExists(int32(h.PID))
	return err == nil && exists
}

// Terminate signals the whole process group gracefully, waits grace, then
// kills whatever is left. Returns os.ErrProcessDone if the PID is not running.
func (h ProcessHandle) Terminate(grace time.Duration) error {
	if h.PID <= 0 {
		return os.ErrProcessDone
	}
	return terminateGroup(h.PID, grace)
}

// taskkillArgs targets the whole tree under pid, so the dev server started by
// the shell goes down with it.
func taskkillArgs(pid int, force bool) []string {
	args := []string{"/T", "/PID", strconv.Itoa(pid)}
	if force {
		args = append([]string{"/F"}, args...)
	}
	return args
}

// settleDelay gives the kernel a moment to reap a killed group.
const settleDelay = 200 * time.Millisecond

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(string(bytes.TrimSpace(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file %s: %w", path, err)
	}
	return pid, nil
}

func writePIDFile(path string, pid int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644)
}

func removePIDFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
