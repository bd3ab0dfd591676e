//go:build unix

package devserver

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// spawn starts command through the shell in its own process group with
// stdout and stderr appended to logPath. The process is not tied to the
// caller's lifetime; a background Wait only reaps it.
func spawn(command, dir, logPath string) (int, error) {
	logFile, err := openLogFile(logPath)
	if err != nil {
		return 0, err
	}
	defer logFile.Close()

	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Dir = dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %q: %w", command, err)
	}
	go func() { _ = cmd.Wait() }()

	return cmd.Process.Pid, nil
}

func terminateGroup(pid int, grace time.Duration) error {
	if _, err := unix.Getpgid(pid); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return os.ErrProcessDone
		}
		return fmt.Errorf("getpgid: %w", err)
	}

	// Processes we spawned lead their own group. A PID file written by
	// something else may not, so fall back to signalling the PID alone.
	if err := unix.Kill(-pid, unix.SIGTERM); errors.Is(err, unix.ESRCH) {
		_ = unix.Kill(pid, unix.SIGTERM)
	}
	time.Sleep(grace)
	if err := unix.Kill(-pid, unix.SIGKILL); errors.Is(err, unix.ESRCH) {
		_ = unix.Kill(pid, unix.SIGKILL)
	}
	time.Sleep(settleDelay)
	return nil
}
