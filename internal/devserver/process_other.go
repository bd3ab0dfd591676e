//go:build !unix

package devserver

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"
)

func spawn(command, dir, logPath string) (int, error) {
	logFile, err := openLogFile(logPath)
	if err != nil {
		return 0, err
	}
	defer logFile.Close()

	cmd := exec.Command("cmd", "/C", command)
	cmd.Dir = dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %q: %w", command, err)
	}
	go func() { _ = cmd.Wait() }()

	return cmd.Process.Pid, nil
}

// terminateGroup asks the process tree rooted at pid to exit, waits grace,
// then kills the tree. Without taskkill only pid itself can be killed.
func terminateGroup(pid int, grace time.Duration) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return os.ErrProcessDone
	}
	if runtime.GOOS != "windows" {
		time.Sleep(grace)
		if err := p.Kill(); err != nil {
			return err
		}
		time.Sleep(settleDelay)
		return nil
	}

	_ = exec.Command("taskkill", taskkillArgs(pid, false)...).Run()
	time.Sleep(grace)
	if (ProcessHandle{PID: pid}).IsAlive() {
		if out, err := exec.Command("taskkill", taskkillArgs(pid, true)...).CombinedOutput(); err != nil {
			return fmt.Errorf("taskkill %d: %w: %s", pid, err, bytes.TrimSpace(out))
		}
	}
	time.Sleep(settleDelay)
	return nil
}
