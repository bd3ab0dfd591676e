package devserver

import (
	"os"
	"time"
)

// State is the dev server lifecycle state, recomputed on every query.
type State int

const (
	NotRunning State = iota
	Starting
	Running
)

func (s State) String() string {
	switch s {
	case NotRunning:
		return "not running"
	case Starting:
		return "starting"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of the dev server.
type Status struct {
	State State
	// PID is the recorded process ID, or 0 when there is no PID file.
	PID  int
	Addr string
}

// Status probes the port, the lock file and the PID file. A process that is
// alive but not yet serving, or a fresh lock file, reports Starting. The lock
// itself is never taken so a concurrent EnsureRunning is not disturbed.
func (s *Supervisor) Status() Status {
	st := Status{State: NotRunning, Addr: s.cfg.Addr}
	if pid, err := readPIDFile(s.cfg.PIDFile); err == nil {
		st.PID = pid
	}

	if s.portOpen() {
		st.State = Running
		return st
	}
	if st.PID > 0 && s.handle(st.PID).IsAlive() {
		st.State = Starting
		return st
	}
	if s.lockFresh() {
		st.State = Starting
	}
	return st
}

// lockFresh reports whether the lock file exists and was claimed within the
// time a spawner may hold it.
func (s *Supervisor) lockFresh() bool {
	fi, err := os.Stat(s.cfg.LockFile)
	if err != nil {
		return false
	}
	return time.Since(fi.ModTime()) <= s.spawnWindow()
}

// spawnWindow bounds how long one EnsureRunning holds the lock: stale
// cleanup plus the port polling.
func (s *Supervisor) spawnWindow() time.Duration {
	return s.termGrace + settleDelay + time.Duration(s.pollAttempts)*(s.pollInterval+s.probeTimeout)
}
