package devserver

import (
	"errors"
	"fmt"
)

// errLockHeld means another caller owns the spawn lock.
var errLockHeld = errors.New("dev server lock held by another process")

// ProcessError describes a non-fatal failure managing the dev server process.
type ProcessError struct {
	Op  string
	PID int
	Err error
}

func (e *ProcessError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("dev server %s (pid %d): %v", e.Op, e.PID, e.Err)
	}
	return fmt.Sprintf("dev server %s: %v", e.Op, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }
