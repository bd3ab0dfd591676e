//go:build unix

package devserver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// lockFile is an exclusive advisory flock on a well-known path.
type lockFile struct {
	path string
	file *os.File
}

// maxLockAttempts bounds retries when the lock file is unlinked between our
// open and flock calls by a holder that just finished.
const maxLockAttempts = 3

// tryLock opens (or creates) path and takes a non-blocking exclusive flock.
// It returns errLockHeld when another descriptor owns the lock.
func tryLock(path string) (*lockFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	for i := 0; i < maxLockAttempts; i++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open lock file: %w", err)
		}

		if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			f.Close()
			if errors.Is(err, unix.EWOULDBLOCK) {
				return nil, errLockHeld
			}
			return nil, fmt.Errorf("flock %s: %w", path, err)
		}

		// The previous holder removes the file before unlocking. If that
		// happened after our open, we locked an orphaned inode.
		if sameFile(f, path) {
			// Stamp the claim time; a file left by a crashed holder is older.
			now := time.Now()
			_ = os.Chtimes(path, now, now)
			return &lockFile{path: path, file: f}, nil
		}
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}
	return nil, errLockHeld
}

func sameFile(f *os.File, path string) bool {
	held, err := f.Stat()
	if err != nil {
		return false
	}
	current, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(held, current)
}

// Release removes the lock file while still holding the lock, then unlocks
// and closes it. Safe to call more than once.
func (l *lockFile) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	var errs []error
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, fmt.Errorf("remove lock file: %w", err))
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		errs = append(errs, fmt.Errorf("release lock: %w", err))
	}
	if err := l.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close lock file: %w", err))
	}
	l.file = nil
	return errors.Join(errs...)
}
