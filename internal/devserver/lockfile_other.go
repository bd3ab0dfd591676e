//go:build !unix

package devserver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// lockFile falls back to exclusive creation where flock is unavailable. A
// crashed holder leaves the file behind; callers then only poll.
type lockFile struct {
	path string
	file *os.File
}

func tryLock(path string) (*lockFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil, errLockHeld
	}
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return &lockFile{path: path, file: f}, nil
}

func (l *lockFile) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	closeErr := l.file.Close()
	l.file = nil
	removeErr := os.Remove(l.path)
	if errors.Is(removeErr, os.ErrNotExist) {
		removeErr = nil
	}
	return errors.Join(closeErr, removeErr)
}
