// Package runlock guards sync runs across processes with an advisory file lock.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrHeld is returned when another process holds the lock.
var ErrHeld = errors.New("run lock held by another process")

// Lock names a lock file. The zero value and an empty path never block.
type Lock struct {
	path string
}

// New returns a Lock on path.
func New(path string) *Lock {
	return &Lock{path: path}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// TryAcquire takes the lock without waiting and returns its release func.
func (l *Lock) TryAcquire() (func() error, error) {
	if l == nil || l.path == "" {
		return func() error { return nil }, nil
	}
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create lock dir: %w", err)
		}
	}
	fl := flock.New(l.path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHeld, l.path)
	}
	return fl.Unlock, nil
}
