// Package runlock serializes pipeline runs that would write the same
// artifacts. Locks are advisory flock(2) locks on a hidden file next to the
// artifacts, so they also exclude runs in other captioner processes. Lock
// files are left in place after release; deleting them would let two
// processes hold locks on different inodes for the same name.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// retryDelay is how often a blocked Acquire polls for the lock.
const retryDelay = 250 * time.Millisecond

// ErrLocked is returned by TryAcquire when another run holds the lock.
var ErrLocked = errors.New("artifacts locked by another run")

// Lock is a held run lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Release unlocks. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}

// FilePath returns the lock file used for base within dir.
func FilePath(dir, base string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, ".captioner-"+base+".lock")
}

// Acquire blocks until the lock for base in dir is held or ctx is done.
func Acquire(ctx context.Context, dir, base string) (*Lock, error) {
	path, err := prepare(dir, base)
	if err != nil {
		return nil, err
	}
	fl := flock.New(path)
	ok, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire run lock %s: %w", path, ErrLocked)
	}
	return &Lock{path: path, lock: fl}, nil
}

// TryAcquire takes the lock without waiting.
func TryAcquire(dir, base string) (*Lock, error) {
	path, err := prepare(dir, base)
	if err != nil {
		return nil, err
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire run lock %s: %w", path, ErrLocked)
	}
	return &Lock{path: path, lock: fl}, nil
}

func prepare(dir, base string) (string, error) {
	if base == "" {
		return "", errors.New("run lock: base name required")
	}
	path := FilePath(dir, base)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("run lock: ensure dir: %w", err)
	}
	return path, nil
}
