package ledger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"plarchive/internal/services"
)

// Lock is an advisory lock serializing writers of one ledger.
type Lock struct {
	path string
	lock *flock.Flock
}

// NewLock prepares a lock at path without acquiring it.
func NewLock(path string) *Lock {
	return &Lock{path: path, lock: flock.New(path)}
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Acquire takes the lock without waiting. ErrLedgerLocked is returned when
// another process holds it.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return services.Wrap(services.ErrLedgerLocked, "ledger", "lock", "another plarchive process holds "+l.path, nil)
	}
	return nil
}

// Release drops the lock if held.
func (l *Lock) Release() error {
	if !l.lock.Locked() {
		return nil
	}
	return l.lock.Unlock()
}
