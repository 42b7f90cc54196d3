package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/tubeq/tubeq/internal/config"
)

var (
	instanceLock   *flock.Flock
	instanceLockMu sync.Mutex
)

func lockPath() string {
	return filepath.Join(config.GetRuntimeDir(), "tubeq.lock")
}

// AcquireLock takes the single-instance lock. It reports false when another
// process already holds it.
func AcquireLock() (bool, error) {
	instanceLockMu.Lock()
	defer instanceLockMu.Unlock()

	if instanceLock != nil {
		return true, nil
	}
	if err := os.MkdirAll(config.GetRuntimeDir(), 0o755); err != nil {
		return false, fmt.Errorf("create runtime dir: %w", err)
	}

	lock := flock.New(lockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("lock %s: %w", lockPath(), err)
	}
	if !locked {
		return false, nil
	}
	instanceLock = lock
	return true, nil
}

// ReleaseLock drops the lock taken by AcquireLock.
func ReleaseLock() error {
	instanceLockMu.Lock()
	defer instanceLockMu.Unlock()

	if instanceLock == nil {
		return nil
	}
	err := instanceLock.Unlock()
	instanceLock = nil
	return err
}
