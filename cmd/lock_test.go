package cmd

import (
	"testing"

	"github.com/gofrs/flock"
)

func TestAcquireLock_ExcludesOtherHolders(t *testing.T) {
	ok, err := AcquireLock()
	if err != nil || !ok {
		t.Fatalf("AcquireLock = %v, %v", ok, err)
	}
	defer func() { _ = ReleaseLock() }()

	// Re-entrant within the process
	if ok, err := AcquireLock(); err != nil || !ok {
		t.Errorf("second AcquireLock = %v, %v", ok, err)
	}

	other := flock.New(lockPath())
	locked, err := other.TryLock()
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if locked {
		_ = other.Unlock()
		t.Fatal("another holder acquired the instance lock")
	}

	if err := ReleaseLock(); err != nil {
		t.Fatalf("ReleaseLock: %v", err)
	}
	locked, err = other.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock after release = %v, %v", locked, err)
	}
	_ = other.Unlock()
}

func TestReleaseLock_WithoutAcquire(t *testing.T) {
	if err := ReleaseLock(); err != nil {
		t.Errorf("ReleaseLock without lock: %v", err)
	}
}
