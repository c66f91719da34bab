package store

import (
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireLock_ExcludesSecondAcquirer(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	l1, err := acquireLock(path, time.Second)
	if err != nil {
		t.Fatalf("first acquireLock() error = %v", err)
	}

	start := time.Now()
	_, err = acquireLock(path, 100*time.Millisecond)
	if err == nil {
		t.Fatal("expected second acquireLock() to time out while first holds the lock")
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("acquireLock returned after %v, want at least the timeout", elapsed)
	}

	if err := l1.unlock(); err != nil {
		t.Fatalf("unlock() error = %v", err)
	}

	l2, err := acquireLock(path, time.Second)
	if err != nil {
		t.Fatalf("acquireLock() after release error = %v", err)
	}
	_ = l2.unlock()
}
