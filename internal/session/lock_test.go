package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReadPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coordinator.pid")

	if err := WritePID(path, 4242); err != nil {
		t.Fatalf("WritePID: %v", err)
	}

	got, err := ReadPID(path)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if got != 4242 {
		t.Errorf("ReadPID() = %d, want 4242", got)
	}
}

func TestReadPID_Missing(t *testing.T) {
	if _, err := ReadPID(filepath.Join(t.TempDir(), "coordinator.pid")); err == nil {
		t.Error("expected error reading missing pid file")
	}
}

func TestIsProcessAlive(t *testing.T) {
	if !IsProcessAlive(os.Getpid()) {
		t.Error("current process should be reported alive")
	}
	if IsProcessAlive(0) {
		t.Error("pid 0 should not be reported alive")
	}
}

func TestCoordinatorAlive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coordinator.pid")

	if CoordinatorAlive(path) {
		t.Error("missing pid file should report not alive")
	}

	if err := WritePID(path, os.Getpid()); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	if !CoordinatorAlive(path) {
		t.Error("pid file naming the current process should report alive")
	}
}
