// Package session provides process-liveness helpers used to detect whether
// the Coordinator service named by coordinator.pid is still running, and to
// read/write that PID file.
//
// The Store owns session registration (sessions/<id>.json) directly; this
// package only concerns the coordinator process itself, not the agent
// sessions it serves.
package session

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// PIDFileName is the name of the file the Coordinator service writes its
// process id to on startup.
const PIDFileName = "coordinator.pid"

// WritePID writes pid as ASCII decimal to path, atomically.
func WritePID(path string, pid int) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename pid file: %w", err)
	}
	return nil
}

// ReadPID reads and parses the PID written by WritePID.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file: %w", err)
	}
	return pid, nil
}

// IsProcessAlive checks if a process with the given PID is still running.
// On Unix, sending signal 0 checks if the process exists without affecting
// it.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// CoordinatorAlive reports whether the coordinator named by the PID file at
// path is still running. A missing or unparseable PID file is treated as
// "not alive" rather than an error, since that's exactly the case where a
// client should fall back to single mode.
func CoordinatorAlive(pidFilePath string) bool {
	pid, err := ReadPID(pidFilePath)
	if err != nil {
		return false
	}
	return IsProcessAlive(pid)
}
