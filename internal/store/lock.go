package store

import (
	"os"
	"syscall"
	"time"

	"github.com/claudia-coord/claudia/internal/coordinatorerr"
)

const lockFileName = ".lock"

// fileLock is an exclusive advisory lock on the store's .lock file, held
// for the full load-mutate-save cycle of a transaction. Grounded on
// taskqueue.FileLock, adapted to bound acquisition with a timeout instead
// of blocking indefinitely, per §4.1's "timeout (default 10s) bounds
// acquisition; on timeout the operation fails with LockTimeout".
type fileLock struct {
	file *os.File
}

// acquireLock blocks (polling) until the lock is acquired or timeout
// elapses, in which case it returns a coordinatorerr of kind LockTimeout.
func acquireLock(path string, timeout time.Duration) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.Internal, "open lock file", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return &fileLock{file: f}, nil
		}
		if err != syscall.EWOULDBLOCK {
			_ = f.Close()
			return nil, coordinatorerr.Wrap(coordinatorerr.Internal, "flock", err)
		}
		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, coordinatorerr.New(coordinatorerr.LockTimeout, "timed out acquiring store lock")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func (l *fileLock) unlock() error {
	if l.file == nil {
		return nil
	}
	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return err
	}
	return closeErr
}
