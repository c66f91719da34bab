package coordinator

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/claudia-coord/claudia/internal/session"
)

// lockFileName mirrors internal/store's own unexported ".lock" constant;
// the watcher only needs the name to match against fsnotify events, not
// any store internals.
const lockFileName = ".lock"

const pidFileName = session.PIDFileName

// watchSentinels watches stateDir for the removal of .lock or
// coordinator.pid by something other than this process — an operator
// running `rm -f` by hand, or a crashed supervisor cleaning up what it
// thinks is an orphaned pidfile. Either is a sign the coordinator's own
// bookkeeping has fallen out of sync with the filesystem, so it's logged
// at Warn rather than acted on: the coordinator keeps serving on its
// already-open listener, but an operator watching logs gets a chance to
// notice before the next restart silently "fixes" a double-coordinator
// situation by picking a stale .parallel-mode back up.
func (s *Server) watchSentinels(stateDir string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Error("sentinel watcher unavailable", "error", err)
		return
	}
	if err := watcher.Add(stateDir); err != nil {
		s.logger.Error("sentinel watcher add failed", "error", err)
		watcher.Close()
		return
	}

	s.periodicWG.Go(func() {
		defer s.recoverLoop("sentinel-watch")
		defer watcher.Close()
		lockPath := filepath.Join(stateDir, lockFileName)
		pidPath := filepath.Join(stateDir, pidFileName)
		for {
			select {
			case <-s.periodicDone:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				switch ev.Name {
				case lockPath:
					s.logger.Warn(".lock removed externally while coordinator running")
				case pidPath:
					s.logger.Warn("coordinator.pid removed externally while coordinator running")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("sentinel watcher error", "error", err)
			}
		}
	})
}
