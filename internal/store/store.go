// Package store provides durable custody of tasks, templates, sessions, and
// the event log, per §4.1 of the coordination-core design. All mutation
// goes through mutate(fn): acquire the exclusive lock, load the
// current snapshot from disk, invoke fn on a mutable copy, validate
// invariants, atomically persist, append the history line, release the
// lock.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claudia-coord/claudia/internal/config"
	"github.com/claudia-coord/claudia/internal/coordinatorerr"
	"github.com/claudia-coord/claudia/internal/event"
	"github.com/claudia-coord/claudia/internal/logging"
	"github.com/claudia-coord/claudia/internal/task"
)

const (
	tasksFileName     = "tasks.json"
	templatesFileName = "templates.json"
	historyFileName   = "history.jsonl"
	archiveFileName   = "archive.jsonl"
	sessionsDirName   = "sessions"
	tasksVersion      = 2
)

// Store owns the on-disk state directory. A Store is safe for concurrent
// use by multiple goroutines in the same process (the coordinator's case)
// and coordinates with other processes touching the same directory via
// .lock (the single-mode case of multiple CLI invocations).
type Store struct {
	dir    string
	cfg    *config.Config
	logger *logging.Logger
	bus    *event.Bus
}

// snapshot is the mutable view of on-disk state a transaction operates on.
type snapshot struct {
	nextTaskID     int
	tasks          map[string]*task.Task
	nextTemplateID int
	templates      map[string]*task.Template
}

// tasksDoc is the wire format of tasks.json per §6: {"version":2,"next_id":N,"tasks":[...]}.
type tasksDoc struct {
	Version int          `json:"version"`
	NextID  int          `json:"next_id"`
	Tasks   []*task.Task `json:"tasks"`
}

// templatesDoc mirrors tasksDoc for templates.json.
type templatesDoc struct {
	Version   int              `json:"version"`
	NextID    int              `json:"next_id"`
	Templates []*task.Template `json:"templates"`
}

// Open prepares the state directory (creating it if necessary), recovers
// any leftover .tmp file from a crash between write and rename (§12.1),
// and returns a ready Store. It does not hold the lock or load a
// snapshot; each operation opens its own transaction.
func Open(dir string, cfg *config.Config, logger *logging.Logger, bus *event.Bus) (*Store, error) {
	if err := ensureDir(dir); err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.Internal, "create state directory", err)
	}
	if err := ensureDir(filepath.Join(dir, sessionsDirName)); err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.Internal, "create sessions directory", err)
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	s := &Store{dir: dir, cfg: cfg, logger: logger.WithComponent("store"), bus: bus}

	for _, name := range []string{tasksFileName, templatesFileName} {
		recovered, err := recoverTmpFile(filepath.Join(dir, name), validJSONObject)
		if err != nil {
			return nil, coordinatorerr.Wrap(coordinatorerr.Internal, "recover "+name, err)
		}
		if recovered {
			s.logger.Warn("recovered leftover tmp file after unclean shutdown", "file", name)
		}
	}

	return s, nil
}

func (s *Store) tasksPath() string     { return filepath.Join(s.dir, tasksFileName) }
func (s *Store) templatesPath() string { return filepath.Join(s.dir, templatesFileName) }
func (s *Store) historyPath() string   { return filepath.Join(s.dir, historyFileName) }
func (s *Store) archivePath() string   { return filepath.Join(s.dir, archiveFileName) }
func (s *Store) sessionsDir() string   { return filepath.Join(s.dir, sessionsDirName) }

func (s *Store) lockTimeout() time.Duration {
	if s.cfg != nil && s.cfg.LockTimeout > 0 {
		return s.cfg.LockTimeout
	}
	return config.Default().LockTimeout
}

func (s *Store) maxConcurrent() int {
	if s.cfg != nil && s.cfg.MaxConcurrentPerSession > 0 {
		return s.cfg.MaxConcurrentPerSession
	}
	return config.Default().MaxConcurrentPerSession
}

// withLock acquires the store's exclusive advisory lock for the duration
// of fn, per §4.1's "acquire exclusive lock ... release lock".
func (s *Store) withLock(fn func() error) error {
	lock, err := acquireLock(filepath.Join(s.dir, lockFileName), s.lockTimeout())
	if err != nil {
		return err
	}
	defer func() { _ = lock.unlock() }()
	return fn()
}

// loadSnapshot reads tasks.json and templates.json. A missing file yields
// an empty document with next_id=1, matching a freshly initialized state
// directory. The caller must hold the store lock.
func (s *Store) loadSnapshot() (*snapshot, error) {
	var td tasksDoc
	if err := readJSON(s.tasksPath(), &td); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load tasks.json: %w", err)
		}
		td = tasksDoc{Version: tasksVersion, NextID: 1}
	}

	var tmd templatesDoc
	if err := readJSON(s.templatesPath(), &tmd); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load templates.json: %w", err)
		}
		tmd = templatesDoc{Version: tasksVersion, NextID: 1}
	}

	snap := &snapshot{
		nextTaskID:     td.NextID,
		tasks:          make(map[string]*task.Task, len(td.Tasks)),
		nextTemplateID: tmd.NextID,
		templates:      make(map[string]*task.Template, len(tmd.Templates)),
	}
	for _, t := range td.Tasks {
		snap.tasks[t.ID] = t
	}
	for _, tm := range tmd.Templates {
		snap.templates[tm.ID] = tm
	}
	if snap.nextTaskID < 1 {
		snap.nextTaskID = 1
	}
	if snap.nextTemplateID < 1 {
		snap.nextTemplateID = 1
	}
	return snap, nil
}

// saveSnapshot persists both documents atomically. The caller must hold
// the store lock and must have already validated invariants.
func (s *Store) saveSnapshot(snap *snapshot) error {
	td := tasksDoc{Version: tasksVersion, NextID: snap.nextTaskID, Tasks: make([]*task.Task, 0, len(snap.tasks))}
	for _, t := range snap.tasks {
		td.Tasks = append(td.Tasks, t)
	}
	if err := atomicWriteJSON(s.tasksPath(), td); err != nil {
		return fmt.Errorf("write tasks.json: %w", err)
	}

	tmd := templatesDoc{Version: tasksVersion, NextID: snap.nextTemplateID, Templates: make([]*task.Template, 0, len(snap.templates))}
	for _, tm := range snap.templates {
		tmd.Templates = append(tmd.Templates, tm)
	}
	if err := atomicWriteJSON(s.templatesPath(), tmd); err != nil {
		return fmt.Errorf("write templates.json: %w", err)
	}
	return nil
}

// view runs fn against a read-only snapshot. Per §4.4, readers take a
// snapshot under the same lock a writer would use, then release before
// the caller serializes a response.
func (s *Store) view(fn func(*snapshot) error) error {
	return s.withLock(func() error {
		snap, err := s.loadSnapshot()
		if err != nil {
			return coordinatorerr.Wrap(coordinatorerr.Internal, "load snapshot", err)
		}
		return fn(snap)
	})
}

// mutate runs fn against a mutable snapshot, validates invariants,
// persists, and — if fn produced a history entry — appends it to
// history.jsonl, all before releasing the lock, per §4.5's "append to
// history.jsonl and release the lock on exit" and §5's requirement that
// event-log entries be totally ordered by append order. Appending inside
// the locked section (rather than after withLock returns) is what makes
// commit order and history append order agree across concurrent
// mutate() calls. Any error from fn or from invariant validation aborts
// the transaction: the on-disk state is left untouched.
func (s *Store) mutate(fn func(*snapshot) (*task.HistoryEntry, error)) (*task.HistoryEntry, error) {
	var entry *task.HistoryEntry
	err := s.withLock(func() error {
		snap, err := s.loadSnapshot()
		if err != nil {
			return coordinatorerr.Wrap(coordinatorerr.Internal, "load snapshot", err)
		}

		e, err := fn(snap)
		if err != nil {
			return err
		}

		if err := task.ValidateSet(snap.tasks); err != nil {
			return coordinatorerr.Wrap(coordinatorerr.Conflict, "invariant violation", err)
		}

		if err := s.saveSnapshot(snap); err != nil {
			return coordinatorerr.Wrap(coordinatorerr.Internal, "persist snapshot", err)
		}

		if e != nil {
			e.Timestamp = time.Now().UTC()
			if err := appendJSONLine(s.historyPath(), e); err != nil {
				s.logger.Error("append history failed", "error", err)
			}
		}

		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) allocateTaskID(snap *snapshot) string {
	id := fmt.Sprintf("task-%03d", snap.nextTaskID)
	snap.nextTaskID++
	return id
}

func (s *Store) allocateTemplateID(snap *snapshot) string {
	id := fmt.Sprintf("tmpl-%03d", snap.nextTemplateID)
	snap.nextTemplateID++
	return id
}

func (s *Store) publish(e event.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}
