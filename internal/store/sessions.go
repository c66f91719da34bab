package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/claudia-coord/claudia/internal/coordinatorerr"
	"github.com/claudia-coord/claudia/internal/event"
	"github.com/claudia-coord/claudia/internal/task"
)

// Sessions are not part of the tasks.json/templates.json snapshot: each
// lives in its own sessions/<session_id>.json file per §4.1, so a
// heartbeat write never contends with a task transaction's lock. A
// dedicated per-session file lock (not the store-wide .lock) protects
// concurrent writers to the same session id.

func (s *Store) sessionPath(sessionID string) string {
	return filepath.Join(s.sessionsDir(), sessionID+".json")
}

func (s *Store) loadSession(sessionID string) (*task.Session, error) {
	var sess task.Session
	if err := readJSON(s.sessionPath(sessionID), &sess); err != nil {
		if os.IsNotExist(err) {
			return nil, coordinatorerr.New(coordinatorerr.NotFound, "unknown session").WithSessionID(sessionID)
		}
		return nil, coordinatorerr.Wrap(coordinatorerr.Internal, "load session", err)
	}
	return &sess, nil
}

func (s *Store) saveSession(sess *task.Session) error {
	return atomicWriteJSON(s.sessionPath(sess.SessionID), sess)
}

// RegisterSession is idempotent: registering a known id updates its
// metadata rather than erroring.
func (s *Store) RegisterSession(sessionID string, role task.Role, context string, labels []string) (*task.Session, error) {
	if sessionID == "" {
		return nil, coordinatorerr.New(coordinatorerr.InvalidArgument, "session_id must not be empty")
	}
	if !role.Valid() {
		return nil, coordinatorerr.New(coordinatorerr.InvalidArgument, "role must be main or worker")
	}

	now := time.Now().UTC()
	sess, err := s.loadSession(sessionID)
	if err != nil {
		if coordinatorerr.KindOf(err) != coordinatorerr.NotFound {
			return nil, err
		}
		sess = &task.Session{SessionID: sessionID, StartedAt: now}
	}
	sess.Role = role
	sess.Context = context
	sess.Labels = labels
	sess.LastHeartbeat = now

	if err := s.saveSession(sess); err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.Internal, "persist session", err)
	}

	if err := appendJSONLine(s.historyPath(), &task.HistoryEntry{
		Timestamp: now,
		Kind:      "session.registered",
		SessionID: sessionID,
		Payload:   map[string]any{"role": string(role), "labels": labels},
	}); err != nil {
		s.logger.Error("append history failed", "error", err)
	}
	s.publish(event.NewSessionRegisteredEvent(sessionID, labels))
	return sess, nil
}

// Heartbeat updates last_heartbeat to now. Unknown ids are rejected.
func (s *Store) Heartbeat(sessionID string) error {
	sess, err := s.loadSession(sessionID)
	if err != nil {
		return err
	}
	sess.LastHeartbeat = time.Now().UTC()
	if err := s.saveSession(sess); err != nil {
		return coordinatorerr.Wrap(coordinatorerr.Internal, "persist session", err)
	}
	s.publish(event.NewSessionHeartbeatEvent(sessionID))
	return nil
}

// EndSession removes a session's file. If it held a task, releaseTask
// controls whether that task returns to open (default) or is left
// in_progress for a graceful hand-off.
func (s *Store) EndSession(sessionID string, releaseTask bool) error {
	sess, err := s.loadSession(sessionID)
	if err != nil {
		return err
	}

	if releaseTask && sess.WorkingOn != "" {
		if _, err := s.mutate(func(snap *snapshot) (*task.HistoryEntry, error) {
			t, ok := snap.tasks[sess.WorkingOn]
			if !ok {
				return nil, nil
			}
			priorStatus, priorAssignee, priorUpdated := t.Status, t.Assignee, t.UpdatedAt
			t.Status = task.StatusOpen
			t.Assignee = ""
			t.UpdatedAt = time.Now().UTC()
			return &task.HistoryEntry{
				Kind:      "task.released",
				SessionID: sessionID,
				Payload:   map[string]any{"task_id": t.ID, "reclaimed": false},
				UndoHint: &task.UndoHint{
					TaskID:         t.ID,
					PriorStatus:    priorStatus,
					PriorAssignee:  priorAssignee,
					PriorUpdatedAt: priorUpdated,
				},
			}, nil
		}); err != nil {
			return err
		}
		s.publish(event.NewTaskReleasedEvent(sess.WorkingOn, sessionID, false))
	}

	if err := os.Remove(s.sessionPath(sessionID)); err != nil && !os.IsNotExist(err) {
		return coordinatorerr.Wrap(coordinatorerr.Internal, "remove session file", err)
	}
	s.publish(event.NewSessionEndedEvent(sessionID))
	return nil
}

// ListSessions returns every registered session, ordered by id.
func (s *Store) ListSessions() ([]*task.Session, error) {
	entries, err := os.ReadDir(s.sessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, coordinatorerr.Wrap(coordinatorerr.Internal, "list sessions directory", err)
	}

	var out []*task.Session
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.sessionsDir(), entry.Name()))
		if err != nil {
			continue
		}
		var sess task.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		out = append(out, &sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

// Cleanup ends every session whose heartbeat is older than threshold,
// releasing any task it held, per §4.3's periodic reclaim.
func (s *Store) Cleanup(threshold time.Duration) ([]string, error) {
	sessions, err := s.ListSessions()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var reclaimed []string
	for _, sess := range sessions {
		if sess.StaleAge(now) <= threshold {
			continue
		}
		var releasedTask string
		if _, err := s.mutate(func(snap *snapshot) (*task.HistoryEntry, error) {
			if sess.WorkingOn == "" {
				return nil, nil
			}
			t, ok := snap.tasks[sess.WorkingOn]
			if !ok || t.Assignee != sess.SessionID {
				return nil, nil
			}
			priorStatus, priorAssignee, priorUpdated := t.Status, t.Assignee, t.UpdatedAt
			t.Status = task.StatusOpen
			t.Assignee = ""
			t.UpdatedAt = now
			releasedTask = t.ID
			return &task.HistoryEntry{
				Kind:      "task.released",
				SessionID: sess.SessionID,
				Payload:   map[string]any{"task_id": t.ID, "reclaimed": true},
				UndoHint: &task.UndoHint{
					TaskID:         t.ID,
					PriorStatus:    priorStatus,
					PriorAssignee:  priorAssignee,
					PriorUpdatedAt: priorUpdated,
				},
			}, nil
		}); err != nil {
			s.logger.Warn("cleanup: failed to release task", "session_id", sess.SessionID, "error", err)
		}

		if err := os.Remove(s.sessionPath(sess.SessionID)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("cleanup: failed to remove session file", "session_id", sess.SessionID, "error", err)
			continue
		}

		var released []string
		if releasedTask != "" {
			released = []string{releasedTask}
			s.publish(event.NewTaskReleasedEvent(releasedTask, sess.SessionID, true))
		}
		s.publish(event.NewSessionReclaimedEvent(sess.SessionID, released))
		reclaimed = append(reclaimed, sess.SessionID)
	}
	return reclaimed, nil
}
