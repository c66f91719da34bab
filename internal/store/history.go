package store

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/claudia-coord/claudia/internal/coordinatorerr"
	"github.com/claudia-coord/claudia/internal/event"
	"github.com/claudia-coord/claudia/internal/task"
)

// readHistory returns every entry in history.jsonl in append order. A
// missing file yields an empty slice.
func (s *Store) readHistory() ([]*task.HistoryEntry, error) {
	f, err := os.Open(s.historyPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []*task.HistoryEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e task.HistoryEntry
		if err := json.Unmarshal(line, &e); err != nil {
			continue // a torn line from a crash mid-append is skipped, not fatal
		}
		entries = append(entries, &e)
	}
	return entries, scanner.Err()
}

// UndoLast reverses the most recent reversible history entry: the last
// line in history.jsonl whose UndoHint is non-nil, per §4.6. It applies
// the inverse to the referenced task and appends a compensating event;
// history itself is never truncated or rewritten.
func (s *Store) UndoLast() (*task.Task, error) {
	entries, err := s.readHistory()
	if err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.Internal, "read history", err)
	}

	var target *task.HistoryEntry
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Reversible() {
			target = entries[i]
			break
		}
	}
	if target == nil {
		return nil, coordinatorerr.New(coordinatorerr.Conflict, "no reversible action in history")
	}

	hint := target.UndoHint
	var restored *task.Task
	_, err = s.mutate(func(snap *snapshot) (*task.HistoryEntry, error) {
		t, ok := snap.tasks[hint.TaskID]
		if !ok {
			return nil, coordinatorerr.New(coordinatorerr.NotFound, "undo target task no longer exists").WithTaskID(hint.TaskID)
		}
		t.Status = hint.PriorStatus
		t.Assignee = hint.PriorAssignee
		t.Branch = hint.PriorBranch
		if hint.PriorNoteCount < len(t.Notes) {
			t.Notes = t.Notes[:hint.PriorNoteCount]
		}
		t.UpdatedAt = hint.PriorUpdatedAt
		restored = t

		return &task.HistoryEntry{
			Kind:      "undo.applied",
			SessionID: target.SessionID,
			Payload:   map[string]any{"task_id": hint.TaskID, "reversed": target.Kind},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(event.NewUndoAppliedEvent(hint.TaskID, target.Kind, target.SessionID))
	return restored, nil
}
