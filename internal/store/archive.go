package store

import (
	"time"

	"github.com/claudia-coord/claudia/internal/coordinatorerr"
	"github.com/claudia-coord/claudia/internal/task"
)

// archivedTask is one line of archive.jsonl: the task as it stood at
// archival time, plus when it was archived.
type archivedTask struct {
	ArchivedAt time.Time  `json:"archived_at"`
	Task       *task.Task `json:"task"`
}

// ArchiveDone moves every done task older than olderThan into
// archive.jsonl and removes it from the live set, per §3's lifecycle:
// "Archival moves a done task older than N days into an append-only
// archive log and removes it from the live set." Archived tasks are not
// undoable — the archive flush omits an UndoHint.
func (s *Store) ArchiveDone(olderThan time.Duration) ([]string, error) {
	var archivedIDs []string
	cutoff := time.Now().UTC().Add(-olderThan)

	_, err := s.mutate(func(snap *snapshot) (*task.HistoryEntry, error) {
		for id, t := range snap.tasks {
			if t.Status != task.StatusDone || t.UpdatedAt.After(cutoff) {
				continue
			}
			if t.IsSubtask() {
				continue // archived alongside its parent, not independently
			}

			// A done parent can still have a subtask that is open or
			// in_progress (e.g. AutoCompleteParents is off, or a subtask
			// was reopened after the parent completed). Archiving the
			// parent out from under a live subtask — one a session may
			// still hold as working_on — would orphan it with a
			// parent_id pointing nowhere and no release of its claim.
			// Leave the whole family live until every subtask is done.
			allChildrenDone := true
			for _, childID := range t.Subtasks {
				if child, ok := snap.tasks[childID]; ok && child.Status != task.StatusDone {
					allChildrenDone = false
					break
				}
			}
			if !allChildrenDone {
				continue
			}

			if err := appendJSONLine(s.archivePath(), archivedTask{ArchivedAt: time.Now().UTC(), Task: t}); err != nil {
				return nil, coordinatorerr.Wrap(coordinatorerr.Internal, "append archive", err)
			}
			for _, childID := range t.Subtasks {
				child, ok := snap.tasks[childID]
				if !ok {
					continue
				}
				if err := appendJSONLine(s.archivePath(), archivedTask{ArchivedAt: time.Now().UTC(), Task: child}); err != nil {
					return nil, coordinatorerr.Wrap(coordinatorerr.Internal, "append archive", err)
				}
				delete(snap.tasks, childID)
			}
			delete(snap.tasks, id)
			archivedIDs = append(archivedIDs, id)
		}
		if len(archivedIDs) == 0 {
			return nil, nil
		}
		return &task.HistoryEntry{Kind: "tasks.archived", Payload: map[string]any{"task_ids": archivedIDs}}, nil
	})
	if err != nil {
		return nil, err
	}
	return archivedIDs, nil
}
