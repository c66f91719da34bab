package store

import (
	"sort"
	"time"

	"github.com/claudia-coord/claudia/internal/coordinatorerr"
	"github.com/claudia-coord/claudia/internal/event"
	"github.com/claudia-coord/claudia/internal/scheduler"
	"github.com/claudia-coord/claudia/internal/task"
)

// CreateTaskInput carries the fields accepted by /task/create and
// `claudia task create`. Priority is a pointer so a caller can distinguish
// "not specified" (defaults to task.DefaultPriority) from an explicit 0
// (critical).
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    *int
	Labels      []string
	BlockedBy   []string
	ParentID    string
}

// CreateTask allocates an id, validates priority, and inserts a new open
// task. If ParentID is set the parent must already exist and the new task
// id is appended to its Subtasks.
func (s *Store) CreateTask(in CreateTaskInput) (*task.Task, error) {
	if in.Title == "" {
		return nil, coordinatorerr.New(coordinatorerr.InvalidArgument, "title must not be empty")
	}
	priority := task.DefaultPriority
	if in.Priority != nil {
		priority = *in.Priority
	}
	if !task.ValidPriority(priority) {
		return nil, coordinatorerr.New(coordinatorerr.InvalidArgument, "priority must be in [0,3]")
	}

	var created *task.Task
	entry, err := s.mutate(func(snap *snapshot) (*task.HistoryEntry, error) {
		if in.ParentID != "" {
			if _, ok := snap.tasks[in.ParentID]; !ok {
				return nil, coordinatorerr.New(coordinatorerr.NotFound, "parent task not found").WithTaskID(in.ParentID)
			}
		}

		now := time.Now().UTC()
		id := s.allocateTaskID(snap)
		t := &task.Task{
			ID:          id,
			Title:       in.Title,
			Description: in.Description,
			Status:      task.StatusOpen,
			Priority:    priority,
			Labels:      in.Labels,
			BlockedBy:   in.BlockedBy,
			ParentID:    in.ParentID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		snap.tasks[id] = t
		if in.ParentID != "" {
			parent := snap.tasks[in.ParentID]
			parent.Subtasks = append(parent.Subtasks, id)
			parent.UpdatedAt = now
		}
		created = t
		return &task.HistoryEntry{Kind: "task.created", Payload: map[string]any{"task_id": id, "title": in.Title}}, nil
	})
	if err != nil {
		return nil, err
	}
	_ = entry
	s.publish(event.NewTaskCreatedEvent(created.ID, created.Title))
	return created, nil
}

// GetTask returns a copy-free read of a single task.
func (s *Store) GetTask(id string) (*task.Task, error) {
	var found *task.Task
	err := s.view(func(snap *snapshot) error {
		t, ok := snap.tasks[id]
		if !ok {
			return coordinatorerr.New(coordinatorerr.NotFound, "task not found").WithTaskID(id)
		}
		found = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListTasks returns tasks matching statusFilter, or all tasks if empty,
// ordered by id for a stable listing.
func (s *Store) ListTasks(statusFilter string) ([]*task.Task, error) {
	var out []*task.Task
	err := s.view(func(snap *snapshot) error {
		for _, t := range snap.tasks {
			if statusFilter != "" && string(t.Status) != statusFilter {
				continue
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RequestTask runs the Scheduler against the current snapshot and, if a
// task is chosen, claims it atomically within the same transaction — the
// race-free "find next ready task and mark in_progress" operation of §5.
func (s *Store) RequestTask(sessionID string, preferredLabels []string) (*task.Task, error) {
	var claimed *task.Task
	_, err := s.mutate(func(snap *snapshot) (*task.HistoryEntry, error) {
		sess, err := s.loadSession(sessionID)
		if err != nil {
			return nil, err
		}

		picked := scheduler.Pick(snap.tasks, sess, preferredLabels, s.maxConcurrent())
		if picked == nil {
			return nil, nil
		}

		now := time.Now().UTC()
		priorUpdatedAt := picked.UpdatedAt
		picked.Status = task.StatusInProgress
		picked.Assignee = sessionID
		picked.UpdatedAt = now
		claimed = picked

		sess.WorkingOn = picked.ID
		if err := s.saveSession(sess); err != nil {
			return nil, coordinatorerr.Wrap(coordinatorerr.Internal, "persist session", err)
		}

		return &task.HistoryEntry{
			Kind:      "task.claimed",
			SessionID: sessionID,
			Payload:   map[string]any{"task_id": picked.ID},
			UndoHint: &task.UndoHint{
				TaskID:         picked.ID,
				PriorStatus:    task.StatusOpen,
				PriorUpdatedAt: priorUpdatedAt,
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if claimed != nil {
		s.publish(event.NewTaskClaimedEvent(claimed.ID, sessionID))
	}
	return claimed, nil
}

// CompleteTask marks a task done. Unless force is set, the caller must be
// the current assignee. branch and note are optional.
func (s *Store) CompleteTask(taskID, sessionID, note, branch string, force bool) (*task.Task, error) {
	var completed *task.Task
	_, err := s.mutate(func(snap *snapshot) (*task.HistoryEntry, error) {
		t, ok := snap.tasks[taskID]
		if !ok {
			return nil, coordinatorerr.New(coordinatorerr.NotFound, "task not found").WithTaskID(taskID)
		}
		if !force && t.Assignee != "" && t.Assignee != sessionID {
			return nil, coordinatorerr.New(coordinatorerr.Conflict, "task is claimed by another session").WithTaskID(taskID)
		}

		priorStatus, priorAssignee, priorBranch, priorNotes, priorUpdated := t.Status, t.Assignee, t.Branch, len(t.Notes), t.UpdatedAt

		now := time.Now().UTC()
		t.Status = task.StatusDone
		t.Assignee = ""
		t.Branch = branch
		t.UpdatedAt = now
		if note != "" {
			t.AddNote(task.Note{Timestamp: now, SessionID: sessionID, Note: note})
		}
		completed = t

		if s.cfg != nil && s.cfg.AutoCompleteParents && t.ParentID != "" {
			maybeAutoCompleteParent(snap, t.ParentID, now)
		}

		if sess, err := s.loadSession(sessionID); err == nil && sess.WorkingOn == taskID {
			sess.WorkingOn = ""
			_ = s.saveSession(sess)
		}

		return &task.HistoryEntry{
			Kind:      "task.completed",
			SessionID: sessionID,
			Payload:   map[string]any{"task_id": taskID, "branch": branch},
			UndoHint: &task.UndoHint{
				TaskID:         taskID,
				PriorStatus:    priorStatus,
				PriorAssignee:  priorAssignee,
				PriorBranch:    priorBranch,
				PriorNoteCount: priorNotes,
				PriorUpdatedAt: priorUpdated,
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(event.NewTaskCompletedEvent(completed.ID, sessionID))
	return completed, nil
}

// maybeAutoCompleteParent implements the opt-in Config.AutoCompleteParents
// toggle decided in DESIGN.md's open-question log: a parent whose every
// subtask is now done is itself marked done.
func maybeAutoCompleteParent(snap *snapshot, parentID string, now time.Time) {
	parent, ok := snap.tasks[parentID]
	if !ok || parent.Status == task.StatusDone {
		return
	}
	for _, childID := range parent.Subtasks {
		child, ok := snap.tasks[childID]
		if !ok || child.Status != task.StatusDone {
			return
		}
	}
	parent.Status = task.StatusDone
	parent.UpdatedAt = now
}

// ReopenTask returns a done task to open and clears assignee/branch.
func (s *Store) ReopenTask(taskID, note string) (*task.Task, error) {
	var reopened *task.Task
	_, err := s.mutate(func(snap *snapshot) (*task.HistoryEntry, error) {
		t, ok := snap.tasks[taskID]
		if !ok {
			return nil, coordinatorerr.New(coordinatorerr.NotFound, "task not found").WithTaskID(taskID)
		}
		priorStatus, priorAssignee, priorBranch, priorNotes, priorUpdated := t.Status, t.Assignee, t.Branch, len(t.Notes), t.UpdatedAt

		now := time.Now().UTC()
		t.Status = task.StatusOpen
		t.Assignee = ""
		t.Branch = ""
		t.UpdatedAt = now
		if note != "" {
			t.AddNote(task.Note{Timestamp: now, Note: note})
		}
		reopened = t

		return &task.HistoryEntry{
			Kind:    "task.reopened",
			Payload: map[string]any{"task_id": taskID},
			UndoHint: &task.UndoHint{
				TaskID:         taskID,
				PriorStatus:    priorStatus,
				PriorAssignee:  priorAssignee,
				PriorBranch:    priorBranch,
				PriorNoteCount: priorNotes,
				PriorUpdatedAt: priorUpdated,
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(event.NewTaskReopenedEvent(reopened.ID, note))
	return reopened, nil
}

// EditFields carries the optional mutable fields /task/edit accepts. A nil
// pointer means "leave unchanged".
type EditFields struct {
	Title       *string
	Description *string
	Priority    *int
	Labels      *[]string
	BlockedBy   *[]string
	Status      *task.Status
}

// EditTask applies the given field changes, rejecting a blocked_by change
// that would introduce a cycle.
func (s *Store) EditTask(taskID string, fields EditFields) (*task.Task, error) {
	var edited *task.Task
	var editedFields []string
	_, err := s.mutate(func(snap *snapshot) (*task.HistoryEntry, error) {
		t, ok := snap.tasks[taskID]
		if !ok {
			return nil, coordinatorerr.New(coordinatorerr.NotFound, "task not found").WithTaskID(taskID)
		}

		var changed []string
		if fields.Title != nil {
			if *fields.Title == "" {
				return nil, coordinatorerr.New(coordinatorerr.InvalidArgument, "title must not be empty")
			}
			t.Title = *fields.Title
			changed = append(changed, "title")
		}
		if fields.Description != nil {
			t.Description = *fields.Description
			changed = append(changed, "description")
		}
		if fields.Priority != nil {
			if !task.ValidPriority(*fields.Priority) {
				return nil, coordinatorerr.New(coordinatorerr.InvalidArgument, "priority must be in [0,3]")
			}
			t.Priority = *fields.Priority
			changed = append(changed, "priority")
		}
		if fields.Labels != nil {
			t.Labels = *fields.Labels
			changed = append(changed, "labels")
		}
		if fields.BlockedBy != nil {
			if task.WouldCycle(snap.tasks, taskID, *fields.BlockedBy) {
				return nil, coordinatorerr.New(coordinatorerr.Conflict, "edit would introduce a blocked_by cycle").WithTaskID(taskID)
			}
			t.BlockedBy = *fields.BlockedBy
			changed = append(changed, "blocked_by")
		}
		if fields.Status != nil {
			if !fields.Status.Valid() {
				return nil, coordinatorerr.New(coordinatorerr.InvalidArgument, "unknown status")
			}
			t.Status = *fields.Status
			changed = append(changed, "status")
		}
		t.UpdatedAt = time.Now().UTC()
		edited = t
		editedFields = changed

		return &task.HistoryEntry{
			Kind:    "task.edited",
			Payload: map[string]any{"task_id": taskID, "fields": changed},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(event.NewTaskEditedEvent(edited.ID, editedFields))
	return edited, nil
}

// DeleteTask removes a task. Without force, a task with subtasks cannot
// be deleted; with force, subtasks are deleted recursively.
func (s *Store) DeleteTask(taskID string, force bool) error {
	_, err := s.mutate(func(snap *snapshot) (*task.HistoryEntry, error) {
		t, ok := snap.tasks[taskID]
		if !ok {
			return nil, coordinatorerr.New(coordinatorerr.NotFound, "task not found").WithTaskID(taskID)
		}
		if len(t.Subtasks) > 0 && !force {
			return nil, coordinatorerr.New(coordinatorerr.Conflict, "task has subtasks; use force to delete recursively").WithTaskID(taskID)
		}

		var remove func(id string)
		remove = func(id string) {
			ct, ok := snap.tasks[id]
			if !ok {
				return
			}
			for _, childID := range ct.Subtasks {
				remove(childID)
			}
			delete(snap.tasks, id)
		}
		remove(taskID)

		if t.ParentID != "" {
			if parent, ok := snap.tasks[t.ParentID]; ok {
				parent.Subtasks = removeString(parent.Subtasks, taskID)
			}
		}

		return &task.HistoryEntry{Kind: "task.deleted", Payload: map[string]any{"task_id": taskID}}, nil
	})
	if err != nil {
		return err
	}
	s.publish(event.NewTaskDeletedEvent(taskID))
	return nil
}

// AddNote appends a note to a task without otherwise changing its state.
func (s *Store) AddNote(taskID, sessionID, note string) error {
	_, err := s.mutate(func(snap *snapshot) (*task.HistoryEntry, error) {
		t, ok := snap.tasks[taskID]
		if !ok {
			return nil, coordinatorerr.New(coordinatorerr.NotFound, "task not found").WithTaskID(taskID)
		}
		now := time.Now().UTC()
		t.AddNote(task.Note{Timestamp: now, SessionID: sessionID, Note: note})
		t.UpdatedAt = now
		return &task.HistoryEntry{Kind: "task.noted", SessionID: sessionID, Payload: map[string]any{"task_id": taskID}}, nil
	})
	if err != nil {
		return err
	}
	s.publish(event.NewTaskNotedEvent(taskID, sessionID))
	return nil
}

// BulkComplete completes each task id independently, collecting
// successes and failures rather than aborting the whole batch on the
// first error.
func (s *Store) BulkComplete(taskIDs []string, sessionID, note string) (succeeded, failed []string) {
	for _, id := range taskIDs {
		if _, err := s.CompleteTask(id, sessionID, note, "", true); err != nil {
			failed = append(failed, id)
			continue
		}
		succeeded = append(succeeded, id)
	}
	return succeeded, failed
}

// CreateSubtask creates a task with ParentID set, appending it to the
// parent's Subtasks.
func (s *Store) CreateSubtask(parentID, title string) (*task.Task, error) {
	return s.CreateTask(CreateTaskInput{Title: title, ParentID: parentID})
}

// SubtaskProgress reports how many of a parent's subtasks are done.
func (s *Store) SubtaskProgress(parentID string) (done, total int, percentage float64, err error) {
	err = s.view(func(snap *snapshot) error {
		parent, ok := snap.tasks[parentID]
		if !ok {
			return coordinatorerr.New(coordinatorerr.NotFound, "task not found").WithTaskID(parentID)
		}
		total = len(parent.Subtasks)
		for _, childID := range parent.Subtasks {
			if child, ok := snap.tasks[childID]; ok && child.Status == task.StatusDone {
				done++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, 0, err
	}
	if total > 0 {
		percentage = float64(done) / float64(total) * 100
	}
	return done, total, percentage, nil
}

func removeString(list []string, target string) []string {
	out := list[:0]
	for _, v := range list {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}
