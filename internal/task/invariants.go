package task

import "fmt"

// ValidateSet checks the invariants that must hold across an entire task
// set after a committed transaction (§3 of the coordination-core design).
// It returns the first violation found, wrapped for the caller to classify.
func ValidateSet(tasks map[string]*Task) error {
	for id, t := range tasks {
		if id != t.ID {
			return fmt.Errorf("task keyed as %q has id %q", id, t.ID)
		}
		if !t.Status.Valid() {
			return fmt.Errorf("task %s: invalid status %q", t.ID, t.Status)
		}
		if (t.Assignee != "") != (t.Status == StatusInProgress) {
			return fmt.Errorf("task %s: assignee=%q inconsistent with status=%q", t.ID, t.Assignee, t.Status)
		}
		if t.TimeTracking.IsRunning && t.TimeTracking.StartedAt == nil {
			return fmt.Errorf("task %s: time_tracking.is_running without started_at", t.ID)
		}
		if t.TimeTracking.IsRunning && t.TimeTracking.IsPaused {
			return fmt.Errorf("task %s: time_tracking cannot be both running and paused", t.ID)
		}
		for _, childID := range t.Subtasks {
			child, ok := tasks[childID]
			if !ok {
				return fmt.Errorf("task %s: subtask %s does not exist", t.ID, childID)
			}
			if child.ParentID != t.ID {
				return fmt.Errorf("task %s: subtask %s has parent_id %q, want %q", t.ID, childID, child.ParentID, t.ID)
			}
		}
	}

	if cycle := findCycle(tasks); cycle != "" {
		return fmt.Errorf("cycle detected in blocked_by involving task %s", cycle)
	}

	return nil
}

// findCycle returns the id of a task participating in a blocked_by cycle,
// or "" if the relation is acyclic. Unknown ids referenced in blocked_by
// are ignored here — the scheduler treats them as satisfied, not as an
// invariant violation.
func findCycle(tasks map[string]*Task) string {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(tasks))

	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case visiting:
			return true
		case done:
			return false
		}
		state[id] = visiting
		if t, ok := tasks[id]; ok {
			for _, dep := range t.BlockedBy {
				if _, exists := tasks[dep]; exists && visit(dep) {
					return true
				}
			}
		}
		state[id] = done
		return false
	}

	for id := range tasks {
		if state[id] == unvisited && visit(id) {
			return id
		}
	}
	return ""
}

// WouldCycle reports whether setting task id's blocked_by to newBlockedBy
// would introduce a cycle, without mutating tasks. Used by edit validation
// before a blocked_by change is committed.
func WouldCycle(tasks map[string]*Task, id string, newBlockedBy []string) bool {
	trial := make(map[string]*Task, len(tasks))
	for k, v := range tasks {
		cp := *v
		trial[k] = &cp
	}
	if t, ok := trial[id]; ok {
		t.BlockedBy = newBlockedBy
	}
	return findCycle(trial) != ""
}
