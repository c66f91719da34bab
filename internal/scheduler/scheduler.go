// Package scheduler picks the next ready task for a session. Pick is a pure
// function: no I/O, no clock reads, no randomness. The Store passes in the
// snapshot it already loaded under its lock.
package scheduler

import (
	"sort"

	"github.com/claudia-coord/claudia/internal/task"
)

// Pick returns the best ready task for session among tasks, or nil if none
// qualifies. preferredLabels supplements the session's own declared labels
// for the affinity computation. maxConcurrent bounds how many tasks the
// session may hold at once (the Store passes the configured
// max_concurrent_per_session, default 1; taking it as a parameter keeps
// this referentially transparent over the config value).
func Pick(tasks map[string]*task.Task, session *task.Session, preferredLabels []string, maxConcurrent int) *task.Task {
	if session == nil {
		return nil
	}

	held := 0
	for _, t := range tasks {
		if t.Assignee == session.SessionID {
			held++
		}
	}
	if held >= maxConcurrent {
		return nil
	}

	interest := make(map[string]bool, len(session.Labels)+len(preferredLabels))
	for _, l := range session.Labels {
		interest[l] = true
	}
	for _, l := range preferredLabels {
		interest[l] = true
	}

	ready := readyTasks(tasks)
	if len(ready) == 0 {
		return nil
	}

	sort.Slice(ready, func(i, j int) bool {
		return less(ready[i], ready[j], interest)
	})
	return ready[0]
}

// readyTasks returns the tasks eligible for claiming: open, unassigned, and
// with every blocked_by dependency resolved to done. A blocked_by id with no
// matching task (orphan or deleted) is treated as satisfied rather than as a
// permanent block.
func readyTasks(tasks map[string]*task.Task) []*task.Task {
	var out []*task.Task
	for _, t := range tasks {
		if t.Status != task.StatusOpen || t.Assignee != "" {
			continue
		}
		blocked := false
		for _, dep := range t.BlockedBy {
			d, ok := tasks[dep]
			if !ok {
				continue
			}
			if d.Status != task.StatusDone {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}
		out = append(out, t)
	}
	return out
}

// affinity is the cardinality of the intersection between a task's labels
// and the caller's interest set.
func affinity(t *task.Task, interest map[string]bool) int {
	n := 0
	for _, l := range t.Labels {
		if interest[l] {
			n++
		}
	}
	return n
}

// less implements the ordering tuple (-affinity, priority, created_at, id):
// higher affinity sorts first, then lower priority number (0 = critical),
// then older created_at, then id as a final deterministic tiebreak.
func less(a, b *task.Task, interest map[string]bool) bool {
	aAff, bAff := affinity(a, interest), affinity(b, interest)
	if aAff != bAff {
		return aAff > bAff
	}
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
