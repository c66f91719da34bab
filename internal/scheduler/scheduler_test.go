package scheduler

import (
	"testing"
	"time"

	"github.com/claudia-coord/claudia/internal/task"
)

func mkTask(id string, priority int, created time.Time, labels ...string) *task.Task {
	return &task.Task{
		ID:        id,
		Status:    task.StatusOpen,
		Priority:  priority,
		Labels:    labels,
		CreatedAt: created,
	}
}

func TestPick_SkipsNotOpenOrAssigned(t *testing.T) {
	now := time.Now()
	tasks := map[string]*task.Task{
		"task-001": {ID: "task-001", Status: task.StatusDone, CreatedAt: now},
		"task-002": {ID: "task-002", Status: task.StatusOpen, Assignee: "session-x", CreatedAt: now},
		"task-003": mkTask("task-003", task.DefaultPriority, now),
	}
	sess := &task.Session{SessionID: "session-1"}
	got := Pick(tasks, sess, nil, 1)
	if got == nil || got.ID != "task-003" {
		t.Fatalf("Pick() = %v, want task-003", got)
	}
}

func TestPick_OrphanBlockedByTreatedAsSatisfied(t *testing.T) {
	now := time.Now()
	tasks := map[string]*task.Task{
		"task-001": {ID: "task-001", Status: task.StatusOpen, BlockedBy: []string{"task-999"}, CreatedAt: now},
	}
	sess := &task.Session{SessionID: "session-1"}
	got := Pick(tasks, sess, nil, 1)
	if got == nil || got.ID != "task-001" {
		t.Fatalf("Pick() = %v, want task-001 (orphan blocked_by should not block)", got)
	}
}

func TestPick_UnresolvedBlockedByBlocks(t *testing.T) {
	now := time.Now()
	tasks := map[string]*task.Task{
		"task-001": {ID: "task-001", Status: task.StatusOpen, BlockedBy: []string{"task-002"}, CreatedAt: now},
		"task-002": {ID: "task-002", Status: task.StatusOpen, CreatedAt: now},
	}
	sess := &task.Session{SessionID: "session-1"}
	got := Pick(tasks, sess, nil, 1)
	if got == nil || got.ID != "task-002" {
		t.Fatalf("Pick() = %v, want task-002 (task-001 still blocked)", got)
	}
}

func TestPick_AffinityBeatsPriority(t *testing.T) {
	now := time.Now()
	tasks := map[string]*task.Task{
		"task-001": mkTask("task-001", task.PriorityCritical, now),
		"task-002": mkTask("task-002", task.PriorityLow, now, "backend"),
	}
	sess := &task.Session{SessionID: "session-1", Labels: []string{"backend"}}
	got := Pick(tasks, sess, nil, 1)
	if got == nil || got.ID != "task-002" {
		t.Fatalf("Pick() = %v, want task-002 (higher affinity wins over priority)", got)
	}
}

func TestPick_PriorityThenCreatedAtThenID(t *testing.T) {
	t0 := time.Now()
	t1 := t0.Add(time.Minute)
	tasks := map[string]*task.Task{
		"task-002": mkTask("task-002", 1, t0),
		"task-001": mkTask("task-001", 1, t0),
		"task-003": mkTask("task-003", 0, t1),
	}
	sess := &task.Session{SessionID: "session-1"}
	got := Pick(tasks, sess, nil, 1)
	if got == nil || got.ID != "task-003" {
		t.Fatalf("Pick() = %v, want task-003 (lowest priority number wins)", got)
	}

	delete(tasks, "task-003")
	got = Pick(tasks, sess, nil, 1)
	if got == nil || got.ID != "task-001" {
		t.Fatalf("Pick() = %v, want task-001 (same priority/created_at, id tiebreak)", got)
	}
}

func TestPick_PreferredLabelsSupplementSessionLabels(t *testing.T) {
	now := time.Now()
	tasks := map[string]*task.Task{
		"task-001": mkTask("task-001", 1, now),
		"task-002": mkTask("task-002", 1, now, "docs"),
	}
	sess := &task.Session{SessionID: "session-1"}
	got := Pick(tasks, sess, []string{"docs"}, 1)
	if got == nil || got.ID != "task-002" {
		t.Fatalf("Pick() = %v, want task-002 via preferred_labels affinity", got)
	}
}

func TestPick_RefusesWhenSessionAtMaxConcurrent(t *testing.T) {
	now := time.Now()
	tasks := map[string]*task.Task{
		"task-001": {ID: "task-001", Status: task.StatusInProgress, Assignee: "session-1", CreatedAt: now},
		"task-002": mkTask("task-002", 1, now),
	}
	sess := &task.Session{SessionID: "session-1"}
	if got := Pick(tasks, sess, nil, 1); got != nil {
		t.Fatalf("Pick() = %v, want nil (session already holds max_concurrent)", got)
	}
}

func TestPick_NoReadyTasks(t *testing.T) {
	sess := &task.Session{SessionID: "session-1"}
	if got := Pick(map[string]*task.Task{}, sess, nil, 1); got != nil {
		t.Fatalf("Pick() = %v, want nil on empty set", got)
	}
}
