package task

import "testing"

func TestValidateSet_AssigneeStatusConsistency(t *testing.T) {
	tasks := map[string]*Task{
		"task-001": {ID: "task-001", Status: StatusOpen, Assignee: "session-1"},
	}
	if err := ValidateSet(tasks); err == nil {
		t.Error("expected error for assignee set without in_progress status")
	}

	tasks["task-001"].Status = StatusInProgress
	if err := ValidateSet(tasks); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateSet_SubtaskParentConsistency(t *testing.T) {
	tasks := map[string]*Task{
		"task-001": {ID: "task-001", Status: StatusOpen, Subtasks: []string{"task-002"}},
		"task-002": {ID: "task-002", Status: StatusOpen, ParentID: "task-003"},
	}
	if err := ValidateSet(tasks); err == nil {
		t.Error("expected error for mismatched parent_id")
	}

	tasks["task-002"].ParentID = "task-001"
	if err := ValidateSet(tasks); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateSet_TimeTrackingInvariants(t *testing.T) {
	tasks := map[string]*Task{
		"task-001": {ID: "task-001", Status: StatusOpen, TimeTracking: TimeTracking{IsRunning: true}},
	}
	if err := ValidateSet(tasks); err == nil {
		t.Error("expected error for is_running without started_at")
	}
}

func TestFindCycle(t *testing.T) {
	tasks := map[string]*Task{
		"task-001": {ID: "task-001", Status: StatusOpen, BlockedBy: []string{"task-002"}},
		"task-002": {ID: "task-002", Status: StatusOpen, BlockedBy: []string{"task-001"}},
	}
	if err := ValidateSet(tasks); err == nil {
		t.Error("expected cycle error")
	}
}

func TestFindCycle_IgnoresUnknownIDs(t *testing.T) {
	tasks := map[string]*Task{
		"task-001": {ID: "task-001", Status: StatusOpen, BlockedBy: []string{"task-999"}},
	}
	if err := ValidateSet(tasks); err != nil {
		t.Errorf("unexpected error for dangling blocked_by reference: %v", err)
	}
}

func TestWouldCycle(t *testing.T) {
	tasks := map[string]*Task{
		"task-001": {ID: "task-001", Status: StatusOpen},
		"task-002": {ID: "task-002", Status: StatusOpen, BlockedBy: []string{"task-001"}},
	}
	if WouldCycle(tasks, "task-001", nil) {
		t.Error("empty blocked_by should never cycle")
	}
	if !WouldCycle(tasks, "task-001", []string{"task-002"}) {
		t.Error("expected WouldCycle to detect task-001 -> task-002 -> task-001")
	}
	// original tasks must be unmodified
	if len(tasks["task-001"].BlockedBy) != 0 {
		t.Error("WouldCycle must not mutate the input tasks")
	}
}
