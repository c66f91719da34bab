package store

import (
	"sync"
	"testing"
	"time"

	"github.com/claudia-coord/claudia/internal/config"
	"github.com/claudia-coord/claudia/internal/event"
	"github.com/claudia-coord/claudia/internal/logging"
	"github.com/claudia-coord/claudia/internal/task"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default()
	s, err := Open(t.TempDir(), cfg, logging.NopLogger(), event.NewBus())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s
}

func TestCreateAndGetTask(t *testing.T) {
	s := newTestStore(t)
	tk, err := s.CreateTask(CreateTaskInput{Title: "write docs"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if tk.ID != "task-001" {
		t.Errorf("ID = %q, want task-001", tk.ID)
	}
	if tk.Priority != task.DefaultPriority {
		t.Errorf("Priority = %d, want default %d", tk.Priority, task.DefaultPriority)
	}

	got, err := s.GetTask(tk.ID)
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got.Title != "write docs" {
		t.Errorf("Title = %q, want %q", got.Title, "write docs")
	}

	second, err := s.CreateTask(CreateTaskInput{Title: "second"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if second.ID != "task-002" {
		t.Errorf("second.ID = %q, want task-002 (next_id must not repeat)", second.ID)
	}
}

func TestCreateTask_EmptyTitleRejected(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateTask(CreateTaskInput{Title: ""}); err == nil {
		t.Error("expected error for empty title")
	}
}

func TestRequestTask_ClaimsAndPersists(t *testing.T) {
	s := newTestStore(t)
	tk, _ := s.CreateTask(CreateTaskInput{Title: "claim me"})
	if _, err := s.RegisterSession("session-1", task.RoleWorker, "", nil); err != nil {
		t.Fatalf("RegisterSession() error = %v", err)
	}

	claimed, err := s.RequestTask("session-1", nil)
	if err != nil {
		t.Fatalf("RequestTask() error = %v", err)
	}
	if claimed == nil || claimed.ID != tk.ID {
		t.Fatalf("RequestTask() = %v, want %s", claimed, tk.ID)
	}
	if claimed.Status != task.StatusInProgress || claimed.Assignee != "session-1" {
		t.Errorf("claimed task not marked in_progress/assignee: %+v", claimed)
	}

	// re-requesting returns nil: the session already holds one claim
	again, err := s.RequestTask("session-1", nil)
	if err != nil {
		t.Fatalf("RequestTask() error = %v", err)
	}
	if again != nil {
		t.Errorf("RequestTask() = %v, want nil (session at max_concurrent)", again)
	}
}

func TestCompleteTask_RejectsWrongAssignee(t *testing.T) {
	s := newTestStore(t)
	tk, _ := s.CreateTask(CreateTaskInput{Title: "t"})
	s.RegisterSession("session-1", task.RoleWorker, "", nil)
	s.RequestTask("session-1", nil)

	if _, err := s.CompleteTask(tk.ID, "session-2", "", "", false); err == nil {
		t.Error("expected error completing a task claimed by another session")
	}
	if _, err := s.CompleteTask(tk.ID, "session-1", "done", "feature/x", false); err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}

	got, _ := s.GetTask(tk.ID)
	if got.Status != task.StatusDone || got.Branch != "feature/x" {
		t.Errorf("task not completed correctly: %+v", got)
	}
}

func TestEditTask_BlockedByCycleRejected(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.CreateTask(CreateTaskInput{Title: "a"})
	b, _ := s.CreateTask(CreateTaskInput{Title: "b", BlockedBy: []string{a.ID}})

	cycle := []string{b.ID}
	if _, err := s.EditTask(a.ID, EditFields{BlockedBy: &cycle}); err == nil {
		t.Error("expected Conflict error for a blocked_by cycle")
	}
}

func TestDeleteTask_RequiresForceWithSubtasks(t *testing.T) {
	s := newTestStore(t)
	parent, _ := s.CreateTask(CreateTaskInput{Title: "parent"})
	s.CreateSubtask(parent.ID, "child")

	if err := s.DeleteTask(parent.ID, false); err == nil {
		t.Error("expected error deleting a task with subtasks without force")
	}
	if err := s.DeleteTask(parent.ID, true); err != nil {
		t.Fatalf("DeleteTask(force) error = %v", err)
	}
	if _, err := s.GetTask(parent.ID); err == nil {
		t.Error("expected parent to be gone after forced delete")
	}
}

func TestUndoLast_ReversesCompletion(t *testing.T) {
	s := newTestStore(t)
	tk, _ := s.CreateTask(CreateTaskInput{Title: "t"})
	s.RegisterSession("session-1", task.RoleWorker, "", nil)
	s.RequestTask("session-1", nil)
	if _, err := s.CompleteTask(tk.ID, "session-1", "", "branch-x", false); err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}

	restored, err := s.UndoLast()
	if err != nil {
		t.Fatalf("UndoLast() error = %v", err)
	}
	if restored.Status != task.StatusInProgress || restored.Assignee != "session-1" {
		t.Errorf("UndoLast() did not restore prior state: %+v", restored)
	}
}

func TestUndoLast_NoReversibleAction(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.UndoLast(); err == nil {
		t.Error("expected error when history has no reversible action")
	}
}

func TestHeartbeat_UnknownSessionRejected(t *testing.T) {
	s := newTestStore(t)
	if err := s.Heartbeat("ghost"); err == nil {
		t.Error("expected error heartbeating an unregistered session")
	}
}

func TestRegisterSession_Idempotent(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.RegisterSession("session-1", task.RoleMain, "ctx-a", []string{"backend"}); err != nil {
		t.Fatalf("RegisterSession() error = %v", err)
	}
	sess, err := s.RegisterSession("session-1", task.RoleMain, "ctx-b", []string{"frontend"})
	if err != nil {
		t.Fatalf("RegisterSession() error = %v", err)
	}
	if sess.Context != "ctx-b" || len(sess.Labels) != 1 || sess.Labels[0] != "frontend" {
		t.Errorf("re-registering did not update metadata: %+v", sess)
	}
}

func TestCleanup_ReclaimsStaleSessionsAndReleasesTask(t *testing.T) {
	s := newTestStore(t)
	tk, _ := s.CreateTask(CreateTaskInput{Title: "t"})
	s.RegisterSession("session-1", task.RoleWorker, "", nil)
	s.RequestTask("session-1", nil)

	sess, _ := s.loadSession("session-1")
	sess.LastHeartbeat = sess.LastHeartbeat.Add(-10 * time.Minute)
	s.saveSession(sess)

	reclaimed, err := s.Cleanup(180 * time.Second)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if len(reclaimed) != 1 || reclaimed[0] != "session-1" {
		t.Errorf("Cleanup() reclaimed = %v, want [session-1]", reclaimed)
	}

	got, _ := s.GetTask(tk.ID)
	if got.Status != task.StatusOpen || got.Assignee != "" {
		t.Errorf("task not released on cleanup: %+v", got)
	}

	if err := s.Heartbeat("session-1"); err == nil {
		t.Error("expected session-1 to be gone after cleanup")
	}
}

func TestSubtaskProgress(t *testing.T) {
	s := newTestStore(t)
	parent, _ := s.CreateTask(CreateTaskInput{Title: "parent"})
	c1, _ := s.CreateSubtask(parent.ID, "c1")
	s.CreateSubtask(parent.ID, "c2")

	done, total, pct, err := s.SubtaskProgress(parent.ID)
	if err != nil {
		t.Fatalf("SubtaskProgress() error = %v", err)
	}
	if done != 0 || total != 2 || pct != 0 {
		t.Errorf("SubtaskProgress() = (%d,%d,%f), want (0,2,0)", done, total, pct)
	}

	if _, err := s.CompleteTask(c1.ID, "", "", "", true); err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	done, total, pct, _ = s.SubtaskProgress(parent.ID)
	if done != 1 || total != 2 || pct != 50 {
		t.Errorf("SubtaskProgress() = (%d,%d,%f), want (1,2,50)", done, total, pct)
	}
}

func TestArchiveDone_MovesOldDoneTasks(t *testing.T) {
	s := newTestStore(t)
	tk, _ := s.CreateTask(CreateTaskInput{Title: "old"})
	s.CompleteTask(tk.ID, "", "", "", true)

	got, _ := s.GetTask(tk.ID)
	got.UpdatedAt = got.UpdatedAt.Add(-48 * time.Hour)
	s.mutate(func(snap *snapshot) (*task.HistoryEntry, error) {
		snap.tasks[tk.ID].UpdatedAt = got.UpdatedAt
		return nil, nil
	})

	archived, err := s.ArchiveDone(24 * time.Hour)
	if err != nil {
		t.Fatalf("ArchiveDone() error = %v", err)
	}
	if len(archived) != 1 || archived[0] != tk.ID {
		t.Errorf("ArchiveDone() = %v, want [%s]", archived, tk.ID)
	}
	if _, err := s.GetTask(tk.ID); err == nil {
		t.Error("expected archived task to be removed from the live set")
	}
}

func TestArchiveDone_LeavesLiveSubtaskAndParent(t *testing.T) {
	s := newTestStore(t)
	parent, _ := s.CreateTask(CreateTaskInput{Title: "parent"})
	child, _ := s.CreateSubtask(parent.ID, "child")

	if _, err := s.CompleteTask(parent.ID, "", "", "", true); err != nil {
		t.Fatalf("CompleteTask(parent) error = %v", err)
	}

	got, _ := s.GetTask(parent.ID)
	aged := got.UpdatedAt.Add(-48 * time.Hour)
	s.mutate(func(snap *snapshot) (*task.HistoryEntry, error) {
		snap.tasks[parent.ID].UpdatedAt = aged
		return nil, nil
	})

	archived, err := s.ArchiveDone(24 * time.Hour)
	if err != nil {
		t.Fatalf("ArchiveDone() error = %v", err)
	}
	if len(archived) != 0 {
		t.Errorf("ArchiveDone() = %v, want none archived while child %s is still open", archived, child.ID)
	}
	if _, err := s.GetTask(parent.ID); err != nil {
		t.Errorf("parent %s should remain live: %v", parent.ID, err)
	}
	if _, err := s.GetTask(child.ID); err != nil {
		t.Errorf("child %s should remain live: %v", child.ID, err)
	}
}

func TestStartStopPauseTimer(t *testing.T) {
	s := newTestStore(t)
	tk, _ := s.CreateTask(CreateTaskInput{Title: "timed"})

	started, err := s.StartTimer(tk.ID)
	if err != nil {
		t.Fatalf("StartTimer() error = %v", err)
	}
	if !started.TimeTracking.IsRunning || started.TimeTracking.StartedAt == nil {
		t.Errorf("StartTimer() = %+v, want running with started_at set", started.TimeTracking)
	}

	// double start without stop is a no-op returning the current state
	startedAt := *started.TimeTracking.StartedAt
	again, err := s.StartTimer(tk.ID)
	if err != nil {
		t.Fatalf("StartTimer() (second call) error = %v", err)
	}
	if !again.TimeTracking.StartedAt.Equal(startedAt) {
		t.Errorf("second StartTimer() changed started_at: got %v, want unchanged %v", again.TimeTracking.StartedAt, startedAt)
	}

	stopped, err := s.StopTimer(tk.ID)
	if err != nil {
		t.Fatalf("StopTimer() error = %v", err)
	}
	if stopped.TimeTracking.IsRunning || stopped.TimeTracking.StartedAt != nil {
		t.Errorf("StopTimer() = %+v, want stopped with started_at cleared", stopped.TimeTracking)
	}
	if stopped.TimeTracking.TotalSeconds < 0 {
		t.Errorf("TotalSeconds = %f, want >= 0", stopped.TimeTracking.TotalSeconds)
	}

	// stopping again is a no-op, not an error
	stoppedAgain, err := s.StopTimer(tk.ID)
	if err != nil {
		t.Fatalf("StopTimer() (second call) error = %v", err)
	}
	if stoppedAgain.TimeTracking.TotalSeconds != stopped.TimeTracking.TotalSeconds {
		t.Errorf("second StopTimer() changed total_seconds: got %f, want %f",
			stoppedAgain.TimeTracking.TotalSeconds, stopped.TimeTracking.TotalSeconds)
	}

	if _, err := s.StartTimer(tk.ID); err != nil {
		t.Fatalf("StartTimer() (resume) error = %v", err)
	}
	paused, err := s.PauseTimer(tk.ID)
	if err != nil {
		t.Fatalf("PauseTimer() error = %v", err)
	}
	if !paused.TimeTracking.IsPaused || paused.TimeTracking.IsRunning {
		t.Errorf("PauseTimer() = %+v, want is_paused=true, is_running=false", paused.TimeTracking)
	}

	resumed, err := s.StartTimer(tk.ID)
	if err != nil {
		t.Fatalf("StartTimer() (resume from pause) error = %v", err)
	}
	if !resumed.TimeTracking.IsRunning || resumed.TimeTracking.IsPaused {
		t.Errorf("StartTimer() after pause = %+v, want is_running=true, is_paused=false", resumed.TimeTracking)
	}
}

// TestRequestTask_ConcurrentSessionsOneTaskBacklog exercises §8's S4
// scenario: two sessions request concurrently against a one-task
// backlog; exactly one gets the task, the other gets nil, and neither
// call errors.
func TestRequestTask_ConcurrentSessionsOneTaskBacklog(t *testing.T) {
	s := newTestStore(t)
	tk, err := s.CreateTask(CreateTaskInput{Title: "only task"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if _, err := s.RegisterSession("session-a", task.RoleWorker, "", nil); err != nil {
		t.Fatalf("RegisterSession(session-a) error = %v", err)
	}
	if _, err := s.RegisterSession("session-b", task.RoleWorker, "", nil); err != nil {
		t.Fatalf("RegisterSession(session-b) error = %v", err)
	}

	var wg sync.WaitGroup
	results := make([]*task.Task, 2)
	errs := make([]error, 2)
	sessionIDs := []string{"session-a", "session-b"}

	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.RequestTask(sessionIDs[i], nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("RequestTask(%s) error = %v", sessionIDs[i], err)
		}
	}

	claims := 0
	for i, res := range results {
		if res != nil {
			claims++
			if res.ID != tk.ID {
				t.Errorf("RequestTask(%s) claimed unexpected task %s", sessionIDs[i], res.ID)
			}
		}
	}
	if claims != 1 {
		t.Errorf("claims = %d across 2 concurrent requests against a 1-task backlog, want exactly 1", claims)
	}
}
