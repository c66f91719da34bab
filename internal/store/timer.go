package store

import (
	"time"

	"github.com/claudia-coord/claudia/internal/coordinatorerr"
	"github.com/claudia-coord/claudia/internal/event"
	"github.com/claudia-coord/claudia/internal/task"
)

// StartTimer starts or resumes a task's manual timer. Per §8's boundary
// test, calling it while the timer is already running is a no-op that
// returns the task as-is; calling it while paused resumes from a fresh
// started_at.
func (s *Store) StartTimer(taskID string) (*task.Task, error) {
	var result *task.Task
	entry, err := s.mutate(func(snap *snapshot) (*task.HistoryEntry, error) {
		t, ok := snap.tasks[taskID]
		if !ok {
			return nil, coordinatorerr.New(coordinatorerr.NotFound, "task not found").WithTaskID(taskID)
		}
		if t.TimeTracking.IsRunning {
			result = t
			return nil, nil
		}

		now := time.Now().UTC()
		t.TimeTracking.StartedAt = &now
		t.TimeTracking.IsRunning = true
		t.TimeTracking.IsPaused = false
		t.UpdatedAt = now
		result = t
		return &task.HistoryEntry{Kind: "task.timer_started", Payload: map[string]any{"task_id": taskID}}, nil
	})
	if err != nil {
		return nil, err
	}
	if entry != nil {
		s.publish(event.NewTaskTimerEvent(taskID, "started"))
	}
	return result, nil
}

// StopTimer stops a task's manual timer, accumulating the elapsed
// interval into total_seconds and clearing started_at/is_running/
// is_paused. A timer that isn't running is a no-op that returns the task
// as-is.
func (s *Store) StopTimer(taskID string) (*task.Task, error) {
	return s.settleTimer(taskID, "stopped", false)
}

// PauseTimer stops a task's manual timer the same way StopTimer does, but
// leaves is_paused set so a subsequent StartTimer resumes rather than
// starting fresh.
func (s *Store) PauseTimer(taskID string) (*task.Task, error) {
	return s.settleTimer(taskID, "paused", true)
}

func (s *Store) settleTimer(taskID, action string, paused bool) (*task.Task, error) {
	var result *task.Task
	entry, err := s.mutate(func(snap *snapshot) (*task.HistoryEntry, error) {
		t, ok := snap.tasks[taskID]
		if !ok {
			return nil, coordinatorerr.New(coordinatorerr.NotFound, "task not found").WithTaskID(taskID)
		}
		if !t.TimeTracking.IsRunning || t.TimeTracking.StartedAt == nil {
			result = t
			return nil, nil
		}

		now := time.Now().UTC()
		elapsed := now.Sub(*t.TimeTracking.StartedAt).Seconds()
		t.TimeTracking.TotalSeconds += elapsed
		t.TimeTracking.StartedAt = nil
		t.TimeTracking.IsRunning = false
		t.TimeTracking.IsPaused = paused
		t.UpdatedAt = now
		result = t
		return &task.HistoryEntry{
			Kind:    "task.timer_" + action,
			Payload: map[string]any{"task_id": taskID, "elapsed_seconds": elapsed},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if entry != nil {
		s.publish(event.NewTaskTimerEvent(taskID, action))
	}
	return result, nil
}
