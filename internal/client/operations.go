package client

import (
	"context"
	"net/url"

	"github.com/claudia-coord/claudia/internal/coordinatorerr"
	"github.com/claudia-coord/claudia/internal/store"
	"github.com/claudia-coord/claudia/internal/task"
)

// CreateTask creates a task, dispatching to the Store directly in single
// mode or POSTing /task/create in parallel mode.
func (a *Agent) CreateTask(ctx context.Context, in store.CreateTaskInput) (*task.Task, error) {
	if a.mode == ModeSingle {
		return a.st.CreateTask(in)
	}
	var t task.Task
	body := map[string]any{
		"title": in.Title, "description": in.Description, "priority": in.Priority,
		"labels": in.Labels, "blocked_by": in.BlockedBy, "parent_id": in.ParentID,
	}
	if err := a.http.do(ctx, "POST", "/task/create", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTask fetches a task by id. The HTTP API has no single-task GET
// endpoint (§6 only exposes bulk /tasks), so parallel mode lists and
// filters client-side.
func (a *Agent) GetTask(ctx context.Context, id string) (*task.Task, error) {
	if a.mode == ModeSingle {
		return a.st.GetTask(id)
	}
	tasks, err := a.ListTasks(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, taskNotFound(id)
}

// ListTasks lists tasks, optionally filtered by status.
func (a *Agent) ListTasks(ctx context.Context, statusFilter string) ([]*task.Task, error) {
	if a.mode == ModeSingle {
		return a.st.ListTasks(statusFilter)
	}
	path := "/tasks"
	if statusFilter != "" {
		path += "?status=" + url.QueryEscape(statusFilter)
	}
	var tasks []*task.Task
	if err := a.http.do(ctx, "GET", path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// RequestTask claims the next ready task for sessionID, or returns nil if
// none is available.
func (a *Agent) RequestTask(ctx context.Context, sessionID string, preferredLabels []string) (*task.Task, error) {
	if a.mode == ModeSingle {
		return a.st.RequestTask(sessionID, preferredLabels)
	}
	var t *task.Task
	body := map[string]any{"session_id": sessionID, "preferred_labels": preferredLabels}
	if err := a.http.do(ctx, "POST", "/task/request", body, &t); err != nil {
		return nil, err
	}
	return t, nil
}

// CompleteTask marks a task done.
func (a *Agent) CompleteTask(ctx context.Context, taskID, sessionID, note, branch string, force bool) (*task.Task, error) {
	if a.mode == ModeSingle {
		return a.st.CompleteTask(taskID, sessionID, note, branch, force)
	}
	var t task.Task
	body := map[string]any{"task_id": taskID, "session_id": sessionID, "note": note, "branch": branch, "force": force}
	if err := a.http.do(ctx, "POST", "/task/complete", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ReopenTask reopens a done or blocked task.
func (a *Agent) ReopenTask(ctx context.Context, taskID, note string) (*task.Task, error) {
	if a.mode == ModeSingle {
		return a.st.ReopenTask(taskID, note)
	}
	var t task.Task
	body := map[string]any{"task_id": taskID, "note": note}
	if err := a.http.do(ctx, "POST", "/task/reopen", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// EditTask applies a partial field update.
func (a *Agent) EditTask(ctx context.Context, taskID string, fields store.EditFields) (*task.Task, error) {
	if a.mode == ModeSingle {
		return a.st.EditTask(taskID, fields)
	}
	var t task.Task
	body := map[string]any{
		"task_id": taskID, "title": fields.Title, "description": fields.Description,
		"priority": fields.Priority, "labels": fields.Labels, "blocked_by": fields.BlockedBy,
		"status": fields.Status,
	}
	if err := a.http.do(ctx, "POST", "/task/edit", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask removes a task (and, with force, its subtasks).
func (a *Agent) DeleteTask(ctx context.Context, taskID string, force bool) error {
	if a.mode == ModeSingle {
		return a.st.DeleteTask(taskID, force)
	}
	body := map[string]any{"task_id": taskID, "force": force}
	return a.http.do(ctx, "POST", "/task/delete", body, nil)
}

// AddNote appends a note to a task.
func (a *Agent) AddNote(ctx context.Context, taskID, sessionID, note string) error {
	if a.mode == ModeSingle {
		return a.st.AddNote(taskID, sessionID, note)
	}
	body := map[string]any{"task_id": taskID, "session_id": sessionID, "note": note}
	return a.http.do(ctx, "POST", "/task/note", body, nil)
}

// StartTimer starts or resumes a task's manual timer.
func (a *Agent) StartTimer(ctx context.Context, taskID string) (*task.Task, error) {
	if a.mode == ModeSingle {
		return a.st.StartTimer(taskID)
	}
	var t task.Task
	if err := a.http.do(ctx, "POST", "/task/timer-start", map[string]any{"task_id": taskID}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// StopTimer stops a task's manual timer, accumulating elapsed time.
func (a *Agent) StopTimer(ctx context.Context, taskID string) (*task.Task, error) {
	if a.mode == ModeSingle {
		return a.st.StopTimer(taskID)
	}
	var t task.Task
	if err := a.http.do(ctx, "POST", "/task/timer-stop", map[string]any{"task_id": taskID}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// PauseTimer pauses a task's manual timer, accumulating elapsed time but
// leaving it resumable via StartTimer.
func (a *Agent) PauseTimer(ctx context.Context, taskID string) (*task.Task, error) {
	if a.mode == ModeSingle {
		return a.st.PauseTimer(taskID)
	}
	var t task.Task
	if err := a.http.do(ctx, "POST", "/task/timer-pause", map[string]any{"task_id": taskID}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// BulkComplete completes several tasks, reporting which succeeded.
func (a *Agent) BulkComplete(ctx context.Context, taskIDs []string, sessionID, note string) (succeeded, failed []string, err error) {
	if a.mode == ModeSingle {
		succeeded, failed = a.st.BulkComplete(taskIDs, sessionID, note)
		return succeeded, failed, nil
	}
	var resp struct {
		Succeeded []string `json:"succeeded"`
		Failed    []string `json:"failed"`
	}
	body := map[string]any{"task_ids": taskIDs, "session_id": sessionID, "note": note}
	if err := a.http.do(ctx, "POST", "/task/bulk-complete", body, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Succeeded, resp.Failed, nil
}

// CreateSubtask creates a subtask of parentID.
func (a *Agent) CreateSubtask(ctx context.Context, parentID, title string) (*task.Task, error) {
	if a.mode == ModeSingle {
		return a.st.CreateSubtask(parentID, title)
	}
	var t task.Task
	body := map[string]any{"parent_id": parentID, "title": title}
	if err := a.http.do(ctx, "POST", "/subtask/create", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// SubtaskProgress reports how many of parentID's subtasks are done.
func (a *Agent) SubtaskProgress(ctx context.Context, parentID string) (done, total int, percentage float64, err error) {
	if a.mode == ModeSingle {
		return a.st.SubtaskProgress(parentID)
	}
	var resp struct {
		Done       int     `json:"done"`
		Total      int     `json:"total"`
		Percentage float64 `json:"percentage"`
	}
	path := "/subtask/progress?parent_id=" + url.QueryEscape(parentID)
	if err := a.http.do(ctx, "GET", path, nil, &resp); err != nil {
		return 0, 0, 0, err
	}
	return resp.Done, resp.Total, resp.Percentage, nil
}

// RegisterSession registers or refreshes a session.
func (a *Agent) RegisterSession(ctx context.Context, sessionID string, role task.Role, context_ string, labels []string) (*task.Session, error) {
	if a.mode == ModeSingle {
		return a.st.RegisterSession(sessionID, role, context_, labels)
	}
	var sess task.Session
	body := map[string]any{"session_id": sessionID, "role": role, "context": context_, "labels": labels}
	if err := a.http.do(ctx, "POST", "/session/register", body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Heartbeat refreshes a session's last-heartbeat timestamp.
func (a *Agent) Heartbeat(ctx context.Context, sessionID string) error {
	if a.mode == ModeSingle {
		return a.st.Heartbeat(sessionID)
	}
	body := map[string]any{"session_id": sessionID}
	return a.http.do(ctx, "POST", "/session/heartbeat", body, nil)
}

// EndSession ends a session, optionally releasing its claimed task.
func (a *Agent) EndSession(ctx context.Context, sessionID string, releaseTask bool) error {
	if a.mode == ModeSingle {
		return a.st.EndSession(sessionID, releaseTask)
	}
	body := map[string]any{"session_id": sessionID, "release": releaseTask}
	return a.http.do(ctx, "POST", "/session/end", body, nil)
}

// Status reports task counts by status and the live session list.
func (a *Agent) Status(ctx context.Context) (*store.Status, error) {
	if a.mode == ModeSingle {
		return a.st.GetStatus()
	}
	var st store.Status
	if err := a.http.do(ctx, "GET", "/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ParallelSummary groups tasks with a branch by that branch.
func (a *Agent) ParallelSummary(ctx context.Context) (map[string][]*task.Task, error) {
	if a.mode == ModeSingle {
		return a.st.ParallelSummary()
	}
	var summary map[string][]*task.Task
	if err := a.http.do(ctx, "GET", "/parallel-summary", nil, &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// UndoLast reverses the last reversible history entry. The HTTP API has
// no dedicated undo endpoint (§6 scopes undo to single-mode CLI use, per
// §9's design notes), so parallel mode refuses rather than silently
// acting on a different process's in-memory state.
func (a *Agent) UndoLast(ctx context.Context) (*task.Task, error) {
	if a.mode == ModeSingle {
		return a.st.UndoLast()
	}
	return nil, coordinatorerr.New(coordinatorerr.InvalidArgument, "undo is only available in single mode; stop the coordinator first")
}

func taskNotFound(id string) error {
	return coordinatorerr.New(coordinatorerr.NotFound, "task not found").WithTaskID(id)
}
