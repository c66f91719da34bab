package coordinator

import (
	"encoding/json"
	"net/http"

	"github.com/claudia-coord/claudia/internal/coordinatorerr"
	"github.com/claudia-coord/claudia/internal/store"
	"github.com/claudia-coord/claudia/internal/task"
)

// writeJSON writes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to the status code its coordinatorerr.Kind carries
// (§6: 400 malformed, 404 unknown id, 409 invariant violation, 503 store
// locked) and writes a JSON error body of {"error", "kind"}.
func writeError(w http.ResponseWriter, err error) {
	kind := coordinatorerr.KindOf(err)
	writeJSON(w, kind.HTTPStatus(), map[string]string{
		"error": err.Error(),
		"kind":  kind.String(),
	})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func badRequest(w http.ResponseWriter, err error) {
	writeError(w, coordinatorerr.Wrap(coordinatorerr.InvalidArgument, "malformed request body", err))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetStatus()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleParallelSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.ParallelSummary()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type sessionRegisterRequest struct {
	SessionID string    `json:"session_id"`
	Role      task.Role `json:"role"`
	Context   string    `json:"context"`
	Labels    []string  `json:"labels"`
}

func (s *Server) handleSessionRegister(w http.ResponseWriter, r *http.Request) {
	var req sessionRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	sess, err := s.store.RegisterSession(req.SessionID, req.Role, req.Context, req.Labels)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type sessionIDRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleSessionHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req sessionIDRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := s.store.Heartbeat(req.SessionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sessionEndRequest struct {
	SessionID   string `json:"session_id"`
	ReleaseTask bool   `json:"release"`
}

func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	var req sessionEndRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := s.store.EndSession(req.SessionID, req.ReleaseTask); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type taskCreateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    *int     `json:"priority"`
	Labels      []string `json:"labels"`
	BlockedBy   []string `json:"blocked_by"`
	ParentID    string   `json:"parent_id"`
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var req taskCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	t, err := s.store.CreateTask(store.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Labels:      req.Labels,
		BlockedBy:   req.BlockedBy,
		ParentID:    req.ParentID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type taskRequestRequest struct {
	SessionID       string   `json:"session_id"`
	PreferredLabels []string `json:"preferred_labels"`
}

func (s *Server) handleTaskRequest(w http.ResponseWriter, r *http.Request) {
	var req taskRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	t, err := s.store.RequestTask(req.SessionID, req.PreferredLabels)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type taskCompleteRequest struct {
	TaskID    string `json:"task_id"`
	SessionID string `json:"session_id"`
	Note      string `json:"note"`
	Branch    string `json:"branch"`
	Force     bool   `json:"force"`
}

func (s *Server) handleTaskComplete(w http.ResponseWriter, r *http.Request) {
	var req taskCompleteRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	t, err := s.store.CompleteTask(req.TaskID, req.SessionID, req.Note, req.Branch, req.Force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type taskReopenRequest struct {
	TaskID string `json:"task_id"`
	Note   string `json:"note"`
}

func (s *Server) handleTaskReopen(w http.ResponseWriter, r *http.Request) {
	var req taskReopenRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	t, err := s.store.ReopenTask(req.TaskID, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type taskEditRequest struct {
	TaskID      string       `json:"task_id"`
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Priority    *int         `json:"priority"`
	Labels      *[]string    `json:"labels"`
	BlockedBy   *[]string    `json:"blocked_by"`
	Status      *task.Status `json:"status"`
}

func (s *Server) handleTaskEdit(w http.ResponseWriter, r *http.Request) {
	var req taskEditRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	t, err := s.store.EditTask(req.TaskID, store.EditFields{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Labels:      req.Labels,
		BlockedBy:   req.BlockedBy,
		Status:      req.Status,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type taskDeleteRequest struct {
	TaskID string `json:"task_id"`
	Force  bool   `json:"force"`
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	var req taskDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := s.store.DeleteTask(req.TaskID, req.Force); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type taskNoteRequest struct {
	TaskID    string `json:"task_id"`
	SessionID string `json:"session_id"`
	Note      string `json:"note"`
}

func (s *Server) handleTaskNote(w http.ResponseWriter, r *http.Request) {
	var req taskNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := s.store.AddNote(req.TaskID, req.SessionID, req.Note); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type taskTimerRequest struct {
	TaskID string `json:"task_id"`
}

func (s *Server) handleTaskTimerStart(w http.ResponseWriter, r *http.Request) {
	var req taskTimerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	t, err := s.store.StartTimer(req.TaskID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTaskTimerStop(w http.ResponseWriter, r *http.Request) {
	var req taskTimerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	t, err := s.store.StopTimer(req.TaskID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTaskTimerPause(w http.ResponseWriter, r *http.Request) {
	var req taskTimerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	t, err := s.store.PauseTimer(req.TaskID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type bulkCompleteRequest struct {
	TaskIDs   []string `json:"task_ids"`
	SessionID string   `json:"session_id"`
	Note      string   `json:"note"`
}

type bulkCompleteResponse struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
}

func (s *Server) handleBulkComplete(w http.ResponseWriter, r *http.Request) {
	var req bulkCompleteRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	succeeded, failed := s.store.BulkComplete(req.TaskIDs, req.SessionID, req.Note)
	writeJSON(w, http.StatusOK, bulkCompleteResponse{Succeeded: succeeded, Failed: failed})
}

type subtaskCreateRequest struct {
	ParentID string `json:"parent_id"`
	Title    string `json:"title"`
}

func (s *Server) handleSubtaskCreate(w http.ResponseWriter, r *http.Request) {
	var req subtaskCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	t, err := s.store.CreateSubtask(req.ParentID, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type subtaskProgressResponse struct {
	Done       int     `json:"done"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

func (s *Server) handleSubtaskProgress(w http.ResponseWriter, r *http.Request) {
	parentID := r.URL.Query().Get("parent_id")
	done, total, percentage, err := s.store.SubtaskProgress(parentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subtaskProgressResponse{Done: done, Total: total, Percentage: percentage})
}
