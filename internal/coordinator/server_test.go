package coordinator

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/claudia-coord/claudia/internal/config"
	"github.com/claudia-coord/claudia/internal/event"
	"github.com/claudia-coord/claudia/internal/logging"
	"github.com/claudia-coord/claudia/internal/store"
	"github.com/claudia-coord/claudia/internal/task"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	st, err := store.Open(t.TempDir(), cfg, logging.NopLogger(), event.NewBus())
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	s := NewServer(st, cfg, logging.NopLogger(), event.NewBus(), "session-main")
	return s, httptest.NewServer(s.mux)
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := srv.Client().Post(srv.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	rec := httptest.NewRecorder()
	rec.Code = resp.StatusCode
	_, _ = rec.Body.ReadFrom(resp.Body)
	return rec
}

func TestHandleTaskCreate_Success(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	rec := postJSON(t, srv, "/task/create", taskCreateRequest{Title: "write docs"})
	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got task.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != "task-001" {
		t.Errorf("ID = %q, want task-001", got.ID)
	}
}

func TestHandleTaskCreate_EmptyTitleReturns400(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	rec := postJSON(t, srv, "/task/create", taskCreateRequest{})
	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleTaskComplete_UnknownTaskReturns404(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	rec := postJSON(t, srv, "/task/complete", taskCompleteRequest{TaskID: "task-999", SessionID: "s1"})
	if rec.Code != 404 {
		t.Fatalf("status = %d, want 404, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleTaskComplete_WrongAssigneeReturns409(t *testing.T) {
	s, srv := newTestServer(t)
	defer srv.Close()

	created, err := s.store.CreateTask(store.CreateTaskInput{Title: "ship it"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if _, err := s.store.RegisterSession("owner", task.RoleWorker, "", nil); err != nil {
		t.Fatalf("RegisterSession() error = %v", err)
	}
	claimed, err := s.store.RequestTask("owner", nil)
	if err != nil || claimed == nil {
		t.Fatalf("RequestTask() = %v, %v", claimed, err)
	}

	rec := postJSON(t, srv, "/task/complete", taskCompleteRequest{TaskID: created.ID, SessionID: "someone-else"})
	if rec.Code != 409 {
		t.Fatalf("status = %d, want 409, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleSessionRegisterThenHeartbeat(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	rec := postJSON(t, srv, "/session/register", sessionRegisterRequest{SessionID: "s1", Role: task.RoleWorker})
	if rec.Code != 200 {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, srv, "/session/heartbeat", sessionIDRequest{SessionID: "s1"})
	if rec.Code != 200 {
		t.Fatalf("heartbeat status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, srv, "/session/heartbeat", sessionIDRequest{SessionID: "unknown"})
	if rec.Code != 404 {
		t.Fatalf("heartbeat unknown status = %d, want 404, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleStatus_ReflectsTaskCounts(t *testing.T) {
	s, srv := newTestServer(t)
	defer srv.Close()

	if _, err := s.store.CreateTask(store.CreateTaskInput{Title: "a"}); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	resp, err := srv.Client().Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got store.Status
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Counts[task.StatusOpen] != 1 {
		t.Errorf("open count = %d, want 1", got.Counts[task.StatusOpen])
	}
}

func TestHandleTaskEdit_CycleReturns409(t *testing.T) {
	s, srv := newTestServer(t)
	defer srv.Close()

	a, err := s.store.CreateTask(store.CreateTaskInput{Title: "a"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	b, err := s.store.CreateTask(store.CreateTaskInput{Title: "b", BlockedBy: []string{a.ID}})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	blockedBy := []string{b.ID}
	rec := postJSON(t, srv, "/task/edit", taskEditRequest{TaskID: a.ID, BlockedBy: &blockedBy})
	if rec.Code != 409 {
		t.Fatalf("status = %d, want 409, body = %s", rec.Code, rec.Body.String())
	}
}

// TestHandleTaskRequest_ConcurrentSessionsOneTaskBacklog drives §8's S4
// scenario through the HTTP surface: two sessions POST /task/request
// concurrently against a one-task backlog, and exactly one receives the
// task while the other gets a null task field.
func TestHandleTaskRequest_ConcurrentSessionsOneTaskBacklog(t *testing.T) {
	s, srv := newTestServer(t)
	defer srv.Close()

	tk, err := s.store.CreateTask(store.CreateTaskInput{Title: "only task"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	for _, id := range []string{"session-a", "session-b"} {
		rec := postJSON(t, srv, "/session/register", sessionRegisterRequest{SessionID: id, Role: task.RoleWorker})
		if rec.Code != 200 {
			t.Fatalf("register %s: status = %d, body = %s", id, rec.Code, rec.Body.String())
		}
	}

	var wg sync.WaitGroup
	recs := make([]*httptest.ResponseRecorder, 2)
	sessionIDs := []string{"session-a", "session-b"}

	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			recs[i] = postJSON(t, srv, "/task/request", taskRequestRequest{SessionID: sessionIDs[i]})
		}(i)
	}
	wg.Wait()

	claims := 0
	for i, rec := range recs {
		if rec.Code != 200 {
			t.Fatalf("request %s: status = %d, body = %s", sessionIDs[i], rec.Code, rec.Body.String())
		}
		var got task.Task
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode response for %s: %v", sessionIDs[i], err)
		}
		if got.ID != "" {
			claims++
			if got.ID != tk.ID {
				t.Errorf("request %s claimed unexpected task %s", sessionIDs[i], got.ID)
			}
		}
	}
	if claims != 1 {
		t.Errorf("claims = %d across 2 concurrent /task/request calls against a 1-task backlog, want exactly 1", claims)
	}
}
