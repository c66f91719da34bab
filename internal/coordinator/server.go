// Package coordinator serves the HTTP API of §6 over the Store, runs the
// periodic cleanup/flush timers of §4.4, and manages the sentinel files
// (coordinator.pid, .parallel-mode) that let clients detect parallel mode.
package coordinator

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/claudia-coord/claudia/internal/config"
	"github.com/claudia-coord/claudia/internal/event"
	"github.com/claudia-coord/claudia/internal/logging"
	"github.com/claudia-coord/claudia/internal/store"
)

// Server is the Coordinator service: a single in-process mutex wraps
// every mutation (delegated to the Store's own lock), so the HTTP layer
// itself holds no additional lock beyond request-response serialization
// per connection, per §4.4's single-threaded cooperative event loop.
type Server struct {
	store  *store.Store
	cfg    *config.Config
	logger *logging.Logger
	bus    *event.Bus

	mux           *http.ServeMux
	httpServer    *http.Server
	mainSessionID string

	stateDir string
	hub      *subscriberHub

	periodicDone chan struct{}
	periodicWG   conc.WaitGroup

	mu       sync.Mutex
	shutdown bool
}

// NewServer builds a Server bound to st. mainSessionID is recorded in
// .parallel-mode so workers can identify the session that started the
// coordinator.
func NewServer(st *store.Store, cfg *config.Config, logger *logging.Logger, bus *event.Bus, mainSessionID string) *Server {
	if logger == nil {
		logger = logging.NopLogger()
	}
	s := &Server{
		store:         st,
		cfg:           cfg,
		logger:        logger.WithComponent("coordinator"),
		bus:           bus,
		mux:           http.NewServeMux(),
		mainSessionID: mainSessionID,
		hub:           newSubscriberHub(),
		periodicDone:  make(chan struct{}),
	}
	s.setupRoutes()
	if bus != nil {
		bus.SubscribeAll(func(e event.Event) {
			s.hub.broadcast(e)
		})
	}
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /tasks", s.handleListTasks)
	s.mux.HandleFunc("GET /parallel-summary", s.handleParallelSummary)
	s.mux.HandleFunc("POST /session/register", s.handleSessionRegister)
	s.mux.HandleFunc("POST /session/heartbeat", s.handleSessionHeartbeat)
	s.mux.HandleFunc("POST /session/end", s.handleSessionEnd)
	s.mux.HandleFunc("POST /task/create", s.handleTaskCreate)
	s.mux.HandleFunc("POST /task/request", s.handleTaskRequest)
	s.mux.HandleFunc("POST /task/complete", s.handleTaskComplete)
	s.mux.HandleFunc("POST /task/reopen", s.handleTaskReopen)
	s.mux.HandleFunc("POST /task/edit", s.handleTaskEdit)
	s.mux.HandleFunc("POST /task/delete", s.handleTaskDelete)
	s.mux.HandleFunc("POST /task/note", s.handleTaskNote)
	s.mux.HandleFunc("POST /task/timer-start", s.handleTaskTimerStart)
	s.mux.HandleFunc("POST /task/timer-stop", s.handleTaskTimerStop)
	s.mux.HandleFunc("POST /task/timer-pause", s.handleTaskTimerPause)
	s.mux.HandleFunc("POST /task/bulk-complete", s.handleBulkComplete)
	s.mux.HandleFunc("POST /subtask/create", s.handleSubtaskCreate)
	s.mux.HandleFunc("GET /subtask/progress", s.handleSubtaskProgress)
	s.mux.HandleFunc("GET /subscribe", s.handleSubscribe)
}

// Handler returns the request-logging-wrapped route table, so callers
// (tests, or an embedder that wants its own listener) can serve it
// without going through ListenAndServe.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.mux)
}

// ListenAndServe starts the HTTP server on the configured port (0 picks a
// free port) and the periodic cleanup/flush timers. It returns as soon as
// the listener is bound, with the bound address; the server keeps serving
// in a goroutine until Shutdown, and a serve error arrives on errCh.
func (s *Server) ListenAndServe() (addr string, errCh <-chan error, err error) {
	port := 0
	if s.cfg != nil {
		port = s.cfg.Coordinator.Port
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return "", nil, fmt.Errorf("listen: %w", err)
	}

	s.httpServer = &http.Server{Handler: s.withRequestLogging(s.mux)}
	ch := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			ch <- err
		}
		close(ch)
	}()

	s.startPeriodicTasks()
	return ln.Addr().String(), ch, nil
}

// Start binds the listener, writes the sentinel files (coordinator.pid,
// .parallel-mode) only once the coordinator can actually serve requests,
// and returns the bound address. stateDir is remembered so Shutdown can
// remove the sentinels from the same directory.
func (s *Server) Start(stateDir string) (addr string, errCh <-chan error, err error) {
	s.stateDir = stateDir
	addr, errCh, err = s.ListenAndServe()
	if err != nil {
		return "", nil, err
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", nil, fmt.Errorf("parse bound address: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", nil, fmt.Errorf("parse bound port: %w", err)
	}
	if err := writeSentinels(stateDir, port, s.mainSessionID); err != nil {
		return "", nil, fmt.Errorf("write sentinels: %w", err)
	}
	s.watchSentinels(stateDir)
	return addr, errCh, nil
}

func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		elapsed := time.Since(start)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", elapsed)
		if s.cfg != nil && s.cfg.Coordinator.RequestTimeout > 0 && elapsed > s.cfg.Coordinator.RequestTimeout {
			s.logger.Warn("slow request", "method", r.Method, "path", r.URL.Path, "duration", elapsed)
		}
	})
}

// Shutdown drains in-flight requests with ctx's deadline, stops the
// periodic timers, and removes the sentinel files, per §4.4's shutdown
// sequence.
func (s *Server) Shutdown(ctx context.Context, stateDir string) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	s.mu.Unlock()

	close(s.periodicDone)
	s.periodicWG.Wait()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.hub.closeAll()
	removeSentinels(stateDir)
	return err
}
