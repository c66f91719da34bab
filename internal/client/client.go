// Package client implements the Agent façade of §4.5: one object whose
// operations dispatch either straight to a local *store.Store (single
// mode) or over HTTP to a running Coordinator (parallel mode), returning
// the same shapes and the same coordinatorerr.Kind values either way.
package client

import (
	"path/filepath"

	"github.com/claudia-coord/claudia/internal/config"
	"github.com/claudia-coord/claudia/internal/coordinator"
	"github.com/claudia-coord/claudia/internal/logging"
	"github.com/claudia-coord/claudia/internal/session"
	"github.com/claudia-coord/claudia/internal/store"
)

// Mode is the dispatch mode an Agent resolved at construction.
type Mode int

const (
	// ModeSingle dispatches directly to a local Store transaction.
	ModeSingle Mode = iota
	// ModeParallel dispatches over HTTP to a running Coordinator.
	ModeParallel
)

func (m Mode) String() string {
	if m == ModeParallel {
		return "parallel"
	}
	return "single"
}

// Agent is the client façade used by every CLI command and by any future
// embedder: it hides whether a Coordinator process is running.
type Agent struct {
	stateDir string
	cfg      *config.Config
	logger   *logging.Logger

	mode Mode
	st   *store.Store // single mode only
	http *httpBackend // parallel mode only
}

// New resolves dispatch mode for stateDir (per §4.5: present
// .parallel-mode + a live coordinator.pid ⇒ parallel, else single) and
// returns a ready-to-use Agent. In single mode it opens the Store
// directly; in parallel mode it only needs the coordinator's address.
func New(stateDir string, cfg *config.Config, logger *logging.Logger) (*Agent, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	a := &Agent{stateDir: stateDir, cfg: cfg, logger: logger.WithComponent("client")}
	if err := a.detectMode(); err != nil {
		return nil, err
	}
	return a, nil
}

// detectMode implements §4.5's mode-detection rule and opens the
// matching backend. Mode is cached on the Agent but re-checked by
// Reconnect on a parallel-mode connection failure, since a coordinator
// that died mid-session should fall an Agent back to single mode.
func (a *Agent) detectMode() error {
	pidFile := filepath.Join(a.stateDir, session.PIDFileName)
	pm, err := coordinator.ReadParallelMode(a.stateDir)
	if err == nil && session.CoordinatorAlive(pidFile) {
		a.mode = ModeParallel
		a.http = newHTTPBackend(pm.Port, a.cfg)
		return nil
	}

	a.mode = ModeSingle
	st, err := store.Open(a.stateDir, a.cfg, a.logger, nil)
	if err != nil {
		return err
	}
	a.st = st
	return nil
}

// Reconnect re-runs mode detection, used after a parallel-mode call
// exhausts its retry budget: the coordinator may have exited, in which
// case the Agent should fall back to operating on the Store directly
// rather than surfacing Unavailable forever.
func (a *Agent) Reconnect() error {
	return a.detectMode()
}

// Mode reports which backend this Agent is currently dispatching to.
func (a *Agent) Mode() Mode {
	return a.mode
}
