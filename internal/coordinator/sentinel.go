package coordinator

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/claudia-coord/claudia/internal/session"
)

// ParallelModeFileName is the sentinel file whose presence signals
// parallel mode to clients, per §6.
const ParallelModeFileName = ".parallel-mode"

// ParallelMode is the JSON body of .parallel-mode.
type ParallelMode struct {
	Port        int    `json:"port"`
	MainSession string `json:"main_session"`
}

// writeSentinels writes coordinator.pid and .parallel-mode after the
// HTTP listener is bound, so a client never observes .parallel-mode
// before the coordinator can actually answer requests.
func writeSentinels(stateDir string, port int, mainSessionID string) error {
	if err := session.WritePID(filepath.Join(stateDir, session.PIDFileName), os.Getpid()); err != nil {
		return err
	}
	data, err := json.Marshal(ParallelMode{Port: port, MainSession: mainSessionID})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(stateDir, ParallelModeFileName), data, 0644)
}

// removeSentinels is called on graceful shutdown (§4.4: "remove
// .parallel-mode and coordinator.pid, exit 0"). On an ungraceful exit
// these files are left behind; the next client detects a dead PID via
// session.CoordinatorAlive and offers to clean up.
func removeSentinels(stateDir string) {
	_ = os.Remove(filepath.Join(stateDir, ParallelModeFileName))
	_ = os.Remove(filepath.Join(stateDir, session.PIDFileName))
}

// ReadParallelMode reads .parallel-mode, used by the Client façade for
// mode detection (§4.5).
func ReadParallelMode(stateDir string) (*ParallelMode, error) {
	data, err := os.ReadFile(filepath.Join(stateDir, ParallelModeFileName))
	if err != nil {
		return nil, err
	}
	var pm ParallelMode
	if err := json.Unmarshal(data, &pm); err != nil {
		return nil, err
	}
	return &pm, nil
}
