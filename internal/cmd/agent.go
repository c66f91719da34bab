package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/claudia-coord/claudia/internal/client"
	"github.com/claudia-coord/claudia/internal/config"
	"github.com/claudia-coord/claudia/internal/logging"
)

// newAgent resolves the state directory from the loaded config relative
// to the current working directory and opens a client.Agent against it,
// picking single or parallel mode automatically per §4.5.
func newAgent() (*client.Agent, error) {
	cfg := config.Get()
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	stateDir := cfg.ResolveStateDir(cwd)

	var logger *logging.Logger
	if cfg.Logging.Enabled {
		logger, err = logging.NewLoggerWithRotation(stateDir, cfg.Logging.Level, rotationConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("open logger: %w", err)
		}
	} else {
		logger = logging.NopLogger()
	}

	return client.New(stateDir, cfg, logger)
}

// rotationConfig translates the logging section of cfg into the
// logging.RotationConfig NewLoggerWithRotation expects.
func rotationConfig(cfg *config.Config) logging.RotationConfig {
	return logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	}
}

// sessionIDFlag returns the session id a command should act as: the
// explicit --session flag if given, else $CLAUDIA_SESSION_ID, else a
// freshly generated one (persisted by the caller via `session register`
// if it wants to reuse it across invocations).
func sessionIDFlag(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("CLAUDIA_SESSION_ID"); env != "" {
		return env
	}
	return uuid.NewString()
}
