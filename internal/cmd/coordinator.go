package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/claudia-coord/claudia/internal/config"
	"github.com/claudia-coord/claudia/internal/coordinator"
	"github.com/claudia-coord/claudia/internal/event"
	"github.com/claudia-coord/claudia/internal/logging"
	"github.com/claudia-coord/claudia/internal/session"
	"github.com/claudia-coord/claudia/internal/store"
)

var coordinatorCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Run or stop the background coordinator process",
}

func init() {
	rootCmd.AddCommand(coordinatorCmd)
	coordinatorCmd.AddCommand(coordinatorStartCmd, coordinatorStopCmd)
}

var coordinatorMainSession string

var coordinatorStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the coordinator in the foreground",
	Long: `Starts the Coordinator HTTP service (§6) against the configured
state directory and blocks until SIGINT/SIGTERM. Other claudia
processes against the same state directory automatically switch to
parallel mode once .parallel-mode appears.`,
	RunE: runCoordinatorStart,
}

func init() {
	coordinatorStartCmd.Flags().StringVar(&coordinatorMainSession, "main-session", "", "session id recorded as the main session in .parallel-mode")
}

func runCoordinatorStart(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	stateDir := cfg.ResolveStateDir(cwd)

	var logger *logging.Logger
	if cfg.Logging.Enabled {
		logger, err = logging.NewLoggerWithRotation(stateDir, cfg.Logging.Level, rotationConfig(cfg))
		if err != nil {
			return fmt.Errorf("open logger: %w", err)
		}
	} else {
		logger = logging.NopLogger()
	}

	pidFile := filepath.Join(stateDir, session.PIDFileName)
	if session.CoordinatorAlive(pidFile) {
		return fmt.Errorf("a coordinator is already running against %s", stateDir)
	}

	bus := event.NewBus()
	st, err := store.Open(stateDir, cfg, logger, bus)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	mainSession := sessionIDFlag(coordinatorMainSession)
	srv := coordinator.NewServer(st, cfg, logger, bus, mainSession)

	addr, errCh, err := srv.Start(stateDir)
	if err != nil {
		return fmt.Errorf("start coordinator: %w", err)
	}
	fmt.Printf("coordinator listening on %s (main session %s)\n", addr, mainSession)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("coordinator exited: %w", err)
		}
	case <-sigCh:
		fmt.Println("shutting down...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx, stateDir)
}

var coordinatorStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal a running coordinator to shut down",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		stateDir := cfg.ResolveStateDir(cwd)
		pidFile := filepath.Join(stateDir, session.PIDFileName)

		pid, err := session.ReadPID(pidFile)
		if err != nil {
			return fmt.Errorf("no coordinator.pid in %s: %w", stateDir, err)
		}
		if !session.IsProcessAlive(pid) {
			return fmt.Errorf("coordinator.pid names pid %d, which is not running", pid)
		}
		proc, err := os.FindProcess(pid)
		if err != nil {
			return fmt.Errorf("find process %d: %w", pid, err)
		}
		if err := proc.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("signal process %d: %w", pid, err)
		}
		fmt.Printf("sent SIGTERM to coordinator (pid %d)\n", pid)
		return nil
	},
}
