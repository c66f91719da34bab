package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/claudia-coord/claudia/internal/config"
	"github.com/claudia-coord/claudia/internal/event"
	"github.com/claudia-coord/claudia/internal/logging"
	"github.com/claudia-coord/claudia/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the state directory in the current project",
	Long: `Creates the state directory (.agent-state by default) that
tasks.json, templates.json, sessions/, and the event log live in.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	stateDir := cfg.ResolveStateDir(cwd)

	if _, err := store.Open(stateDir, cfg, logging.NopLogger(), event.NewBus()); err != nil {
		return fmt.Errorf("initialize state directory: %w", err)
	}

	fmt.Printf("initialized %s\n", stateDir)
	return nil
}
