package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/claudia-coord/claudia/internal/config"
	"github.com/claudia-coord/claudia/internal/logging"
	"github.com/claudia-coord/claudia/internal/store"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Export and import task templates",
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateExportCmd, templateImportCmd)
}

// openLocalStore opens the store directly, bypassing the Agent façade.
// Template export/import is a thin, occasional CLI operation on
// templates.json rather than a task/session claim, so it does not need
// parallel-mode dispatch: it runs against whichever state directory is
// configured, coordinator or no coordinator, same as `claudia init`.
func openLocalStore() (*store.Store, error) {
	cfg := config.Get()
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	stateDir := cfg.ResolveStateDir(cwd)
	return store.Open(stateDir, cfg, logging.NopLogger(), nil)
}

var templateExportCmd = &cobra.Command{
	Use:   "export <template-id> <path.toml>",
	Short: "Write a template to a TOML file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openLocalStore()
		if err != nil {
			return err
		}
		if err := st.ExportTemplateTOML(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("exported %s to %s\n", args[0], args[1])
		return nil
	},
}

var templateImportCmd = &cobra.Command{
	Use:   "import <path.toml>",
	Short: "Create a template from a TOML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openLocalStore()
		if err != nil {
			return err
		}
		tm, err := st.ImportTemplateTOML(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("imported template %s (%s)\n", tm.ID, tm.Name)
		return nil
	},
}
