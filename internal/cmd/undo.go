package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Reverse the last reversible history entry",
	Long: `Reads the tail of history.jsonl for the last entry carrying an
undo hint and applies its inverse. Only available in single mode; if a
coordinator is running, stop it first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent()
		if err != nil {
			return err
		}
		t, err := a.UndoLast(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("%s reverted to %s\n", t.ID, t.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(undoCmd)
}
