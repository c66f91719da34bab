package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/claudia-coord/claudia/internal/store"
	"github.com/claudia-coord/claudia/internal/util"
)

var (
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dangerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show task counts and session staleness",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent()
		if err != nil {
			return err
		}
		st, err := a.Status(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("mode: %s\n\n", a.Mode())
		for status, count := range st.Counts {
			fmt.Printf("%-12s %d\n", status, count)
		}

		if len(st.Sessions) == 0 {
			return nil
		}
		fmt.Println("\nsessions:")
		now := time.Now()
		for _, sess := range st.Sessions {
			label := util.TruncateSessionID(sess.SessionID)
			switch store.Staleness(sess, now) {
			case store.StalenessDanger:
				label = dangerStyle.Render(label)
			case store.StalenessWarn:
				label = warnStyle.Render(label)
			}
			working := sess.WorkingOn
			if working == "" {
				working = "-"
			}
			fmt.Printf("%s\t%s\t%s\n", label, sess.Role, working)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
