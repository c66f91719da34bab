package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/claudia-coord/claudia/internal/task"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Register, heartbeat, and end sessions",
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionRegisterCmd, sessionHeartbeatCmd, sessionEndCmd)
}

var (
	registerID      string
	registerRole    string
	registerContext string
	registerLabels  []string
)

var sessionRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register (or refresh) a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent()
		if err != nil {
			return err
		}
		sessionID := sessionIDFlag(registerID)
		role := task.Role(registerRole)
		if !role.Valid() {
			return fmt.Errorf("invalid role %q: must be %q or %q", registerRole, task.RoleMain, task.RoleWorker)
		}
		sess, err := a.RegisterSession(context.Background(), sessionID, role, registerContext, registerLabels)
		if err != nil {
			return err
		}
		fmt.Printf("registered %s (%s)\n", sess.SessionID, sess.Role)
		return nil
	},
}

func init() {
	sessionRegisterCmd.Flags().StringVar(&registerID, "session", "", "session id (default: $CLAUDIA_SESSION_ID or a new id)")
	sessionRegisterCmd.Flags().StringVar(&registerRole, "role", string(task.RoleWorker), "main or worker")
	sessionRegisterCmd.Flags().StringVar(&registerContext, "context", "", "free-form description of this session's work")
	sessionRegisterCmd.Flags().StringSliceVar(&registerLabels, "label", nil, "labels used for scheduler affinity")
}

var heartbeatSessionID string

var sessionHeartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Refresh a session's last-heartbeat timestamp",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent()
		if err != nil {
			return err
		}
		sessionID := sessionIDFlag(heartbeatSessionID)
		if err := a.Heartbeat(context.Background(), sessionID); err != nil {
			return err
		}
		fmt.Printf("%s heartbeat ok\n", sessionID)
		return nil
	},
}

func init() {
	sessionHeartbeatCmd.Flags().StringVar(&heartbeatSessionID, "session", "", "session id (default: $CLAUDIA_SESSION_ID)")
}

var (
	endSessionID   string
	endReleaseTask bool
)

var sessionEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent()
		if err != nil {
			return err
		}
		sessionID := sessionIDFlag(endSessionID)
		if err := a.EndSession(context.Background(), sessionID, endReleaseTask); err != nil {
			return err
		}
		fmt.Printf("%s ended\n", sessionID)
		return nil
	},
}

func init() {
	sessionEndCmd.Flags().StringVar(&endSessionID, "session", "", "session id (default: $CLAUDIA_SESSION_ID)")
	sessionEndCmd.Flags().BoolVar(&endReleaseTask, "release", true, "return the session's claimed task to open")
}
