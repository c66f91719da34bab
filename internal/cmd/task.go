package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/claudia-coord/claudia/internal/store"
	"github.com/claudia-coord/claudia/internal/task"
	"github.com/claudia-coord/claudia/internal/util"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create, claim, and manage tasks",
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskCreateCmd, taskListCmd, taskRequestCmd, taskCompleteCmd,
		taskReopenCmd, taskEditCmd, taskDeleteCmd, taskNoteCmd, taskTimerCmd)
}

var taskTimerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Start, stop, or pause a task's manual timer",
}

func init() {
	taskTimerCmd.AddCommand(taskTimerStartCmd, taskTimerStopCmd, taskTimerPauseCmd)
}

var taskTimerStartCmd = &cobra.Command{
	Use:   "start <task-id>",
	Short: "Start or resume a task's timer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent()
		if err != nil {
			return err
		}
		t, err := a.StartTimer(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s timer running (total %.0fs)\n", t.ID, t.TimeTracking.TotalSeconds)
		return nil
	},
}

var taskTimerStopCmd = &cobra.Command{
	Use:   "stop <task-id>",
	Short: "Stop a task's timer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent()
		if err != nil {
			return err
		}
		t, err := a.StopTimer(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s timer stopped (total %.0fs)\n", t.ID, t.TimeTracking.TotalSeconds)
		return nil
	},
}

var taskTimerPauseCmd = &cobra.Command{
	Use:   "pause <task-id>",
	Short: "Pause a task's timer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent()
		if err != nil {
			return err
		}
		t, err := a.PauseTimer(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s timer paused (total %.0fs)\n", t.ID, t.TimeTracking.TotalSeconds)
		return nil
	},
}

var (
	taskDescription string
	taskPriority    int
	taskLabels      []string
	taskBlockedBy   []string
	taskParentID    string
)

var taskCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new open task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent()
		if err != nil {
			return err
		}
		in := store.CreateTaskInput{
			Title:       args[0],
			Description: taskDescription,
			Labels:      taskLabels,
			BlockedBy:   taskBlockedBy,
			ParentID:    taskParentID,
		}
		if cmd.Flags().Changed("priority") {
			p := taskPriority
			in.Priority = &p
		}
		t, err := a.CreateTask(context.Background(), in)
		if err != nil {
			return err
		}
		fmt.Printf("%s created: %s\n", t.ID, t.Title)
		return nil
	},
}

func init() {
	taskCreateCmd.Flags().StringVar(&taskDescription, "description", "", "task description")
	taskCreateCmd.Flags().IntVar(&taskPriority, "priority", task.DefaultPriority, "priority 0 (critical) to 3 (low)")
	taskCreateCmd.Flags().StringSliceVar(&taskLabels, "label", nil, "labels (repeatable)")
	taskCreateCmd.Flags().StringSliceVar(&taskBlockedBy, "blocked-by", nil, "task ids this task depends on")
	taskCreateCmd.Flags().StringVar(&taskParentID, "parent", "", "parent task id")
}

var taskListStatus string

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent()
		if err != nil {
			return err
		}
		tasks, err := a.ListTasks(context.Background(), taskListStatus)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			assignee := t.Assignee
			if assignee == "" {
				assignee = "-"
			}
			fmt.Printf("%s\t%-11s\tp%d\t%s\t%s\n", t.ID, t.Status, t.Priority, assignee, util.TruncateTaskTitle(t.Title))
		}
		return nil
	},
}

func init() {
	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "filter by status")
}

var (
	requestSessionID string
	requestLabels    []string
)

var taskRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Claim the next ready task for a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent()
		if err != nil {
			return err
		}
		sessionID := sessionIDFlag(requestSessionID)
		t, err := a.RequestTask(context.Background(), sessionID, requestLabels)
		if err != nil {
			return err
		}
		if t == nil {
			fmt.Println("no ready task available")
			return nil
		}
		fmt.Printf("%s claimed: %s\n", t.ID, t.Title)
		return nil
	},
}

func init() {
	taskRequestCmd.Flags().StringVar(&requestSessionID, "session", "", "session id (default: $CLAUDIA_SESSION_ID or a new id)")
	taskRequestCmd.Flags().StringSliceVar(&requestLabels, "preferred-label", nil, "labels to prefer when scoring affinity")
}

var (
	completeSessionID string
	completeNote      string
	completeBranch    string
	completeForce     bool
)

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a task done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent()
		if err != nil {
			return err
		}
		sessionID := sessionIDFlag(completeSessionID)
		t, err := a.CompleteTask(context.Background(), args[0], sessionID, completeNote, completeBranch, completeForce)
		if err != nil {
			return err
		}
		fmt.Printf("%s completed\n", t.ID)
		return nil
	},
}

func init() {
	taskCompleteCmd.Flags().StringVar(&completeSessionID, "session", "", "session id (default: $CLAUDIA_SESSION_ID)")
	taskCompleteCmd.Flags().StringVar(&completeNote, "note", "", "completion note")
	taskCompleteCmd.Flags().StringVar(&completeBranch, "branch", "", "branch this work landed on")
	taskCompleteCmd.Flags().BoolVar(&completeForce, "force", false, "complete even if not the current assignee")
}

var reopenNote string

var taskReopenCmd = &cobra.Command{
	Use:   "reopen <task-id>",
	Short: "Reopen a done or blocked task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent()
		if err != nil {
			return err
		}
		t, err := a.ReopenTask(context.Background(), args[0], reopenNote)
		if err != nil {
			return err
		}
		fmt.Printf("%s reopened\n", t.ID)
		return nil
	},
}

func init() {
	taskReopenCmd.Flags().StringVar(&reopenNote, "note", "", "reason for reopening")
}

var (
	editTitle       string
	editDescription string
	editPriority    int
	editLabels      []string
	editBlockedBy   []string
	editStatus      string
)

var taskEditCmd = &cobra.Command{
	Use:   "edit <task-id>",
	Short: "Edit one or more fields of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent()
		if err != nil {
			return err
		}
		var fields store.EditFields
		if cmd.Flags().Changed("title") {
			fields.Title = &editTitle
		}
		if cmd.Flags().Changed("description") {
			fields.Description = &editDescription
		}
		if cmd.Flags().Changed("priority") {
			fields.Priority = &editPriority
		}
		if cmd.Flags().Changed("label") {
			fields.Labels = &editLabels
		}
		if cmd.Flags().Changed("blocked-by") {
			fields.BlockedBy = &editBlockedBy
		}
		if cmd.Flags().Changed("status") {
			s := task.Status(strings.ToLower(editStatus))
			fields.Status = &s
		}
		t, err := a.EditTask(context.Background(), args[0], fields)
		if err != nil {
			return err
		}
		fmt.Printf("%s updated\n", t.ID)
		return nil
	},
}

func init() {
	taskEditCmd.Flags().StringVar(&editTitle, "title", "", "new title")
	taskEditCmd.Flags().StringVar(&editDescription, "description", "", "new description")
	taskEditCmd.Flags().IntVar(&editPriority, "priority", 0, "new priority")
	taskEditCmd.Flags().StringSliceVar(&editLabels, "label", nil, "replace labels")
	taskEditCmd.Flags().StringSliceVar(&editBlockedBy, "blocked-by", nil, "replace blocked_by ids")
	taskEditCmd.Flags().StringVar(&editStatus, "status", "", "new status (open, in_progress, done, blocked)")
}

var deleteForce bool

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent()
		if err != nil {
			return err
		}
		if err := a.DeleteTask(context.Background(), args[0], deleteForce); err != nil {
			return err
		}
		fmt.Printf("%s deleted\n", args[0])
		return nil
	},
}

func init() {
	taskDeleteCmd.Flags().BoolVar(&deleteForce, "force", false, "delete even if it has open subtasks")
}

var noteSessionID string

var taskNoteCmd = &cobra.Command{
	Use:   "note <task-id> <note>",
	Short: "Append a note to a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent()
		if err != nil {
			return err
		}
		sessionID := sessionIDFlag(noteSessionID)
		if err := a.AddNote(context.Background(), args[0], sessionID, args[1]); err != nil {
			return err
		}
		fmt.Printf("note added to %s\n", args[0])
		return nil
	},
}

func init() {
	taskNoteCmd.Flags().StringVar(&noteSessionID, "session", "", "session id (default: $CLAUDIA_SESSION_ID)")
}
