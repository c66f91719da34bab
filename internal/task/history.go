package task

import "time"

// HistoryEntry is one line of history.jsonl: a record of a committed
// state-changing operation, optionally reversible via UndoHint.
type HistoryEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      string         `json:"kind"` // matches an event.Event's EventType(), e.g. "task.completed"
	SessionID string         `json:"session_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	UndoHint  *UndoHint      `json:"undo_hint,omitempty"`
}

// UndoHint carries the pre-image fields a reversible event overwrote,
// sufficient for undo_last_action to restore them.
type UndoHint struct {
	TaskID         string    `json:"task_id"`
	PriorStatus    Status    `json:"prior_status,omitempty"`
	PriorAssignee  string    `json:"prior_assignee,omitempty"`
	PriorBranch    string    `json:"prior_branch,omitempty"`
	PriorNoteCount int       `json:"prior_note_count"`
	PriorUpdatedAt time.Time `json:"prior_updated_at"`
}

// Reversible reports whether the entry carries enough state to be undone.
func (e *HistoryEntry) Reversible() bool {
	return e.UndoHint != nil
}
