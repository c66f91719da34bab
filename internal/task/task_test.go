package task

import "testing"

func TestAddNote_TruncatesAtMax(t *testing.T) {
	tk := &Task{ID: "task-001"}
	for i := 0; i < MaxNotesPerTask+10; i++ {
		tk.AddNote(Note{Note: "n"})
	}
	if len(tk.Notes) != MaxNotesPerTask {
		t.Errorf("len(Notes) = %d, want %d", len(tk.Notes), MaxNotesPerTask)
	}
}

func TestIsSubtask(t *testing.T) {
	tk := &Task{ID: "task-002"}
	if tk.IsSubtask() {
		t.Error("task without parent should not be a subtask")
	}
	tk.ParentID = "task-001"
	if !tk.IsSubtask() {
		t.Error("task with parent should be a subtask")
	}
}

func TestValidPriority(t *testing.T) {
	for p := 0; p <= 3; p++ {
		if !ValidPriority(p) {
			t.Errorf("ValidPriority(%d) = false, want true", p)
		}
	}
	if ValidPriority(-1) || ValidPriority(4) {
		t.Error("ValidPriority should reject values outside [0,3]")
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusOpen, StatusInProgress, StatusDone, StatusBlocked} {
		if !s.Valid() {
			t.Errorf("Status(%q).Valid() = false, want true", s)
		}
	}
	if Status("cancelled").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestHasLabel(t *testing.T) {
	tk := &Task{Labels: []string{"backend", "urgent"}}
	if !tk.HasLabel("backend") {
		t.Error("expected HasLabel(backend) = true")
	}
	if tk.HasLabel("frontend") {
		t.Error("expected HasLabel(frontend) = false")
	}
}
