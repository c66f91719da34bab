package store

import (
	"sort"
	"time"

	"github.com/claudia-coord/claudia/internal/coordinatorerr"
	"github.com/claudia-coord/claudia/internal/task"
)

// Status is the response shape for GET /status: counts by task status
// plus the currently registered sessions.
type Status struct {
	Counts   map[task.Status]int `json:"counts"`
	Sessions []*task.Session     `json:"sessions"`
}

// SessionStaleness classifies a session's heartbeat age per §4.3's
// dashboard-facing soft warnings (the registry itself only reclaims at
// the stricter cleanup threshold).
type SessionStaleness string

const (
	StalenessOK     SessionStaleness = "ok"
	StalenessWarn   SessionStaleness = "warn"   // >= 60s
	StalenessDanger SessionStaleness = "danger" // >= 120s
)

// Staleness reports sess's soft staleness classification as of now.
func Staleness(sess *task.Session, now time.Time) SessionStaleness {
	age := sess.StaleAge(now)
	switch {
	case age >= 120*time.Second:
		return StalenessDanger
	case age >= 60*time.Second:
		return StalenessWarn
	default:
		return StalenessOK
	}
}

// GetStatus returns task counts by status and the live session list.
func (s *Store) GetStatus() (*Status, error) {
	st := &Status{Counts: map[task.Status]int{}}
	err := s.view(func(snap *snapshot) error {
		for _, t := range snap.tasks {
			st.Counts[t.Status]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sessions, err := s.ListSessions()
	if err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.Internal, "list sessions", err)
	}
	st.Sessions = sessions
	return st, nil
}

// ParallelSummary groups in_progress and done tasks by branch, for the
// GET /parallel-summary endpoint that lets a main session see what each
// worker branch produced.
func (s *Store) ParallelSummary() (map[string][]*task.Task, error) {
	summary := make(map[string][]*task.Task)
	err := s.view(func(snap *snapshot) error {
		for _, t := range snap.tasks {
			if t.Branch == "" {
				continue
			}
			summary[t.Branch] = append(summary[t.Branch], t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for branch := range summary {
		sort.Slice(summary[branch], func(i, j int) bool { return summary[branch][i].ID < summary[branch][j].ID })
	}
	return summary, nil
}
