package store

import (
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/claudia-coord/claudia/internal/coordinatorerr"
	"github.com/claudia-coord/claudia/internal/task"
)

// CreateTemplate stores a reusable task shape.
func (s *Store) CreateTemplate(name string, defaultPriority int, defaultLabels []string, subtasks []task.TemplateSubtask) (*task.Template, error) {
	if name == "" {
		return nil, coordinatorerr.New(coordinatorerr.InvalidArgument, "template name must not be empty")
	}
	if !task.ValidPriority(defaultPriority) {
		return nil, coordinatorerr.New(coordinatorerr.InvalidArgument, "default_priority must be in [0,3]")
	}

	var created *task.Template
	_, err := s.mutate(func(snap *snapshot) (*task.HistoryEntry, error) {
		id := s.allocateTemplateID(snap)
		tm := &task.Template{
			ID:              id,
			Name:            name,
			DefaultPriority: defaultPriority,
			DefaultLabels:   defaultLabels,
			Subtasks:        subtasks,
		}
		snap.templates[id] = tm
		created = tm
		return nil, nil // template changes don't need an undo-able history entry
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetTemplate returns a single template by id.
func (s *Store) GetTemplate(id string) (*task.Template, error) {
	var found *task.Template
	err := s.view(func(snap *snapshot) error {
		tm, ok := snap.templates[id]
		if !ok {
			return coordinatorerr.New(coordinatorerr.NotFound, "template not found")
		}
		found = tm
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListTemplates returns every template, ordered by id.
func (s *Store) ListTemplates() ([]*task.Template, error) {
	var out []*task.Template
	err := s.view(func(snap *snapshot) error {
		for _, tm := range snap.templates {
			out = append(out, tm)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// InstantiateTemplate creates one task from the template's defaults plus
// one subtask per entry in its Subtasks list, per §3's "Instantiating a
// template creates a task plus one subtask per template subtask entry."
func (s *Store) InstantiateTemplate(templateID string) (*task.Task, error) {
	tm, err := s.GetTemplate(templateID)
	if err != nil {
		return nil, err
	}

	parent, err := s.CreateTask(CreateTaskInput{
		Title:    tm.Name,
		Priority: &tm.DefaultPriority,
		Labels:   tm.DefaultLabels,
	})
	if err != nil {
		return nil, err
	}

	for _, sub := range tm.Subtasks {
		if _, err := s.CreateSubtask(parent.ID, sub.Title); err != nil {
			return nil, err
		}
	}

	return s.GetTask(parent.ID)
}

// ExportTemplateTOML writes a single template to path in TOML form, an
// alternate to the JSON shape templates.json already persists — for
// checking a template into a repo alongside human-edited config files.
func (s *Store) ExportTemplateTOML(templateID, path string) error {
	tm, err := s.GetTemplate(templateID)
	if err != nil {
		return err
	}
	b, err := toml.Marshal(tm)
	if err != nil {
		return coordinatorerr.Wrap(coordinatorerr.InvalidArgument, "marshal template as toml", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return coordinatorerr.Wrap(coordinatorerr.Unavailable, "write template toml", err)
	}
	return nil
}

// ImportTemplateTOML reads a TOML-encoded template from path and stores
// it, assigning a fresh id the same way CreateTemplate does.
func (s *Store) ImportTemplateTOML(path string) (*task.Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.NotFound, "read template toml", err)
	}
	var tm task.Template
	if err := toml.Unmarshal(b, &tm); err != nil {
		return nil, coordinatorerr.Wrap(coordinatorerr.InvalidArgument, "parse template toml", err)
	}
	return s.CreateTemplate(tm.Name, tm.DefaultPriority, tm.DefaultLabels, tm.Subtasks)
}
