// ABOUTME: Kanban to-do board with todo, in-progress and completed columns
// ABOUTME: Tasks completed more than seven days ago are pruned when the board loads

package features

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/synced"
)

// FeatureKanban names the kanban board.
const FeatureKanban = "kanban"

// KanbanRetention is how long completed tasks stay on the board.
const KanbanRetention = 7 * 24 * time.Hour

// TaskStatus is a kanban column.
type TaskStatus string

// Kanban columns.
const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "inprogress"
	StatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s names a column.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// KanbanTask is one card.
type KanbanTask struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Notes       string     `json:"notes"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// KanbanState is the stored board document.
type KanbanState struct {
	Tasks []KanbanTask `json:"tasks"`
}

// PruneCompleted drops tasks completed more than KanbanRetention before now.
// It reports whether anything was dropped.
func PruneCompleted(s KanbanState, now time.Time) (KanbanState, bool) {
	cutoff := now.Add(-KanbanRetention)
	kept := make([]KanbanTask, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		if t.Status == StatusCompleted && t.CompletedAt != nil && !t.CompletedAt.After(cutoff) {
			continue
		}
		kept = append(kept, t)
	}
	if len(kept) == len(s.Tasks) {
		return s, false
	}
	s.Tasks = kept
	return s, true
}

// KanbanConfig returns the store configuration for the board.
func KanbanConfig() synced.Config[KanbanState] {
	return synced.Config[KanbanState]{
		Feature:   FeatureKanban,
		HandleFor: userDoc("tasks"),
		Default:   func() KanbanState { return KanbanState{Tasks: []KanbanTask{}} },
		Backfill: func(s *KanbanState) {
			s.Tasks = orEmpty(s.Tasks)
			for i := range s.Tasks {
				if s.Tasks[i].Status == "" {
					s.Tasks[i].Status = StatusTodo
				}
			}
		},
		AfterLoad: PruneCompleted,
	}
}

// Kanban is the kanban module.
type Kanban struct {
	*synced.Store[KanbanState]
	opts Options
}

var _ Module = (*Kanban)(nil)

// NewKanban creates an unbound board.
func NewKanban(client remote.Client, opts Options) *Kanban {
	return &Kanban{Store: synced.New(client, configure(opts, KanbanConfig())), opts: opts}
}

// KanbanInput holds the editable task fields.
type KanbanInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
}

// Add creates a task in the todo column and returns its id.
func (k *Kanban) Add(in KanbanInput) (string, error) {
	title, err := requireName(in.Title)
	if err != nil {
		return "", err
	}
	task := KanbanTask{
		ID:          newID(),
		Title:       title,
		Description: in.Description,
		Notes:       in.Notes,
		Status:      StatusTodo,
		CreatedAt:   k.opts.now().UTC(),
	}
	err = k.Mutate(func(s KanbanState) KanbanState {
		s.Tasks = appended(s.Tasks, task)
		return s
	})
	return task.ID, err
}

// Update replaces a task's text fields.
func (k *Kanban) Update(id string, in KanbanInput) error {
	title, err := requireName(in.Title)
	if err != nil {
		return err
	}
	return k.edit(id, func(t KanbanTask) KanbanTask {
		t.Title = title
		t.Description = in.Description
		t.Notes = in.Notes
		return t
	})
}

// Move puts a task in another column. Moving to completed stamps the
// completion time.
func (k *Kanban) Move(id string, status TaskStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidArgument, status)
	}
	now := k.opts.now().UTC()
	return k.edit(id, func(t KanbanTask) KanbanTask {
		t.Status = status
		if status == StatusCompleted {
			t.CompletedAt = &now
		}
		return t
	})
}

// Delete removes a task.
func (k *Kanban) Delete(id string) error {
	return k.TryMutate(func(s KanbanState) (KanbanState, error) {
		tasks, err := remove(s.Tasks, kanbanTaskID, id, "task")
		if err != nil {
			return s, err
		}
		s.Tasks = tasks
		return s, nil
	})
}

// Column returns the tasks with status, in insertion order.
func (k *Kanban) Column(status TaskStatus) []KanbanTask {
	var out []KanbanTask
	for _, t := range k.Value().Tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

func (k *Kanban) edit(id string, fn func(KanbanTask) KanbanTask) error {
	return k.TryMutate(func(s KanbanState) (KanbanState, error) {
		tasks, err := update(s.Tasks, kanbanTaskID, id, "task", func(t KanbanTask) (KanbanTask, error) {
			return fn(t), nil
		})
		if err != nil {
			return s, err
		}
		s.Tasks = tasks
		return s, nil
	})
}

func kanbanTaskID(t KanbanTask) string { return t.ID }

// State implements Module.
func (k *Kanban) State() any { return k.Value() }

// Apply implements Module.
func (k *Kanban) Apply(name string, args json.RawMessage) (any, error) {
	type withID struct {
		ID string `json:"id"`
		KanbanInput
	}
	return dispatch(map[string]opFunc{
		"add":    op(func(a KanbanInput) (any, error) { return created(k.Add(a)) }),
		"update": op(func(a withID) (any, error) { return done(k.Update(a.ID, a.KanbanInput)) }),
		"move": op(func(a struct {
			ID     string     `json:"id"`
			Status TaskStatus `json:"status"`
		}) (any, error) {
			return done(k.Move(a.ID, a.Status))
		}),
		"delete": op(func(a struct{ ID string }) (any, error) { return done(k.Delete(a.ID)) }),
	}, name, args)
}
