// ABOUTME: Notes: colored categories of notes with sub-notes and embedded attachments
// ABOUTME: Older documents lacking colors, attachments or sub-note fields are back-filled on load

package features

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/synced"
)

// FeatureNotes names the notes module.
const FeatureNotes = "notes"

// Default colors applied to new and back-filled items.
const (
	DefaultCategoryColor = "#1E3A8A"
	DefaultNoteColor     = "#374151"
	DefaultSubNoteTitle  = "New sub-note"
)

// NoteColors is the notes palette.
var NoteColors = []string{
	"#1E3A8A", "#7F1D1D", "#065F46", "#7B341E", "#701A75",
	"#450A0A", "#374151", "#0F172A", "#422006", "#2D3748",
	"#9F580A", "#3F3F46",
}

// SubNote is a checklist-style child of a note.
type SubNote struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Completed bool   `json:"completed"`
	Color     string `json:"color"`
}

// Note is one note.
type Note struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	SubNotes    []SubNote    `json:"subNotes"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Expanded    bool         `json:"expanded"`
	Color       string       `json:"color"`
}

// NoteCategory groups notes.
type NoteCategory struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Notes []Note `json:"notes"`
	Color string `json:"color"`
}

// NotesState is the stored notes document.
type NotesState struct {
	Categories []NoteCategory `json:"categories"`
}

// DefaultNoteCategories returns the starting categories.
func DefaultNoteCategories() []NoteCategory {
	return []NoteCategory{
		{ID: "personal", Name: "Personal", Notes: []Note{}, Color: "#1E3A8A"},
		{ID: "shopping", Name: "Shopping", Notes: []Note{}, Color: "#7F1D1D"},
		{ID: "books", Name: "From Books", Notes: []Note{}, Color: "#065F46"},
		{ID: "work", Name: "Work", Notes: []Note{}, Color: "#7B341E"},
		{ID: "ideas", Name: "Ideas", Notes: []Note{}, Color: "#701A75"},
	}
}

func backfillNotes(s *NotesState) {
	if s.Categories == nil {
		s.Categories = DefaultNoteCategories()
	}
	for i := range s.Categories {
		c := &s.Categories[i]
		if c.Color == "" {
			c.Color = DefaultCategoryColor
		}
		c.Notes = orEmpty(c.Notes)
		for j := range c.Notes {
			n := &c.Notes[j]
			n.Attachments = orEmpty(n.Attachments)
			n.SubNotes = orEmpty(n.SubNotes)
			if n.Color == "" {
				n.Color = DefaultNoteColor
			}
			for k := range n.SubNotes {
				if n.SubNotes[k].Color == "" {
					n.SubNotes[k].Color = DefaultNoteColor
				}
			}
		}
	}
}

// NotesConfig returns the store configuration for notes.
func NotesConfig() synced.Config[NotesState] {
	return synced.Config[NotesState]{
		Feature:   FeatureNotes,
		HandleFor: rootDoc("notes"),
		Default:   func() NotesState { return NotesState{Categories: DefaultNoteCategories()} },
		Backfill:  backfillNotes,
	}
}

// Notes is the notes module.
type Notes struct {
	*synced.Store[NotesState]
	opts Options
}

var _ Module = (*Notes)(nil)

// NewNotes creates an unbound notes module.
func NewNotes(client remote.Client, opts Options) *Notes {
	return &Notes{Store: synced.New(client, configure(opts, NotesConfig())), opts: opts}
}

// AddCategory creates a category and returns its id.
func (n *Notes) AddCategory(name string) (string, error) {
	name, err := requireName(name)
	if err != nil {
		return "", err
	}
	c := NoteCategory{ID: newID(), Name: name, Notes: []Note{}, Color: NoteColors[0]}
	err = n.Mutate(func(s NotesState) NotesState {
		s.Categories = appended(s.Categories, c)
		return s
	})
	return c.ID, err
}

// DeleteCategory removes a category and its notes.
func (n *Notes) DeleteCategory(id string) error {
	return n.TryMutate(func(s NotesState) (NotesState, error) {
		cats, err := remove(s.Categories, categoryIDOf, id, "category")
		if err != nil {
			return s, err
		}
		s.Categories = cats
		return s, nil
	})
}

// SetCategoryColor recolors a category.
func (n *Notes) SetCategoryColor(id, color string) error {
	return n.editCategory(id, func(c NoteCategory) (NoteCategory, error) {
		c.Color = color
		return c, nil
	})
}

// AddNote creates a note in a category and returns its id.
func (n *Notes) AddNote(categoryID, title string) (string, error) {
	title, err := requireName(title)
	if err != nil {
		return "", err
	}
	now := n.opts.now().UTC()
	note := Note{
		ID:          newID(),
		Title:       title,
		SubNotes:    []SubNote{},
		Attachments: []Attachment{},
		CreatedAt:   now,
		UpdatedAt:   now,
		Color:       DefaultNoteColor,
	}
	err = n.editCategory(categoryID, func(c NoteCategory) (NoteCategory, error) {
		c.Notes = appended(c.Notes, note)
		return c, nil
	})
	return note.ID, err
}

// Note fields accepted by UpdateNote.
const (
	NoteFieldTitle   = "title"
	NoteFieldContent = "content"
)

// UpdateNote sets a note's title or content.
func (n *Notes) UpdateNote(categoryID, noteID, field, value string) error {
	if field != NoteFieldTitle && field != NoteFieldContent {
		return fmt.Errorf("%w: note field %q", ErrInvalidArgument, field)
	}
	return n.touchNote(categoryID, noteID, func(note Note) (Note, error) {
		if field == NoteFieldTitle {
			note.Title = value
		} else {
			note.Content = value
		}
		return note, nil
	})
}

// SetNoteColor recolors a note.
func (n *Notes) SetNoteColor(categoryID, noteID, color string) error {
	return n.touchNote(categoryID, noteID, func(note Note) (Note, error) {
		note.Color = color
		return note, nil
	})
}

// ToggleExpanded opens or collapses a note's sub-notes. It does not change
// the note's updated time.
func (n *Notes) ToggleExpanded(categoryID, noteID string) error {
	return n.editNote(categoryID, noteID, func(note Note) (Note, error) {
		note.Expanded = !note.Expanded
		return note, nil
	})
}

// DeleteNote removes a note.
func (n *Notes) DeleteNote(categoryID, noteID string) error {
	return n.editCategory(categoryID, func(c NoteCategory) (NoteCategory, error) {
		notes, err := remove(c.Notes, noteIDOf, noteID, "note")
		c.Notes = notes
		return c, err
	})
}

// AddSubNote appends a placeholder sub-note and returns its id.
func (n *Notes) AddSubNote(categoryID, noteID string) (string, error) {
	sub := SubNote{ID: newID(), Title: DefaultSubNoteTitle, Color: DefaultNoteColor}
	err := n.touchNote(categoryID, noteID, func(note Note) (Note, error) {
		note.SubNotes = appended(note.SubNotes, sub)
		return note, nil
	})
	return sub.ID, err
}

// SubNoteUpdate carries the sub-note fields to change. Nil fields are kept.
type SubNoteUpdate struct {
	Title     *string `json:"title,omitempty"`
	Content   *string `json:"content,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
	Color     *string `json:"color,omitempty"`
}

// UpdateSubNote changes a sub-note.
func (n *Notes) UpdateSubNote(categoryID, noteID, subID string, u SubNoteUpdate) error {
	return n.touchNote(categoryID, noteID, func(note Note) (Note, error) {
		subs, err := update(note.SubNotes, subNoteIDOf, subID, "sub-note", func(s SubNote) (SubNote, error) {
			if u.Title != nil {
				s.Title = *u.Title
			}
			if u.Content != nil {
				s.Content = *u.Content
			}
			if u.Completed != nil {
				s.Completed = *u.Completed
			}
			if u.Color != nil {
				s.Color = *u.Color
			}
			return s, nil
		})
		note.SubNotes = subs
		return note, err
	})
}

// DeleteSubNote removes a sub-note.
func (n *Notes) DeleteSubNote(categoryID, noteID, subID string) error {
	return n.touchNote(categoryID, noteID, func(note Note) (Note, error) {
		subs, err := remove(note.SubNotes, subNoteIDOf, subID, "sub-note")
		note.SubNotes = subs
		return note, err
	})
}

// AddAttachment embeds a file in a note and returns the attachment id.
func (n *Notes) AddAttachment(categoryID, noteID, name, mime string, data []byte) (string, error) {
	a, err := NewAttachment(name, mime, data)
	if err != nil {
		return "", err
	}
	err = n.touchNote(categoryID, noteID, func(note Note) (Note, error) {
		note.Attachments = appended(note.Attachments, a)
		return note, nil
	})
	return a.ID, err
}

// DeleteAttachment removes an attachment from a note.
func (n *Notes) DeleteAttachment(categoryID, noteID, attachmentID string) error {
	return n.touchNote(categoryID, noteID, func(note Note) (Note, error) {
		atts, err := remove(note.Attachments, attachmentIDOf, attachmentID, "attachment")
		note.Attachments = atts
		return note, err
	})
}

// Preview renders a note's content as HTML.
func (n *Notes) Preview(categoryID, noteID string) (string, error) {
	for _, c := range n.Value().Categories {
		if c.ID != categoryID {
			continue
		}
		for _, note := range c.Notes {
			if note.ID == noteID {
				return RenderMarkdown(note.Content)
			}
		}
	}
	return "", notFound("note", noteID)
}

func (n *Notes) editCategory(id string, fn func(NoteCategory) (NoteCategory, error)) error {
	return n.TryMutate(func(s NotesState) (NotesState, error) {
		cats, err := update(s.Categories, categoryIDOf, id, "category", fn)
		if err != nil {
			return s, err
		}
		s.Categories = cats
		return s, nil
	})
}

func (n *Notes) editNote(catID, id string, fn func(Note) (Note, error)) error {
	return n.editCategory(catID, func(c NoteCategory) (NoteCategory, error) {
		notes, err := update(c.Notes, noteIDOf, id, "note", fn)
		c.Notes = notes
		return c, err
	})
}

// touchNote is editNote that also bumps the note's updated time.
func (n *Notes) touchNote(catID, id string, fn func(Note) (Note, error)) error {
	now := n.opts.now().UTC()
	return n.editNote(catID, id, func(note Note) (Note, error) {
		note, err := fn(note)
		note.UpdatedAt = now
		return note, err
	})
}

func categoryIDOf(c NoteCategory) string { return c.ID }
func noteIDOf(n Note) string             { return n.ID }
func subNoteIDOf(s SubNote) string       { return s.ID }
func attachmentIDOf(a Attachment) string { return a.ID }

// State implements Module.
func (n *Notes) State() any { return n.Value() }

// Apply implements Module.
func (n *Notes) Apply(name string, args json.RawMessage) (any, error) {
	type arg struct {
		CategoryID string `json:"categoryId"`
		NoteID     string `json:"noteId"`
		SubNoteID  string `json:"subNoteId"`
		ID         string `json:"id"`
		Name       string `json:"name"`
		Title      string `json:"title"`
		Field      string `json:"field"`
		Value      string `json:"value"`
		Color      string `json:"color"`
		Type       string `json:"type"`
		Data       []byte `json:"data"`
	}
	type subNoteArg struct {
		CategoryID string `json:"categoryId"`
		NoteID     string `json:"noteId"`
		SubNoteID  string `json:"subNoteId"`
		SubNoteUpdate
	}
	return dispatch(map[string]opFunc{
		"addCategory":      op(func(a arg) (any, error) { return created(n.AddCategory(a.Name)) }),
		"deleteCategory":   op(func(a arg) (any, error) { return done(n.DeleteCategory(a.CategoryID)) }),
		"setCategoryColor": op(func(a arg) (any, error) { return done(n.SetCategoryColor(a.CategoryID, a.Color)) }),
		"addNote":          op(func(a arg) (any, error) { return created(n.AddNote(a.CategoryID, a.Title)) }),
		"updateNote": op(func(a arg) (any, error) {
			return done(n.UpdateNote(a.CategoryID, a.NoteID, a.Field, a.Value))
		}),
		"setNoteColor": op(func(a arg) (any, error) {
			return done(n.SetNoteColor(a.CategoryID, a.NoteID, a.Color))
		}),
		"toggleExpanded": op(func(a arg) (any, error) { return done(n.ToggleExpanded(a.CategoryID, a.NoteID)) }),
		"deleteNote":     op(func(a arg) (any, error) { return done(n.DeleteNote(a.CategoryID, a.NoteID)) }),
		"addSubNote":     op(func(a arg) (any, error) { return created(n.AddSubNote(a.CategoryID, a.NoteID)) }),
		"updateSubNote": op(func(a subNoteArg) (any, error) {
			return done(n.UpdateSubNote(a.CategoryID, a.NoteID, a.SubNoteID, a.SubNoteUpdate))
		}),
		"deleteSubNote": op(func(a arg) (any, error) {
			return done(n.DeleteSubNote(a.CategoryID, a.NoteID, a.SubNoteID))
		}),
		"addAttachment": op(func(a arg) (any, error) {
			return created(n.AddAttachment(a.CategoryID, a.NoteID, a.Name, a.Type, a.Data))
		}),
		"deleteAttachment": op(func(a arg) (any, error) {
			return done(n.DeleteAttachment(a.CategoryID, a.NoteID, a.ID))
		}),
		"preview": op(func(a arg) (any, error) {
			html, err := n.Preview(a.CategoryID, a.NoteID)
			if err != nil {
				return nil, err
			}
			return map[string]string{"html": html}, nil
		}),
	}, name, args)
}
