// ABOUTME: Tests for the notes module, its back-fill of legacy documents, and markdown preview

package features

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotes_DefaultCategories(t *testing.T) {
	h := newHarness(t)
	n := NewNotes(h.client, h.opts)
	h.mount(t, n)

	var names []string
	for _, c := range n.Value().Categories {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Personal", "Shopping", "From Books", "Work", "Ideas"}, names)
}

func TestNotes_BackfillsLegacyDocument(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "notes/u1", `{"categories":[{"id":"personal","name":"Personal","notes":[
		{"id":"n1","title":"Groceries","content":"milk","subNotes":[{"id":"s1","title":"eggs"}]}
	]}]}`)
	n := NewNotes(h.client, h.opts)
	h.mount(t, n)

	cats := n.Value().Categories
	require.Len(t, cats, 1)
	assert.Equal(t, DefaultCategoryColor, cats[0].Color)
	note := cats[0].Notes[0]
	assert.Equal(t, []Attachment{}, note.Attachments)
	assert.Equal(t, DefaultNoteColor, note.Color)
	assert.False(t, note.Expanded)
	assert.Equal(t, DefaultNoteColor, note.SubNotes[0].Color)
}

func TestNotes_NoteLifecycle(t *testing.T) {
	h := newHarness(t)
	n := NewNotes(h.client, h.opts)
	h.mount(t, n)

	id, err := n.AddNote("work", "Quarterly plan")
	require.NoError(t, err)

	h.clock.Advance(time.Minute)
	require.NoError(t, n.UpdateNote("work", id, NoteFieldContent, "# Q3\n\n- hire"))
	assert.ErrorIs(t, n.UpdateNote("work", id, "createdAt", "x"), ErrInvalidArgument)

	note := n.Value().Categories[3].Notes[0]
	assert.True(t, note.UpdatedAt.After(note.CreatedAt))

	require.NoError(t, n.ToggleExpanded("work", id))
	assert.True(t, n.Value().Categories[3].Notes[0].Expanded)

	sub, err := n.AddSubNote("work", id)
	require.NoError(t, err)
	done := true
	title := "Hire two engineers"
	require.NoError(t, n.UpdateSubNote("work", id, sub, SubNoteUpdate{Title: &title, Completed: &done}))
	subs := n.Value().Categories[3].Notes[0].SubNotes
	require.Len(t, subs, 1)
	assert.Equal(t, title, subs[0].Title)
	assert.True(t, subs[0].Completed)
	assert.Equal(t, DefaultNoteColor, subs[0].Color)

	html, err := n.Preview("work", id)
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Q3</h1>")

	require.NoError(t, n.DeleteSubNote("work", id, sub))
	require.NoError(t, n.DeleteNote("work", id))
	assert.Empty(t, n.Value().Categories[3].Notes)
	assert.ErrorIs(t, n.DeleteNote("work", id), ErrNotFound)
}

func TestNotes_Attachments(t *testing.T) {
	h := newHarness(t)
	n := NewNotes(h.client, h.opts)
	h.mount(t, n)

	id, err := n.AddNote("books", "Atomic Habits")
	require.NoError(t, err)
	att, err := n.AddAttachment("books", id, "quotes.txt", "", []byte("hello world"))
	require.NoError(t, err)

	a := n.Value().Categories[2].Notes[0].Attachments[0]
	assert.Equal(t, att, a.ID)
	assert.Equal(t, "text/plain; charset=utf-8", a.Type)
	assert.True(t, strings.HasPrefix(a.URL, "data:text/plain; charset=utf-8;base64,"))

	_, err = n.AddAttachment("books", id, "empty.txt", "text/plain", nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	require.NoError(t, n.DeleteAttachment("books", id, att))
	assert.Empty(t, n.Value().Categories[2].Notes[0].Attachments)
}

func TestNotes_Categories(t *testing.T) {
	h := newHarness(t)
	n := NewNotes(h.client, h.opts)
	h.mount(t, n)

	id, err := n.AddCategory("Recipes")
	require.NoError(t, err)
	require.NoError(t, n.SetCategoryColor(id, "#9F580A"))
	cats := n.Value().Categories
	require.Len(t, cats, 6)
	assert.Equal(t, "#9F580A", cats[5].Color)

	require.NoError(t, n.DeleteCategory(id))
	assert.Len(t, n.Value().Categories, 5)
	_, err = n.AddNote(id, "orphan")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("**bold** and <script>x</script>")
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.NotContains(t, html, "<script>")
}
