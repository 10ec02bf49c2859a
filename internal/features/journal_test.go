// ABOUTME: Tests for the journal module

package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_EntryForEmptyDay(t *testing.T) {
	h := newHarness(t)
	j := NewJournal(h.client, h.opts)
	h.mount(t, j)

	e := j.Entry("2024-06-15")
	assert.Equal(t, "2024-06-15", e.Date)
	assert.Empty(t, e.MorningWins)
	assert.NotNil(t, e.MorningWins)
	assert.Empty(t, j.Value().Entries, "reading must not create an entry")
}

func TestJournal_WinsAndText(t *testing.T) {
	h := newHarness(t)
	j := NewJournal(h.client, h.opts)
	h.mount(t, j)

	date := DateKey(testNow)
	id, err := j.AddWin(date, "Woke up at 6")
	require.NoError(t, err)
	require.NoError(t, j.ToggleWin(date, id))
	require.NoError(t, j.SetGratitude(date, "Family"))
	require.NoError(t, j.SetReflections(date, "Good **focus** today"))

	e := j.Entry(date)
	require.Len(t, e.MorningWins, 1)
	assert.True(t, e.MorningWins[0].Completed)
	assert.Equal(t, "Family", e.Gratitude)

	h.settle()
	var stored JournalState
	h.stored(t, "journals/u1", &stored)
	assert.Equal(t, "Good **focus** today", stored.Entries["2024-06-15"].Reflections)

	require.NoError(t, j.DeleteWin(date, id))
	assert.Empty(t, j.Entry(date).MorningWins)
}

func TestJournal_Validation(t *testing.T) {
	h := newHarness(t)
	j := NewJournal(h.client, h.opts)
	h.mount(t, j)

	_, err := j.AddWin("15/06/2024", "x")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = j.AddWin("2024-06-15", " ")
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.ErrorIs(t, j.ToggleWin("2024-06-15", "missing"), ErrNotFound)
	assert.Empty(t, j.Value().Entries, "failed edits leave no entry behind")
}

func TestJournal_Backfill(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "journals/u1", `{"entries":{"2024-01-02":{"gratitude":"sun"}}}`)
	j := NewJournal(h.client, h.opts)
	h.mount(t, j)

	e := j.Entry("2024-01-02")
	assert.Equal(t, "2024-01-02", e.Date)
	assert.NotNil(t, e.MorningWins)
	assert.Equal(t, "sun", e.Gratitude)
}
