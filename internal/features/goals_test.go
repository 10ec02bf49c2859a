// ABOUTME: Tests for the goals board

package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoals_AddDefaults(t *testing.T) {
	h := newHarness(t)
	g := NewGoals(h.client, h.opts)
	h.mount(t, g)

	id, err := g.Add(GoalInput{Title: "Run a marathon"})
	require.NoError(t, err)

	goal := g.Value().Goals[0]
	assert.Equal(t, id, goal.ID)
	assert.Equal(t, "Weekly", goal.Category)
	assert.Equal(t, GoalColors[0], goal.Color)
	assert.True(t, goal.CreatedAt.Equal(testNow))
}

func TestGoals_MoveBetweenColumns(t *testing.T) {
	h := newHarness(t)
	g := NewGoals(h.client, h.opts)
	h.mount(t, g)

	a, err := g.Add(GoalInput{Title: "A", Category: "Monthly"})
	require.NoError(t, err)
	_, err = g.Add(GoalInput{Title: "B", Category: "Monthly"})
	require.NoError(t, err)

	require.NoError(t, g.Move(a, "10 Years"))
	assert.Len(t, g.ByCategory("Monthly"), 1)
	assert.Equal(t, "A", g.ByCategory("10 Years")[0].Title)

	assert.ErrorIs(t, g.Move(a, "Someday"), ErrInvalidArgument)
	assert.ErrorIs(t, g.Move("missing", "Weekly"), ErrNotFound)
}

func TestGoals_UpdateAndDelete(t *testing.T) {
	h := newHarness(t)
	g := NewGoals(h.client, h.opts)
	h.mount(t, g)

	id, err := g.Add(GoalInput{Title: "Save"})
	require.NoError(t, err)
	require.NoError(t, g.Update(id, GoalInput{Title: "Save 10%", Description: "monthly", Category: "1 Year", Color: "#0066FF"}))

	goal := g.Value().Goals[0]
	assert.Equal(t, "Save 10%", goal.Title)
	assert.Equal(t, "1 Year", goal.Category)
	assert.Equal(t, "#0066FF", goal.Color)

	_, err = g.Add(GoalInput{Title: ""})
	assert.ErrorIs(t, err, ErrEmptyName)

	require.NoError(t, g.Delete(id))
	assert.Empty(t, g.Value().Goals)
}

func TestGoals_BackfillsColor(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "users/u1/goals/data", `{"goals":[{"id":"1","title":"Old","category":"Monthly"}]}`)
	g := NewGoals(h.client, h.opts)
	h.mount(t, g)

	assert.Equal(t, GoalColors[0], g.Value().Goals[0].Color)
}
