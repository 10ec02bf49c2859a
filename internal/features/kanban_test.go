// ABOUTME: Tests for the kanban board, including completed-task retention on load

package features

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKanban_PrunesOldCompletedTasksOnLoad(t *testing.T) {
	h := newHarness(t)
	old := testNow.AddDate(0, 0, -10).Format(time.RFC3339)
	recent := testNow.AddDate(0, 0, -3).Format(time.RFC3339)
	h.seed(t, "users/u1/tasks/data", fmt.Sprintf(`{"tasks":[
		{"id":"old","title":"Ship v1","status":"completed","createdAt":%q,"completedAt":%q},
		{"id":"recent","title":"Write docs","status":"completed","createdAt":%q,"completedAt":%q},
		{"id":"open","title":"Plan v2","status":"todo","createdAt":%q}
	]}`, old, old, recent, recent, recent))

	board := NewKanban(h.client, h.opts)
	h.mount(t, board)

	var ids []string
	for _, task := range board.Value().Tasks {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"recent", "open"}, ids)
	assert.True(t, board.Status().Pending, "pruned list should be scheduled for saving")

	h.settle()
	var stored KanbanState
	h.stored(t, "users/u1/tasks/data", &stored)
	assert.Len(t, stored.Tasks, 2)
}

func TestKanban_NothingToPruneSchedulesNothing(t *testing.T) {
	h := newHarness(t)
	board := NewKanban(h.client, h.opts)
	h.mount(t, board)

	assert.False(t, board.Status().Pending)
	assert.Zero(t, h.clock.Pending())
}

func TestPruneCompleted_Boundary(t *testing.T) {
	exactly := testNow.Add(-KanbanRetention)
	justInside := exactly.Add(time.Minute)
	s := KanbanState{Tasks: []KanbanTask{
		{ID: "a", Status: StatusCompleted, CompletedAt: &exactly},
		{ID: "b", Status: StatusCompleted, CompletedAt: &justInside},
		{ID: "c", Status: StatusCompleted},
		{ID: "d", Status: StatusInProgress, CompletedAt: &exactly},
	}}

	got, changed := PruneCompleted(s, testNow)
	assert.True(t, changed)
	require.Len(t, got.Tasks, 3)
	assert.Equal(t, "b", got.Tasks[0].ID)
	assert.Len(t, s.Tasks, 4, "input must not be modified")
}

func TestKanban_MoveStampsCompletion(t *testing.T) {
	h := newHarness(t)
	board := NewKanban(h.client, h.opts)
	h.mount(t, board)

	id, err := board.Add(KanbanInput{Title: "Review PR", Notes: "check tests"})
	require.NoError(t, err)
	require.NoError(t, board.Move(id, StatusInProgress))
	assert.Nil(t, board.Value().Tasks[0].CompletedAt)

	h.clock.Advance(time.Hour)
	require.NoError(t, board.Move(id, StatusCompleted))
	task := board.Value().Tasks[0]
	require.NotNil(t, task.CompletedAt)
	assert.True(t, task.CompletedAt.Equal(testNow.Add(time.Hour)))
	assert.Len(t, board.Column(StatusCompleted), 1)
	assert.Empty(t, board.Column(StatusTodo))
}

func TestKanban_Validation(t *testing.T) {
	h := newHarness(t)
	board := NewKanban(h.client, h.opts)
	h.mount(t, board)

	_, err := board.Add(KanbanInput{})
	assert.ErrorIs(t, err, ErrEmptyName)

	id, err := board.Add(KanbanInput{Title: "x"})
	require.NoError(t, err)
	assert.ErrorIs(t, board.Move(id, "archived"), ErrInvalidArgument)
	assert.ErrorIs(t, board.Update("nope", KanbanInput{Title: "y"}), ErrNotFound)

	require.NoError(t, board.Update(id, KanbanInput{Title: "y", Description: "d"}))
	assert.Equal(t, "d", board.Value().Tasks[0].Description)
	require.NoError(t, board.Delete(id))
	assert.Empty(t, board.Value().Tasks)
}

func TestKanban_StoredBoardMatchesMemory(t *testing.T) {
	h := newHarness(t)
	board := NewKanban(h.client, h.opts)
	h.mount(t, board)

	_, err := board.Add(KanbanInput{Title: "Plan v2", Notes: "after launch"})
	require.NoError(t, err)
	shipped, err := board.Add(KanbanInput{Title: "Ship v1", Description: "tag and release"})
	require.NoError(t, err)
	require.NoError(t, board.Move(shipped, StatusCompleted))

	h.settle()
	var stored KanbanState
	h.stored(t, "users/u1/tasks/data", &stored)
	if diff := cmp.Diff(board.Value(), stored); diff != "" {
		t.Errorf("stored board differs (-memory +stored):\n%s", diff)
	}
}
