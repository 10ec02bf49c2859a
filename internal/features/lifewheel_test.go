// ABOUTME: Tests for the wheel of life module and its drawing geometry

package features

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifeWheel_Defaults(t *testing.T) {
	h := newHarness(t)
	w := NewLifeWheel(h.client, h.opts)
	h.mount(t, w)

	areas := w.Value().Areas
	require.Len(t, areas, 8)
	assert.Equal(t, "career", areas[0].ID)
	assert.Equal(t, "Physical Environment", areas[7].Name)
	for _, a := range areas {
		assert.Equal(t, DefaultScore, a.Score, a.ID)
		require.NotNil(t, a.Details)
		assert.NotNil(t, a.Details.Checklist)
	}
}

func TestLifeWheel_ScoresAndDetails(t *testing.T) {
	h := newHarness(t)
	w := NewLifeWheel(h.client, h.opts)
	h.mount(t, w)

	require.NoError(t, w.SetScore("health", 9))
	assert.ErrorIs(t, w.SetScore("health", 0), ErrInvalidArgument)
	assert.ErrorIs(t, w.SetScore("health", 11), ErrInvalidArgument)
	assert.ErrorIs(t, w.SetScore("sleep", 3), ErrNotFound)

	require.NoError(t, w.SetColor("health", "#2E8B57"))
	require.NoError(t, w.SetNotes("health", "lift twice a week"))
	item, err := w.AddChecklistItem("health", "book physio")
	require.NoError(t, err)
	require.NoError(t, w.ToggleChecklistItem("health", item))

	health := w.Value().Areas[2]
	assert.Equal(t, 9, health.Score)
	assert.Equal(t, "#2E8B57", health.Color)
	assert.Equal(t, "lift twice a week", health.Details.Notes)
	require.Len(t, health.Details.Checklist, 1)
	assert.True(t, health.Details.Checklist[0].Completed)

	require.NoError(t, w.DeleteChecklistItem("health", item))
	assert.Empty(t, w.Value().Areas[2].Details.Checklist)
	assert.ErrorIs(t, w.DeleteChecklistItem("health", item), ErrNotFound)

	require.NoError(t, w.ResetScores())
	assert.Equal(t, DefaultScore, w.Value().Areas[2].Score)
	assert.Equal(t, "#2E8B57", w.Value().Areas[2].Color)
}

func TestLifeWheel_BackfillsDetails(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "users/u1/lifeWheel/data", `{"areas":[{"id":"career","name":"Career","score":7,"color":"#8B0000"}]}`)
	w := NewLifeWheel(h.client, h.opts)
	h.mount(t, w)

	areas := w.Value().Areas
	require.Len(t, areas, 1)
	require.NotNil(t, areas[0].Details)
	assert.Empty(t, areas[0].Details.Notes)
	assert.NotNil(t, areas[0].Details.Checklist)
}

func TestSegmentRadius(t *testing.T) {
	assert.InDelta(t, 50, SegmentRadius(0), 1e-9)
	assert.InDelta(t, 150, SegmentRadius(5), 1e-9)
	assert.InDelta(t, 250, SegmentRadius(10), 1e-9)
}

func TestWheelSegmentPath(t *testing.T) {
	path := WheelSegmentPath(10, 0, 4)
	assert.True(t, strings.HasPrefix(path, "M 300 250 L 300 50 A 250 250 0 0 1 "), path)
	assert.True(t, strings.HasSuffix(path, " A 50 50 0 0 0 300 250 Z"), path)
}

func TestLabelPosition(t *testing.T) {
	x, y, angle := LabelPosition(0, 4)
	assert.InDelta(t, -math.Pi/4, angle, 1e-9)
	assert.InDelta(t, 300+280*math.Cos(-math.Pi/4), x, 1e-9)
	assert.InDelta(t, 300+280*math.Sin(-math.Pi/4), y, 1e-9)
}
