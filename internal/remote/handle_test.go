// ABOUTME: Tests for document handle construction, parsing, and ownership
// ABOUTME: Covers flat and nested collection paths

package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_Path(t *testing.T) {
	tests := []struct {
		handle Handle
		want   string
	}{
		{NewHandle("habitTrackers", "u1"), "habitTrackers/u1"},
		{NewHandle("users", "u1", "calendar", "2024-5"), "users/u1/calendar/2024-5"},
		{Handle{ID: "lonely"}, "lonely"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.handle.Path())
	}
}

func TestParsePath(t *testing.T) {
	h, err := ParsePath("/users/u1/goals/data/")
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "u1", "goals"}, h.Collection)
	assert.Equal(t, "data", h.ID)
	assert.True(t, h.Equal(NewHandle("users", "u1", "goals", "data")))

	for _, bad := range []string{"", "users", "users/u1/goals", "users//x", "a/..", "notes/../x/y"} {
		_, err := ParsePath(bad)
		assert.ErrorIs(t, err, ErrInvalidHandle, "path %q", bad)
	}
}

func TestHandle_OwnedBy(t *testing.T) {
	assert.True(t, NewHandle("notes", "u1").OwnedBy("u1"))
	assert.True(t, NewHandle("users", "u1", "tasks", "data").OwnedBy("u1"))
	assert.False(t, NewHandle("users", "u2", "tasks", "data").OwnedBy("u1"))
	assert.False(t, NewHandle("notes", "u1").OwnedBy(""))
}
