// ABOUTME: Tests for the vision board module and its drag/resize geometry

package features

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisionBoard_DefaultPage(t *testing.T) {
	h := newHarness(t)
	v := NewVisionBoard(h.client, h.opts)
	h.mount(t, v)

	pages := v.Value().Pages
	require.Len(t, pages, 1)
	assert.Equal(t, "Vision Board 1", pages[0].Name)
	assert.ErrorIs(t, v.DeletePage(pages[0].ID), ErrInvalidArgument)
}

func TestVisionBoard_BackfillsSize(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "visionBoards/u1", `{"pages":[{"id":"page1","name":"Dreams","items":[
		{"id":"i1","imageUrl":"data:image/png;base64,AA==","caption":"house","position":{"x":10,"y":20}}
	]}]}`)
	v := NewVisionBoard(h.client, h.opts)
	h.mount(t, v)

	item := v.Value().Pages[0].Items[0]
	require.NotNil(t, item.Size)
	assert.Equal(t, Size{Width: 192, Height: 128}, *item.Size)
}

func TestVisionBoard_Items(t *testing.T) {
	h := newHarness(t)
	v := NewVisionBoard(h.client, h.opts)
	h.mount(t, v)
	v.place = func() Point { return Point{X: 100, Y: 100} }

	page := v.Value().Pages[0].ID
	id, err := v.AddItem(page, "image/png", []byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, v.SetCaption(page, id, "Cabin"))
	require.NoError(t, v.MoveItem(page, id, Point{X: 50, Y: 300}))

	item := v.Value().Pages[0].Items[0]
	assert.True(t, strings.HasPrefix(item.ImageURL, "data:image/png;base64,"))
	assert.Equal(t, "Cabin", item.Caption)
	assert.Equal(t, Point{X: 0, Y: 236}, item.Position)

	require.NoError(t, v.ResizeItem(page, id, HandleSE, Point{X: 300, Y: 400}))
	item = v.Value().Pages[0].Items[0]
	assert.Equal(t, Size{Width: 300, Height: 164}, *item.Size)
	assert.ErrorIs(t, v.ResizeItem(page, id, "middle", Point{}), ErrInvalidArgument)

	_, err = v.AddItem(page, "image/png", nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	require.NoError(t, v.DeleteItem(page, id))
	assert.Empty(t, v.Value().Pages[0].Items)
}

func TestVisionBoard_RandomPlacement(t *testing.T) {
	h := newHarness(t)
	v := NewVisionBoard(h.client, h.opts)
	h.mount(t, v)

	page := v.Value().Pages[0].ID
	_, err := v.AddItem(page, "", []byte("GIF89a"))
	require.NoError(t, err)
	item := v.Value().Pages[0].Items[0]
	assert.GreaterOrEqual(t, item.Position.X, 0.0)
	assert.Less(t, item.Position.X, PlacementSpread)
	assert.GreaterOrEqual(t, item.Position.Y, 0.0)
	assert.Less(t, item.Position.Y, PlacementSpread)
	assert.True(t, strings.HasPrefix(item.ImageURL, "data:image/gif;base64,"))
}

func TestVisionBoard_Pages(t *testing.T) {
	h := newHarness(t)
	v := NewVisionBoard(h.client, h.opts)
	h.mount(t, v)

	id, err := v.AddPage("Travel")
	require.NoError(t, err)
	require.NoError(t, v.RenamePage(id, "Travel 2025"))
	assert.Equal(t, "Travel 2025", v.Value().Pages[1].Name)
	require.NoError(t, v.DeletePage(id))
	assert.Len(t, v.Value().Pages, 1)
}

func TestDropPosition(t *testing.T) {
	size := Size{Width: 192, Height: 128}
	assert.Equal(t, Point{X: 304, Y: 136}, DropPosition(Point{X: 400, Y: 200}, size))
	assert.Equal(t, Point{X: 0, Y: 0}, DropPosition(Point{X: 10, Y: 10}, size))
}

func TestResize(t *testing.T) {
	pos := Point{X: 100, Y: 100}
	size := Size{Width: 200, Height: 100}

	tests := []struct {
		handle   ResizeHandle
		pointer  Point
		wantPos  Point
		wantSize Size
	}{
		{HandleSE, Point{X: 400, Y: 300}, Point{X: 100, Y: 100}, Size{Width: 300, Height: 200}},
		{HandleSE, Point{X: 110, Y: 110}, Point{X: 100, Y: 100}, Size{Width: 50, Height: 50}},
		{HandleSW, Point{X: 50, Y: 250}, Point{X: 50, Y: 100}, Size{Width: 250, Height: 150}},
		{HandleSW, Point{X: 290, Y: 250}, Point{X: 250, Y: 100}, Size{Width: 50, Height: 150}},
		{HandleNE, Point{X: 350, Y: 50}, Point{X: 100, Y: 50}, Size{Width: 250, Height: 150}},
		{HandleNE, Point{X: 350, Y: 190}, Point{X: 100, Y: 150}, Size{Width: 250, Height: 50}},
		{HandleNW, Point{X: 0, Y: 0}, Point{X: 0, Y: 0}, Size{Width: 300, Height: 200}},
		{HandleNW, Point{X: 500, Y: 500}, Point{X: 250, Y: 150}, Size{Width: 50, Height: 50}},
	}
	for _, tt := range tests {
		t.Run(string(tt.handle), func(t *testing.T) {
			gotPos, gotSize := Resize(pos, size, tt.handle, tt.pointer)
			assert.Equal(t, tt.wantPos, gotPos)
			assert.Equal(t, tt.wantSize, gotSize)
		})
	}
}
