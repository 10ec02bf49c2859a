// ABOUTME: Vision board: pages of freely positioned, resizable image cards
// ABOUTME: Drag and resize geometry lives here as pure functions over board coordinates

package features

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/synced"
)

// FeatureVisionBoard names the vision board.
const FeatureVisionBoard = "visionboard"

// Vision board geometry, in board pixels.
const (
	DefaultItemWidth  = 192.0
	DefaultItemHeight = 128.0
	MinItemSize       = 50.0
	PlacementSpread   = 300.0
)

// DefaultPageName names the page every new board starts with.
const DefaultPageName = "Vision Board 1"

// Point is a position on the board.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is an item's extent.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// VisionItem is one image card.
type VisionItem struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	Caption  string `json:"caption"`
	Position Point  `json:"position"`
	Size     *Size  `json:"size"`
}

// VisionPage is one board page.
type VisionPage struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Items []VisionItem `json:"items"`
}

// VisionBoardState is the stored board document.
type VisionBoardState struct {
	Pages []VisionPage `json:"pages"`
}

func defaultPages() []VisionPage {
	return []VisionPage{{ID: "page1", Name: DefaultPageName, Items: []VisionItem{}}}
}

// VisionBoardConfig returns the store configuration for the board.
func VisionBoardConfig() synced.Config[VisionBoardState] {
	return synced.Config[VisionBoardState]{
		Feature:   FeatureVisionBoard,
		HandleFor: rootDoc("visionBoards"),
		Default:   func() VisionBoardState { return VisionBoardState{Pages: defaultPages()} },
		Backfill: func(s *VisionBoardState) {
			if len(s.Pages) == 0 {
				s.Pages = defaultPages()
			}
			for i := range s.Pages {
				p := &s.Pages[i]
				p.Items = orEmpty(p.Items)
				for j := range p.Items {
					if p.Items[j].Size == nil {
						p.Items[j].Size = &Size{Width: DefaultItemWidth, Height: DefaultItemHeight}
					}
				}
			}
		},
	}
}

// VisionBoard is the vision board module.
type VisionBoard struct {
	*synced.Store[VisionBoardState]

	// place picks where a new item lands.
	place func() Point
}

var _ Module = (*VisionBoard)(nil)

// NewVisionBoard creates an unbound vision board.
func NewVisionBoard(client remote.Client, opts Options) *VisionBoard {
	return &VisionBoard{
		Store: synced.New(client, configure(opts, VisionBoardConfig())),
		place: func() Point {
			return Point{X: rand.Float64() * PlacementSpread, Y: rand.Float64() * PlacementSpread}
		},
	}
}

// AddPage appends a page and returns its id.
func (v *VisionBoard) AddPage(name string) (string, error) {
	name, err := requireName(name)
	if err != nil {
		return "", err
	}
	p := VisionPage{ID: newID(), Name: name, Items: []VisionItem{}}
	err = v.Mutate(func(s VisionBoardState) VisionBoardState {
		s.Pages = appended(s.Pages, p)
		return s
	})
	return p.ID, err
}

// DeletePage removes a page. The last page cannot be removed.
func (v *VisionBoard) DeletePage(id string) error {
	return v.TryMutate(func(s VisionBoardState) (VisionBoardState, error) {
		if len(s.Pages) <= 1 {
			return s, fmt.Errorf("%w: cannot delete the last page", ErrInvalidArgument)
		}
		pages, err := remove(s.Pages, pageIDOf, id, "page")
		if err != nil {
			return s, err
		}
		s.Pages = pages
		return s, nil
	})
}

// RenamePage renames a page.
func (v *VisionBoard) RenamePage(id, name string) error {
	name, err := requireName(name)
	if err != nil {
		return err
	}
	return v.editPage(id, func(p VisionPage) (VisionPage, error) {
		p.Name = name
		return p, nil
	})
}

// AddItem embeds an image on a page and returns the item id.
func (v *VisionBoard) AddItem(pageID, mime string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrInvalidArgument)
	}
	if len(image) > MaxAttachmentSize {
		return "", fmt.Errorf("%w: image is %d bytes, limit %d", ErrInvalidArgument, len(image), MaxAttachmentSize)
	}
	item := VisionItem{
		ID:       newID(),
		ImageURL: DataURI(mime, image),
		Position: v.place(),
		Size:     &Size{Width: DefaultItemWidth, Height: DefaultItemHeight},
	}
	err := v.editPage(pageID, func(p VisionPage) (VisionPage, error) {
		p.Items = appended(p.Items, item)
		return p, nil
	})
	return item.ID, err
}

// SetCaption sets an item's caption.
func (v *VisionBoard) SetCaption(pageID, itemID, caption string) error {
	return v.editItem(pageID, itemID, func(it VisionItem) VisionItem {
		it.Caption = caption
		return it
	})
}

// DeleteItem removes an item.
func (v *VisionBoard) DeleteItem(pageID, itemID string) error {
	return v.editPage(pageID, func(p VisionPage) (VisionPage, error) {
		items, err := remove(p.Items, visionItemIDOf, itemID, "item")
		p.Items = items
		return p, err
	})
}

// MoveItem drops an item centred on pointer.
func (v *VisionBoard) MoveItem(pageID, itemID string, pointer Point) error {
	return v.editItem(pageID, itemID, func(it VisionItem) VisionItem {
		it.Position = DropPosition(pointer, it.size())
		return it
	})
}

// ResizeItem drags one of an item's corner handles to pointer.
func (v *VisionBoard) ResizeItem(pageID, itemID string, handle ResizeHandle, pointer Point) error {
	if !handle.Valid() {
		return fmt.Errorf("%w: resize handle %q", ErrInvalidArgument, handle)
	}
	return v.editItem(pageID, itemID, func(it VisionItem) VisionItem {
		pos, size := Resize(it.Position, it.size(), handle, pointer)
		it.Position = pos
		it.Size = &size
		return it
	})
}

func (it VisionItem) size() Size {
	if it.Size == nil {
		return Size{Width: DefaultItemWidth, Height: DefaultItemHeight}
	}
	return *it.Size
}

func (v *VisionBoard) editPage(id string, fn func(VisionPage) (VisionPage, error)) error {
	return v.TryMutate(func(s VisionBoardState) (VisionBoardState, error) {
		pages, err := update(s.Pages, pageIDOf, id, "page", fn)
		if err != nil {
			return s, err
		}
		s.Pages = pages
		return s, nil
	})
}

func (v *VisionBoard) editItem(pageID, itemID string, fn func(VisionItem) VisionItem) error {
	return v.editPage(pageID, func(p VisionPage) (VisionPage, error) {
		items, err := update(p.Items, visionItemIDOf, itemID, "item", func(it VisionItem) (VisionItem, error) {
			return fn(it), nil
		})
		p.Items = items
		return p, err
	})
}

func pageIDOf(p VisionPage) string       { return p.ID }
func visionItemIDOf(i VisionItem) string { return i.ID }

// ResizeHandle names the corner being dragged.
type ResizeHandle string

// Corner handles.
const (
	HandleSE ResizeHandle = "se"
	HandleSW ResizeHandle = "sw"
	HandleNE ResizeHandle = "ne"
	HandleNW ResizeHandle = "nw"
)

// Valid reports whether h is a known corner.
func (h ResizeHandle) Valid() bool {
	switch h {
	case HandleSE, HandleSW, HandleNE, HandleNW:
		return true
	}
	return false
}

// DropPosition centres an item of size on pointer, clamped to the board.
func DropPosition(pointer Point, size Size) Point {
	return Point{
		X: max(0, pointer.X-size.Width/2),
		Y: max(0, pointer.Y-size.Height/2),
	}
}

// Resize computes an item's geometry after dragging handle to pointer.
// Neither side shrinks below MinItemSize, and the opposite corner stays put.
func Resize(pos Point, size Size, handle ResizeHandle, pointer Point) (Point, Size) {
	right := pos.X + size.Width
	bottom := pos.Y + size.Height

	switch handle {
	case HandleSE:
		size.Width = max(MinItemSize, pointer.X-pos.X)
		size.Height = max(MinItemSize, pointer.Y-pos.Y)
	case HandleSW:
		size.Width = max(MinItemSize, right-pointer.X)
		size.Height = max(MinItemSize, pointer.Y-pos.Y)
		pos.X = min(pointer.X, right-MinItemSize)
	case HandleNE:
		size.Width = max(MinItemSize, pointer.X-pos.X)
		size.Height = max(MinItemSize, bottom-pointer.Y)
		pos.Y = min(pointer.Y, bottom-MinItemSize)
	case HandleNW:
		size.Width = max(MinItemSize, right-pointer.X)
		size.Height = max(MinItemSize, bottom-pointer.Y)
		pos.X = min(pointer.X, right-MinItemSize)
		pos.Y = min(pointer.Y, bottom-MinItemSize)
	}
	return pos, size
}

// State implements Module.
func (v *VisionBoard) State() any { return v.Value() }

// Apply implements Module.
func (v *VisionBoard) Apply(name string, args json.RawMessage) (any, error) {
	type arg struct {
		PageID  string       `json:"pageId"`
		ItemID  string       `json:"itemId"`
		Name    string       `json:"name"`
		Caption string       `json:"caption"`
		Type    string       `json:"type"`
		Data    []byte       `json:"data"`
		Handle  ResizeHandle `json:"handle"`
		X       float64      `json:"x"`
		Y       float64      `json:"y"`
	}
	return dispatch(map[string]opFunc{
		"addPage":    op(func(a arg) (any, error) { return created(v.AddPage(a.Name)) }),
		"deletePage": op(func(a arg) (any, error) { return done(v.DeletePage(a.PageID)) }),
		"renamePage": op(func(a arg) (any, error) { return done(v.RenamePage(a.PageID, a.Name)) }),
		"addItem":    op(func(a arg) (any, error) { return created(v.AddItem(a.PageID, a.Type, a.Data)) }),
		"setCaption": op(func(a arg) (any, error) { return done(v.SetCaption(a.PageID, a.ItemID, a.Caption)) }),
		"deleteItem": op(func(a arg) (any, error) { return done(v.DeleteItem(a.PageID, a.ItemID)) }),
		"moveItem": op(func(a arg) (any, error) {
			return done(v.MoveItem(a.PageID, a.ItemID, Point{X: a.X, Y: a.Y}))
		}),
		"resizeItem": op(func(a arg) (any, error) {
			return done(v.ResizeItem(a.PageID, a.ItemID, a.Handle, Point{X: a.X, Y: a.Y}))
		}),
	}, name, args)
}
