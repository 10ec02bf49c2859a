// ABOUTME: Data tables: entry collections and spreadsheet-style tables with sheets
// ABOUTME: Grid edits apply to the table's active sheet

package features

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/synced"
)

// FeatureTables names the data tables module.
const FeatureTables = "tables"

// Size of a freshly created sheet.
const (
	EmptySheetRows    = 20
	EmptySheetColumns = 10
)

// TableColors is the collection and table palette.
var TableColors = []string{"#0066FF", "#00FF66", "#FF6600", "#6600FF", "#FF0066"}

// CellStyle is optional cell formatting. Empty fields are unset.
type CellStyle struct {
	BackgroundColor string `json:"backgroundColor,omitempty"`
	Color           string `json:"color,omitempty"`
	FontWeight      string `json:"fontWeight,omitempty"`
	TextAlign       string `json:"textAlign,omitempty"`
	FontStyle       string `json:"fontStyle,omitempty"`
}

// merge overlays the set fields of o.
func (s CellStyle) merge(o CellStyle) CellStyle {
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&s.BackgroundColor, o.BackgroundColor},
		{&s.Color, o.Color},
		{&s.FontWeight, o.FontWeight},
		{&s.TextAlign, o.TextAlign},
		{&s.FontStyle, o.FontStyle},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}
	return s
}

// Cell is one grid cell.
type Cell struct {
	Value string     `json:"value"`
	Style *CellStyle `json:"style,omitempty"`
}

// Sheet is one grid of a table.
type Sheet struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Data    [][]Cell `json:"data"`
}

// Table is a named set of sheets.
type Table struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Sheets      []Sheet `json:"sheets"`
	ActiveSheet string  `json:"activeSheet"`
}

// Entry is a titled record in a collection.
type Entry struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Color       string       `json:"color"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Collection groups entries.
type Collection struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Color   string  `json:"color"`
	Entries []Entry `json:"entries"`
}

// TablesState is the stored data tables document.
type TablesState struct {
	Collections []Collection `json:"collections"`
	Tables      []Table      `json:"tables"`
}

// CellRef addresses a cell on a sheet.
type CellRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// NewSheet returns an empty 20x10 sheet.
func NewSheet(name string) Sheet {
	cols := make([]string, EmptySheetColumns)
	for i := range cols {
		cols[i] = columnName(i)
	}
	data := make([][]Cell, EmptySheetRows)
	for i := range data {
		data[i] = make([]Cell, EmptySheetColumns)
	}
	return Sheet{ID: newID(), Name: name, Columns: cols, Data: data}
}

func columnName(i int) string {
	return "Column " + strconv.Itoa(i+1)
}

// TablesConfig returns the store configuration for data tables.
func TablesConfig() synced.Config[TablesState] {
	return synced.Config[TablesState]{
		Feature:   FeatureTables,
		HandleFor: userDoc("tables"),
		Default: func() TablesState {
			return TablesState{Collections: []Collection{}, Tables: []Table{}}
		},
		Backfill: func(s *TablesState) {
			s.Collections = orEmpty(s.Collections)
			s.Tables = orEmpty(s.Tables)
			for i := range s.Collections {
				c := &s.Collections[i]
				c.Entries = orEmpty(c.Entries)
				for j := range c.Entries {
					c.Entries[j].Attachments = orEmpty(c.Entries[j].Attachments)
				}
			}
			for i := range s.Tables {
				t := &s.Tables[i]
				if t.ActiveSheet == "" && len(t.Sheets) > 0 {
					t.ActiveSheet = t.Sheets[0].ID
				}
			}
		},
	}
}

// Tables is the data tables module.
type Tables struct {
	*synced.Store[TablesState]
	opts Options
}

var _ Module = (*Tables)(nil)

// NewTables creates an unbound data tables module.
func NewTables(client remote.Client, opts Options) *Tables {
	return &Tables{Store: synced.New(client, configure(opts, TablesConfig())), opts: opts}
}

func pickColor(color string) string {
	if color == "" {
		return TableColors[0]
	}
	return color
}

// AddCollection creates a collection and returns its id.
func (t *Tables) AddCollection(name, color string) (string, error) {
	name, err := requireName(name)
	if err != nil {
		return "", err
	}
	c := Collection{ID: newID(), Name: name, Color: pickColor(color), Entries: []Entry{}}
	err = t.Mutate(func(s TablesState) TablesState {
		s.Collections = appended(s.Collections, c)
		return s
	})
	return c.ID, err
}

// DeleteCollection removes a collection.
func (t *Tables) DeleteCollection(id string) error {
	return t.TryMutate(func(s TablesState) (TablesState, error) {
		cols, err := remove(s.Collections, collectionIDOf, id, "collection")
		if err != nil {
			return s, err
		}
		s.Collections = cols
		return s, nil
	})
}

// EntryInput holds the editable entry fields.
type EntryInput struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Color       string       `json:"color"`
	Attachments []Attachment `json:"attachments"`
}

// SaveEntry creates an entry when in.ID is empty and updates it otherwise.
// It returns the entry id.
func (t *Tables) SaveEntry(collectionID string, in EntryInput) (string, error) {
	title, err := requireName(in.Title)
	if err != nil {
		return "", err
	}
	now := t.opts.now().UTC()
	id := in.ID
	err = t.editCollection(collectionID, func(c Collection) (Collection, error) {
		if id == "" {
			id = newID()
			c.Entries = appended(c.Entries, Entry{
				ID:          id,
				Title:       title,
				Content:     in.Content,
				Color:       pickColor(in.Color),
				Attachments: orEmpty(in.Attachments),
				CreatedAt:   now,
				UpdatedAt:   now,
			})
			return c, nil
		}
		entries, err := update(c.Entries, entryIDOf, id, "entry", func(e Entry) (Entry, error) {
			e.Title = title
			e.Content = in.Content
			e.Color = pickColor(in.Color)
			e.Attachments = orEmpty(in.Attachments)
			e.UpdatedAt = now
			return e, nil
		})
		c.Entries = entries
		return c, err
	})
	return id, err
}

// DeleteEntry removes an entry.
func (t *Tables) DeleteEntry(collectionID, entryID string) error {
	return t.editCollection(collectionID, func(c Collection) (Collection, error) {
		entries, err := remove(c.Entries, entryIDOf, entryID, "entry")
		c.Entries = entries
		return c, err
	})
}

// AddTable creates a table with one empty sheet and returns its id.
func (t *Tables) AddTable(name, color string) (string, error) {
	name, err := requireName(name)
	if err != nil {
		return "", err
	}
	sheet := NewSheet("Sheet 1")
	tbl := Table{ID: newID(), Name: name, Color: pickColor(color), Sheets: []Sheet{sheet}, ActiveSheet: sheet.ID}
	err = t.Mutate(func(s TablesState) TablesState {
		s.Tables = appended(s.Tables, tbl)
		return s
	})
	return tbl.ID, err
}

// DeleteTable removes a table.
func (t *Tables) DeleteTable(id string) error {
	return t.TryMutate(func(s TablesState) (TablesState, error) {
		tables, err := remove(s.Tables, tableIDOf, id, "table")
		if err != nil {
			return s, err
		}
		s.Tables = tables
		return s, nil
	})
}

// AddSheet appends an empty sheet, makes it active and returns its id.
func (t *Tables) AddSheet(tableID, name string) (string, error) {
	var id string
	err := t.editTable(tableID, func(tbl Table) (Table, error) {
		if name == "" {
			name = "Sheet " + strconv.Itoa(len(tbl.Sheets)+1)
		}
		sheet := NewSheet(name)
		id = sheet.ID
		tbl.Sheets = appended(tbl.Sheets, sheet)
		tbl.ActiveSheet = sheet.ID
		return tbl, nil
	})
	return id, err
}

// SetActiveSheet selects the sheet grid edits apply to.
func (t *Tables) SetActiveSheet(tableID, sheetID string) error {
	return t.editTable(tableID, func(tbl Table) (Table, error) {
		if !slices.ContainsFunc(tbl.Sheets, func(s Sheet) bool { return s.ID == sheetID }) {
			return tbl, notFound("sheet", sheetID)
		}
		tbl.ActiveSheet = sheetID
		return tbl, nil
	})
}

// UpdateCell sets a cell's value.
func (t *Tables) UpdateCell(tableID string, ref CellRef, value string) error {
	return t.editSheet(tableID, func(sh Sheet) (Sheet, error) {
		if err := sh.check(ref); err != nil {
			return sh, err
		}
		sh.Data = cloneGrid(sh.Data)
		sh.Data[ref.Row][ref.Col].Value = value
		return sh, nil
	})
}

// UpdateColumnHeader renames a column.
func (t *Tables) UpdateColumnHeader(tableID string, col int, name string) error {
	return t.editSheet(tableID, func(sh Sheet) (Sheet, error) {
		if col < 0 || col >= len(sh.Columns) {
			return sh, fmt.Errorf("%w: column %d", ErrInvalidArgument, col)
		}
		sh.Columns = slices.Clone(sh.Columns)
		sh.Columns[col] = name
		return sh, nil
	})
}

// FormatCells merges style into each referenced cell.
func (t *Tables) FormatCells(tableID string, refs []CellRef, style CellStyle) error {
	return t.editSheet(tableID, func(sh Sheet) (Sheet, error) {
		for _, ref := range refs {
			if err := sh.check(ref); err != nil {
				return sh, err
			}
		}
		sh.Data = cloneGrid(sh.Data)
		for _, ref := range refs {
			c := &sh.Data[ref.Row][ref.Col]
			var cur CellStyle
			if c.Style != nil {
				cur = *c.Style
			}
			merged := cur.merge(style)
			c.Style = &merged
		}
		return sh, nil
	})
}

// AddRow appends an empty row.
func (t *Tables) AddRow(tableID string) error {
	return t.editSheet(tableID, func(sh Sheet) (Sheet, error) {
		sh.Data = appended(sh.Data, make([]Cell, len(sh.Columns)))
		return sh, nil
	})
}

// AddColumn appends a column with a generated header.
func (t *Tables) AddColumn(tableID string) error {
	return t.editSheet(tableID, func(sh Sheet) (Sheet, error) {
		sh.Columns = appended(sh.Columns, columnName(len(sh.Columns)))
		data := make([][]Cell, len(sh.Data))
		for i, row := range sh.Data {
			data[i] = appended(row, Cell{})
		}
		sh.Data = data
		return sh, nil
	})
}

// DeleteRow removes a row.
func (t *Tables) DeleteRow(tableID string, row int) error {
	return t.editSheet(tableID, func(sh Sheet) (Sheet, error) {
		if row < 0 || row >= len(sh.Data) {
			return sh, fmt.Errorf("%w: row %d", ErrInvalidArgument, row)
		}
		sh.Data = slices.Delete(slices.Clone(sh.Data), row, row+1)
		return sh, nil
	})
}

// DeleteColumn removes a column and its cells.
func (t *Tables) DeleteColumn(tableID string, col int) error {
	return t.editSheet(tableID, func(sh Sheet) (Sheet, error) {
		if col < 0 || col >= len(sh.Columns) {
			return sh, fmt.Errorf("%w: column %d", ErrInvalidArgument, col)
		}
		sh.Columns = slices.Delete(slices.Clone(sh.Columns), col, col+1)
		data := make([][]Cell, len(sh.Data))
		for i, row := range sh.Data {
			if col < len(row) {
				row = slices.Delete(slices.Clone(row), col, col+1)
			}
			data[i] = row
		}
		sh.Data = data
		return sh, nil
	})
}

func (sh Sheet) check(ref CellRef) error {
	if ref.Row < 0 || ref.Row >= len(sh.Data) || ref.Col < 0 || ref.Col >= len(sh.Data[ref.Row]) {
		return fmt.Errorf("%w: cell %d,%d", ErrInvalidArgument, ref.Row, ref.Col)
	}
	return nil
}

func cloneGrid(g [][]Cell) [][]Cell {
	out := make([][]Cell, len(g))
	for i, row := range g {
		out[i] = slices.Clone(row)
	}
	return out
}

func (t *Tables) editCollection(id string, fn func(Collection) (Collection, error)) error {
	return t.TryMutate(func(s TablesState) (TablesState, error) {
		cols, err := update(s.Collections, collectionIDOf, id, "collection", fn)
		if err != nil {
			return s, err
		}
		s.Collections = cols
		return s, nil
	})
}

func (t *Tables) editTable(id string, fn func(Table) (Table, error)) error {
	return t.TryMutate(func(s TablesState) (TablesState, error) {
		tables, err := update(s.Tables, tableIDOf, id, "table", fn)
		if err != nil {
			return s, err
		}
		s.Tables = tables
		return s, nil
	})
}

func (t *Tables) editSheet(tableID string, fn func(Sheet) (Sheet, error)) error {
	return t.editTable(tableID, func(tbl Table) (Table, error) {
		sheets, err := update(tbl.Sheets, sheetIDOf, tbl.ActiveSheet, "sheet", fn)
		tbl.Sheets = sheets
		return tbl, err
	})
}

func collectionIDOf(c Collection) string { return c.ID }
func entryIDOf(e Entry) string           { return e.ID }
func tableIDOf(t Table) string           { return t.ID }
func sheetIDOf(s Sheet) string           { return s.ID }

// State implements Module.
func (t *Tables) State() any { return t.Value() }

// Apply implements Module.
func (t *Tables) Apply(name string, args json.RawMessage) (any, error) {
	type arg struct {
		ID           string     `json:"id"`
		CollectionID string     `json:"collectionId"`
		TableID      string     `json:"tableId"`
		SheetID      string     `json:"sheetId"`
		Name         string     `json:"name"`
		Color        string     `json:"color"`
		Row          int        `json:"row"`
		Col          int        `json:"col"`
		Value        string     `json:"value"`
		Cells        []CellRef  `json:"cells"`
		Style        CellStyle  `json:"style"`
		Entry        EntryInput `json:"entry"`
	}
	return dispatch(map[string]opFunc{
		"addCollection":    op(func(a arg) (any, error) { return created(t.AddCollection(a.Name, a.Color)) }),
		"deleteCollection": op(func(a arg) (any, error) { return done(t.DeleteCollection(a.CollectionID)) }),
		"saveEntry":        op(func(a arg) (any, error) { return created(t.SaveEntry(a.CollectionID, a.Entry)) }),
		"deleteEntry":      op(func(a arg) (any, error) { return done(t.DeleteEntry(a.CollectionID, a.ID)) }),
		"addTable":         op(func(a arg) (any, error) { return created(t.AddTable(a.Name, a.Color)) }),
		"deleteTable":      op(func(a arg) (any, error) { return done(t.DeleteTable(a.TableID)) }),
		"addSheet":         op(func(a arg) (any, error) { return created(t.AddSheet(a.TableID, a.Name)) }),
		"setActiveSheet":   op(func(a arg) (any, error) { return done(t.SetActiveSheet(a.TableID, a.SheetID)) }),
		"updateCell": op(func(a arg) (any, error) {
			return done(t.UpdateCell(a.TableID, CellRef{Row: a.Row, Col: a.Col}, a.Value))
		}),
		"updateColumnHeader": op(func(a arg) (any, error) {
			return done(t.UpdateColumnHeader(a.TableID, a.Col, a.Value))
		}),
		"formatCells":  op(func(a arg) (any, error) { return done(t.FormatCells(a.TableID, a.Cells, a.Style)) }),
		"addRow":       op(func(a arg) (any, error) { return done(t.AddRow(a.TableID)) }),
		"addColumn":    op(func(a arg) (any, error) { return done(t.AddColumn(a.TableID)) }),
		"deleteRow":    op(func(a arg) (any, error) { return done(t.DeleteRow(a.TableID, a.Row)) }),
		"deleteColumn": op(func(a arg) (any, error) { return done(t.DeleteColumn(a.TableID, a.Col)) }),
	}, name, args)
}
