package domain

import (
	"fmt"
	"strconv"
)

// CellKind tells which field of a Cell holds the value.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumber
	CellText
)

// Cell is a single typed spreadsheet value.
type Cell struct {
	Kind CellKind
	Num  float64
	Text string
}

func EmptyCell() Cell           { return Cell{Kind: CellEmpty} }
func NumberCell(v float64) Cell { return Cell{Kind: CellNumber, Num: v} }
func TextCell(s string) Cell    { return Cell{Kind: CellText, Text: s} }

func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }

// Float returns the numeric value and whether the cell holds a number.
func (c Cell) Float() (float64, bool) {
	if c.Kind != CellNumber {
		return 0, false
	}
	return c.Num, true
}

// Value returns the cell as a plain Go value (nil, float64 or string),
// which is what the exporters and JSON encoding expect.
func (c Cell) Value() interface{} {
	switch c.Kind {
	case CellNumber:
		return c.Num
	case CellText:
		return c.Text
	default:
		return nil
	}
}

func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case CellText:
		return c.Text
	default:
		return ""
	}
}

// Table is an ordered set of named columns sharing a row count.
// Rows are stored row-major; every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]Cell
}

func NewTable(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// AppendRow adds a row. Short rows are padded with empty cells.
func (t *Table) AppendRow(cells ...Cell) error {
	if len(cells) > len(t.Columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.Columns))
	}
	row := make([]Cell, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
	return nil
}

// ColumnIndex returns the position of the column with exactly this name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.ColumnIndex(name)
	return ok
}

// Column returns a copy of the named column's cells, or nil if absent.
func (t *Table) Column(name string) []Cell {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return nil
	}
	out := make([]Cell, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Records converts the rows into column-keyed maps for JSON responses.
func (t *Table) Records() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]interface{}, len(t.Columns))
		for i, col := range t.Columns {
			rec[col] = row[i].Value()
		}
		out = append(out, rec)
	}
	return out
}

// Workbook maps sheet names to tables. SheetNames keeps the order of the source file.
type Workbook struct {
	Source     string
	SheetNames []string
	Sheets     map[string]*Table
}

func NewWorkbook(source string) *Workbook {
	return &Workbook{
		Source: source,
		Sheets: make(map[string]*Table),
	}
}

// AddSheet registers a sheet, replacing any previous table with the same name.
func (w *Workbook) AddSheet(name string, t *Table) {
	if _, exists := w.Sheets[name]; !exists {
		w.SheetNames = append(w.SheetNames, name)
	}
	w.Sheets[name] = t
}

func (w *Workbook) Sheet(name string) (*Table, bool) {
	t, ok := w.Sheets[name]
	return t, ok
}
