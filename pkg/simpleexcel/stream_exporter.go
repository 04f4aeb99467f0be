package simpleexcel

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/locvowork/mzextract/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	// DefaultSheetName matches what spreadsheet tools name the first sheet.
	DefaultSheetName = "Sheet1"
	// ContentTypeXLSX is the MIME type of an xlsx download.
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	maxSheetNameLen = 31
)

// ColumnConfig defines a column of an exported sheet.
type ColumnConfig struct {
	Header string
	Width  float64
}

// StreamExporter writes tables into an xlsx file row by row.
type StreamExporter struct {
	file   *excelize.File
	writer io.Writer
	sheets map[string]*StreamSheet
	order  []string
}

// NewStreamExporter creates a new StreamExporter.
func NewStreamExporter(w io.Writer) *StreamExporter {
	return &StreamExporter{
		file:   excelize.NewFile(),
		writer: w,
		sheets: make(map[string]*StreamSheet),
	}
}

// StreamSheet is a single sheet of a streaming export.
type StreamSheet struct {
	stream      *excelize.StreamWriter
	name        string
	width       int
	currentRow  int
	headerShown bool
	headerStyle int
}

// AddSheet adds a sheet. Names are cleaned to what Excel accepts.
func (e *StreamExporter) AddSheet(name string) (*StreamSheet, error) {
	name = SheetName(name)
	if _, ok := e.sheets[name]; ok {
		return nil, fmt.Errorf("sheet %s already exists", name)
	}

	idx, err := e.file.GetSheetIndex(name)
	if err != nil {
		return nil, err
	}
	if idx == -1 {
		if _, err := e.file.NewSheet(name); err != nil {
			return nil, err
		}
	}

	sw, err := e.file.NewStreamWriter(name)
	if err != nil {
		return nil, err
	}
	style, err := e.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	sheet := &StreamSheet{
		stream:      sw,
		name:        name,
		currentRow:  1,
		headerStyle: style,
	}
	e.sheets[name] = sheet
	e.order = append(e.order, name)
	return sheet, nil
}

// WriteHeader writes the header row and fixes the sheet width.
func (s *StreamSheet) WriteHeader(columns []ColumnConfig) error {
	if s.headerShown {
		return fmt.Errorf("header already written for sheet %s", s.name)
	}
	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = excelize.Cell{Value: col.Header, StyleID: s.headerStyle}
		if col.Width > 0 {
			if err := s.stream.SetColWidth(i+1, i+1, col.Width); err != nil {
				return err
			}
		}
	}

	cell, _ := excelize.CoordinatesToCellName(1, s.currentRow)
	if err := s.stream.SetRow(cell, header); err != nil {
		return err
	}
	s.width = len(columns)
	s.currentRow++
	s.headerShown = true
	return nil
}

// WriteRow writes one data row. Empty cells are left blank.
func (s *StreamSheet) WriteRow(cells []domain.Cell) error {
	if !s.headerShown {
		return fmt.Errorf("header must be written before data")
	}
	if len(cells) > s.width {
		return fmt.Errorf("row has %d cells, sheet %s has %d columns", len(cells), s.name, s.width)
	}

	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c.Value()
	}

	cell, _ := excelize.CoordinatesToCellName(1, s.currentRow)
	if err := s.stream.SetRow(cell, row); err != nil {
		return err
	}
	s.currentRow++
	return nil
}

// WriteTable writes the header and all rows of t.
func (s *StreamSheet) WriteTable(t *domain.Table) error {
	cols := make([]ColumnConfig, len(t.Columns))
	for i, h := range t.Columns {
		cols[i] = ColumnConfig{Header: h, Width: columnWidth(h)}
	}
	if err := s.WriteHeader(cols); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := s.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes all sheets and writes the workbook to the output writer.
func (e *StreamExporter) Close() error {
	for _, name := range e.order {
		if err := e.sheets[name].stream.Flush(); err != nil {
			return err
		}
	}

	if _, ok := e.sheets[DefaultSheetName]; !ok && len(e.order) > 0 {
		if err := e.file.DeleteSheet(DefaultSheetName); err != nil {
			return err
		}
		e.file.SetActiveSheet(0)
	}

	if err := e.file.Write(e.writer); err != nil {
		return err
	}
	return e.file.Close()
}

// WriteXLSX writes t as the only sheet of an xlsx file.
func WriteXLSX(w io.Writer, sheetName string, t *domain.Table) error {
	if t == nil {
		return fmt.Errorf("nothing to export")
	}
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	exporter := NewStreamExporter(w)
	sheet, err := exporter.AddSheet(sheetName)
	if err != nil {
		return err
	}
	if err := sheet.WriteTable(t); err != nil {
		return err
	}
	return exporter.Close()
}

// SheetName replaces characters Excel forbids in sheet names and truncates
// the result to 31 characters.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if name == "" {
		return DefaultSheetName
	}
	for utf8.RuneCountInString(name) > maxSheetNameLen {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

func columnWidth(header string) float64 {
	w := float64(utf8.RuneCountInString(header)) + 4
	if w < 12 {
		return 12
	}
	if w > 60 {
		return 60
	}
	return w
}
