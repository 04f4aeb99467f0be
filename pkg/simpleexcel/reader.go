package simpleexcel

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/locvowork/mzextract/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ErrNoSheets indicates a workbook without any worksheet.
var ErrNoSheets = errors.New("workbook has no sheets")

// LoadOptions controls how sheets are turned into tables.
type LoadOptions struct {
	// Source names the workbook in errors and logs (usually the upload filename).
	Source string
	// TrimHeaders strips surrounding whitespace from header cells. Some exports
	// pad headers such as " m/z", which would otherwise never match.
	TrimHeaders bool
}

// LoadWorkbook reads every sheet of an xlsx stream. The first row of each
// sheet is its header row.
func LoadWorkbook(r io.Reader, opts LoadOptions) (*domain.Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.NewLoadError(opts.Source, fmt.Errorf("open Excel: %w", err))
	}
	defer f.Close()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, domain.NewLoadError(opts.Source, ErrNoSheets)
	}

	wb := domain.NewWorkbook(opts.Source)
	for _, name := range names {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, domain.NewLoadError(opts.Source, fmt.Errorf("get rows for sheet %q: %w", name, err))
		}
		wb.AddSheet(name, rowsToTable(rows, opts.TrimHeaders))
	}
	return wb, nil
}

// LoadWorkbookFile opens path and loads it with LoadWorkbook.
func LoadWorkbookFile(path string, opts LoadOptions) (*domain.Workbook, error) {
	if opts.Source == "" {
		opts.Source = filepath.Base(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewLoadError(opts.Source, err)
	}
	defer f.Close()
	return LoadWorkbook(f, opts)
}

func rowsToTable(rows [][]string, trimHeaders bool) *domain.Table {
	for len(rows) > 0 && isBlankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return domain.NewTable()
	}

	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	tbl := domain.NewTable(headers(rows[0], width, trimHeaders)...)
	for _, r := range rows[1:] {
		row := make([]domain.Cell, width)
		for i, v := range r {
			row[i] = parseCell(v)
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl
}

// headers names every column. Blank headers become "Unnamed: N" and repeated
// ones get ".1", ".2" suffixes so that column names stay unique.
func headers(raw []string, width int, trim bool) []string {
	out := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		h := ""
		if i < len(raw) {
			h = raw[i]
		}
		if trim {
			h = strings.TrimSpace(h)
		}
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[h]; dup {
			seen[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n+1)
		} else {
			seen[h] = 0
		}
		out[i] = h
	}
	return out
}

// parseCell types a raw cell value: numbers become Number, blanks Empty,
// everything else Text.
func parseCell(s string) domain.Cell {
	v := strings.TrimSpace(s)
	if v == "" {
		return domain.EmptyCell()
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return domain.NumberCell(f)
	}
	return domain.TextCell(s)
}

func isBlankRow(r []string) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
