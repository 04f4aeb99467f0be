package simpleexcel

import (
	"github.com/locvowork/mzextract/internal/domain"
)

// SheetInfo describes one sheet of an uploaded workbook.
type SheetInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
	HasKey  bool     `json:"has_key"`
}

// WorkbookInfo is what a caller needs to build an extraction request.
type WorkbookInfo struct {
	Source    string      `json:"source"`
	KeyColumn string      `json:"key_column"`
	Sheets    []SheetInfo `json:"sheets"`
	// ValueColumns are the headers of the first sheet other than the key column.
	ValueColumns     []string `json:"value_columns"`
	SheetsMissingKey []string `json:"sheets_missing_key,omitempty"`
}

// Inspect summarises wb for column and sheet selection.
func Inspect(wb *domain.Workbook, keyColumn string) *WorkbookInfo {
	info := &WorkbookInfo{
		Source:       wb.Source,
		KeyColumn:    keyColumn,
		Sheets:       make([]SheetInfo, 0, len(wb.SheetNames)),
		ValueColumns: []string{},
	}

	for i, name := range wb.SheetNames {
		tbl, _ := wb.Sheet(name)
		si := SheetInfo{
			Name:    name,
			Columns: append([]string{}, tbl.Columns...),
			Rows:    tbl.Len(),
			HasKey:  tbl.HasColumn(keyColumn),
		}
		info.Sheets = append(info.Sheets, si)
		if !si.HasKey {
			info.SheetsMissingKey = append(info.SheetsMissingKey, name)
		}

		if i == 0 {
			for _, col := range tbl.Columns {
				if col != keyColumn {
					info.ValueColumns = append(info.ValueColumns, col)
				}
			}
		}
	}
	return info
}

// SheetNames lists the names in workbook order.
func (w *WorkbookInfo) SheetNames() []string {
	out := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		out[i] = s.Name
	}
	return out
}
