// Package rangeextract filters fragment sheets to m/z intervals and merges
// the per-sheet selections into a single table keyed by m/z.
package rangeextract

import (
	"fmt"

	"github.com/locvowork/mzextract/internal/domain"
)

// sheetSelection holds the rows one sheet contributed, in output order.
type sheetSelection struct {
	sheet  string
	column string
	keys   []float64
	values []domain.Cell
}

// Extract runs req against wb. Sheets that are absent or lack one of the
// columns are skipped and reported as warnings. When nothing matches the
// result has a nil Table.
func Extract(wb *domain.Workbook, req domain.ExtractionRequest) (*domain.ExtractionResult, error) {
	if wb == nil {
		return nil, fmt.Errorf("%w: no workbook", domain.ErrInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := &domain.ExtractionResult{}
	var selections []*sheetSelection

	for _, name := range req.SheetNames {
		tbl, ok := wb.Sheet(name)
		if !ok {
			result.Warnings = append(result.Warnings, domain.SheetNotFoundWarning(name))
			continue
		}

		keyIdx, hasKey := tbl.ColumnIndex(req.KeyColumn)
		valIdx, hasVal := tbl.ColumnIndex(req.ValueColumn)
		if !hasKey || !hasVal {
			var missing []string
			if !hasKey {
				missing = append(missing, req.KeyColumn)
			}
			if !hasVal {
				missing = append(missing, req.ValueColumn)
			}
			result.Warnings = append(result.Warnings, domain.MissingColumnWarning(name, missing))
			continue
		}

		sel := selectRanges(tbl, keyIdx, valIdx, req.Ranges)
		if len(sel.keys) == 0 {
			continue
		}
		sel.sheet = name
		sel.column = req.OutputColumn(name)
		selections = append(selections, sel)
		result.MatchedSheets = append(result.MatchedSheets, name)
	}

	if len(selections) == 0 {
		return result, nil
	}
	result.Table = merge(req.KeyColumn, selections)
	return result, nil
}

// selectRanges concatenates the matches of every interval in order. A row
// matched by two overlapping intervals is emitted twice.
func selectRanges(tbl *domain.Table, keyIdx, valIdx int, ranges []domain.Interval) *sheetSelection {
	sel := &sheetSelection{}
	for _, iv := range ranges {
		for _, row := range tbl.Rows {
			key, ok := row[keyIdx].Float()
			if !ok || !iv.Contains(key) {
				continue
			}
			sel.keys = append(sel.keys, key)
			sel.values = append(sel.values, row[valIdx])
		}
	}
	return sel
}
