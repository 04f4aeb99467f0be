package rangeextract

import (
	"github.com/locvowork/mzextract/internal/domain"
)

// joinKey identifies the n-th occurrence of an m/z value within one sheet,
// so repeated keys pair up by position instead of multiplying.
type joinKey struct {
	mz         float64
	occurrence int
}

// merge outer-joins the selections on the key column. Rows appear in the
// order their key was first seen; the key column leads, followed by one
// column per selection.
func merge(keyColumn string, selections []*sheetSelection) *domain.Table {
	columns := make([]string, 0, len(selections)+1)
	columns = append(columns, keyColumn)
	for _, sel := range selections {
		columns = append(columns, sel.column)
	}
	out := domain.NewTable(columns...)

	rowOf := make(map[joinKey]int)
	for col, sel := range selections {
		seen := make(map[float64]int)
		for i, mz := range sel.keys {
			k := joinKey{mz: mz, occurrence: seen[mz]}
			seen[mz]++

			idx, ok := rowOf[k]
			if !ok {
				idx = len(out.Rows)
				rowOf[k] = idx
				row := make([]domain.Cell, len(columns))
				row[0] = domain.NumberCell(mz)
				out.Rows = append(out.Rows, row)
			}
			out.Rows[idx][col+1] = sel.values[i]
		}
	}
	return out
}
