package simpleexcel

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/locvowork/mzextract/internal/domain"
)

// ContentTypeCSV is the MIME type of a csv download.
const ContentTypeCSV = "text/csv"

// WriteCSV writes t with a header row. Empty cells are written as "".
func WriteCSV(w io.Writer, t *domain.Table) error {
	if t == nil {
		return fmt.Errorf("nothing to export")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, c := range row {
			record[i] = c.String()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// OutputFilename names the download for a value column, e.g. "Ala_data.xlsx".
func OutputFilename(valueColumn, ext string) string {
	return sanitizeFilename(valueColumn) + "_data." + strings.TrimPrefix(ext, ".")
}

func sanitizeFilename(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "result"
	}

	var sb strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
