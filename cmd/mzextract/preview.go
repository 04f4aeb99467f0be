package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/locvowork/mzextract/internal/domain"
	"github.com/locvowork/mzextract/pkg/simpleexcel"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AA00"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)
)

// renderPreview draws the first n rows of t as a bordered table.
func renderPreview(t *domain.Table, n int) string {
	if n > t.Len() {
		n = t.Len()
	}
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		cells := make([]string, len(t.Rows[i]))
		for j, c := range t.Rows[i] {
			cells[j] = c.String()
		}
		rows[i] = cells
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.Columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	out := tbl.Render()
	if rest := t.Len() - n; rest > 0 {
		out += "\n" + mutedStyle.Render(fmt.Sprintf("... %d more rows", rest))
	}
	return out
}

func renderInspect(info *simpleexcel.WorkbookInfo) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(info.Source))
	sb.WriteString("\n")

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("sheet", "rows", "columns", info.KeyColumn).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, s := range info.Sheets {
		key := "yes"
		if !s.HasKey {
			key = "missing"
		}
		tbl.Row(s.Name, fmt.Sprint(s.Rows), fmt.Sprint(len(s.Columns)), key)
	}
	sb.WriteString(tbl.Render())
	sb.WriteString("\n")
	sb.WriteString("value columns: " + strings.Join(info.ValueColumns, ", "))
	if len(info.SheetsMissingKey) > 0 {
		sb.WriteString("\n")
		sb.WriteString(warnStyle.Render("sheets without " + info.KeyColumn + ": " + strings.Join(info.SheetsMissingKey, ", ")))
	}
	return sb.String()
}
