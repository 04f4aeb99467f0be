package simpleexcel

import (
	"bytes"
	"strings"
	"testing"

	"github.com/locvowork/mzextract/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func resultTable(t *testing.T) *domain.Table {
	tbl := domain.NewTable("m/z", "Ala_S1", "Ala_S2")
	require.NoError(t, tbl.AppendRow(domain.NumberCell(100), domain.NumberCell(2), domain.NumberCell(5)))
	require.NoError(t, tbl.AppendRow(domain.NumberCell(150.25), domain.NumberCell(3), domain.EmptyCell()))
	require.NoError(t, tbl.AppendRow(domain.NumberCell(175), domain.EmptyCell(), domain.TextCell("trace")))
	return tbl
}

func TestWriteXLSX(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, WriteXLSX(buf, "", resultTable(t)))

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DefaultSheetName}, f.GetSheetList())
	rows, err := f.GetRows(DefaultSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"m/z", "Ala_S1", "Ala_S2"}, rows[0])
	assert.Equal(t, []string{"100", "2", "5"}, rows[1])
	assert.Equal(t, []string{"150.25", "3"}, rows[2])
	assert.Equal(t, []string{"175", "", "trace"}, rows[3])
}

func TestWriteXLSXRoundTripsThroughLoader(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, WriteXLSX(buf, "Ala/data", resultTable(t)))

	wb, err := LoadWorkbook(buf, LoadOptions{TrimHeaders: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ala_data"}, wb.SheetNames)

	tbl, _ := wb.Sheet("Ala_data")
	assert.Equal(t, resultTable(t), tbl)
}

func TestWriteXLSXNilTable(t *testing.T) {
	assert.Error(t, WriteXLSX(new(bytes.Buffer), "", nil))
}

func TestStreamSheetOrdering(t *testing.T) {
	exporter := NewStreamExporter(new(bytes.Buffer))
	sheet, err := exporter.AddSheet("Result")
	require.NoError(t, err)

	assert.Error(t, sheet.WriteRow([]domain.Cell{domain.NumberCell(1)}), "data before header")
	require.NoError(t, sheet.WriteHeader([]ColumnConfig{{Header: "m/z", Width: 12}}))
	assert.Error(t, sheet.WriteHeader([]ColumnConfig{{Header: "again"}}))
	assert.Error(t, sheet.WriteRow([]domain.Cell{domain.NumberCell(1), domain.NumberCell(2)}))

	_, err = exporter.AddSheet("Result")
	assert.Error(t, err)
	assert.NoError(t, exporter.Close())
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Sheet1", SheetName("  "))
	assert.Equal(t, "a_b_c", SheetName("a/b:c"))
	assert.Equal(t, strings.Repeat("x", 31), SheetName(strings.Repeat("x", 40)))
}
