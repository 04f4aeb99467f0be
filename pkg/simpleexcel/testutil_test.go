package simpleexcel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook renders sheets (name -> rows of cell values) into xlsx bytes.
func buildWorkbook(t *testing.T, order []string, sheets map[string][][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	keepDefault := false
	for _, name := range order {
		if name == "Sheet1" {
			keepDefault = true
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	if !keepDefault {
		require.NoError(t, f.DeleteSheet("Sheet1"))
	}

	buf := new(bytes.Buffer)
	require.NoError(t, f.Write(buf))
	return buf.Bytes()
}
