package simpleexcel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, WriteCSV(buf, resultTable(t)))

	expected := "m/z,Ala_S1,Ala_S2\n" +
		"100,2,5\n" +
		"150.25,3,\n" +
		"175,,trace\n"
	assert.Equal(t, expected, buf.String())

	assert.Error(t, WriteCSV(buf, nil))
}

func TestOutputFilename(t *testing.T) {
	assert.Equal(t, "Ala_data.xlsx", OutputFilename("Ala", "xlsx"))
	assert.Equal(t, "Ala_data.csv", OutputFilename("Ala", ".csv"))
	assert.Equal(t, "b-ion_1__data.xlsx", OutputFilename("b-ion 1?", "xlsx"))
	assert.Equal(t, "result_data.xlsx", OutputFilename("  ", "xlsx"))
}
