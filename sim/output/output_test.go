package output

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pksim-dev/pksim/sim"
)

func sampleTable() *sim.Table {
	t := sim.NewTable([]string{"ID", "time", "CP"}, 2)
	t.RequestStart = 2
	t.Set(0, 0, 1)
	t.Set(0, 1, 0)
	t.Set(0, 2, 5.25)
	t.Set(1, 0, 1)
	t.Set(1, 1, 2)
	t.Set(1, 2, math.NaN())
	return t
}

func TestNewRunMetadata_StampsUUID(t *testing.T) {
	meta := NewRunMetadata("pk1", 1, sampleTable())

	_, err := uuid.Parse(meta.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, meta.Rows)
	assert.NotEqual(t, meta.ID, NewRunMetadata("pk1", 1, sampleTable()).ID)
}

func TestWriteCSV_MissingAsNA(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteCSV(&buf, sampleTable()))

	assert.Equal(t, "ID,time,CP\n1,0,5.25\n1,2,NA\n", buf.String())
}

func TestWriteJSON_MissingAsNull(t *testing.T) {
	// GIVEN a table with a missing value
	var buf bytes.Buffer
	meta := RunMetadata{ID: "run-1", Model: "pk1", Rows: 2}

	// WHEN written as JSON
	require.NoError(t, WriteJSON(&buf, meta, sampleTable()))

	// THEN it decodes back with null for the missing cell
	var got struct {
		Run     RunMetadata  `json:"run"`
		Columns []string     `json:"columns"`
		Rows    [][]*float64 `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got.Run.ID)
	assert.Equal(t, []string{"ID", "time", "CP"}, got.Columns)
	assert.Equal(t, 5.25, *got.Rows[0][2])
	assert.Nil(t, got.Rows[1][2])
}

func TestWriteXLSX_RoundTrips(t *testing.T) {
	// GIVEN a table written to a workbook
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteFile(path, RunMetadata{ID: "run-2", Model: "pk1"}, sampleTable()))

	// WHEN the workbook is read back
	xl, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()
	rows, err := xl.GetRows(ResultSheet)
	require.NoError(t, err)

	// THEN the result sheet has the header, values and a blank for NaN
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "time", "CP"}, rows[0])
	assert.Equal(t, []string{"1", "0", "5.25"}, rows[1])
	assert.Equal(t, []string{"1", "2"}, rows[2][:2])
	blank, err := xl.GetCellValue(ResultSheet, "C3")
	require.NoError(t, err)
	assert.Empty(t, blank)
	id, err := xl.GetCellValue("run", "B1")
	require.NoError(t, err)
	assert.Equal(t, "run-2", id)
}

func TestWriteFile_ByExtension(t *testing.T) {
	dir := t.TempDir()
	meta := RunMetadata{ID: "x"}

	require.NoError(t, WriteFile(filepath.Join(dir, "r.csv"), meta, sampleTable()))
	require.NoError(t, WriteFile(filepath.Join(dir, "r.json"), meta, sampleTable()))
	assert.Error(t, WriteFile(filepath.Join(dir, "r.parquet"), meta, sampleTable()))

	data, err := os.ReadFile(filepath.Join(dir, "r.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "ID,time,CP")
}
