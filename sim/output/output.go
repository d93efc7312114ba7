// Package output writes result tables to CSV, JSON and XLSX files.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/pksim-dev/pksim/sim"
)

// RunMetadata describes the run that produced a table.
type RunMetadata struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
	Subjects  int       `json:"subjects"`
	Rows      int       `json:"rows"`
	RecSort   int       `json:"recsort"`
	Seed      int64     `json:"seed,omitempty"`
}

// NewRunMetadata stamps a run with a fresh identifier.
func NewRunMetadata(model string, subjects int, table *sim.Table) RunMetadata {
	return RunMetadata{
		ID:        uuid.NewString(),
		Model:     model,
		Timestamp: time.Now().UTC(),
		Subjects:  subjects,
		Rows:      table.NRow,
	}
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes the table with a header row. Missing values are "NA".
func WriteCSV(w io.Writer, t *sim.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	record := make([]string, t.NCol())
	for i := 0; i < t.NRow; i++ {
		for j, v := range t.Row(i) {
			record[j] = formatValue(v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

type jsonResult struct {
	Run     RunMetadata  `json:"run"`
	Columns []string     `json:"columns"`
	Rows    [][]*float64 `json:"rows"`
}

// WriteJSON writes the run metadata and the table. Missing values are
// null.
func WriteJSON(w io.Writer, meta RunMetadata, t *sim.Table) error {
	out := jsonResult{Run: meta, Columns: t.Columns, Rows: make([][]*float64, t.NRow)}
	for i := range out.Rows {
		row := make([]*float64, t.NCol())
		for j, v := range t.Row(i) {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				v := v
				row[j] = &v
			}
		}
		out.Rows[i] = row
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}

// ResultSheet is the worksheet name used by WriteXLSX.
const ResultSheet = "result"

// WriteXLSX saves the table as a workbook with a result sheet and a run
// sheet. Missing values are left blank.
func WriteXLSX(path string, meta RunMetadata, t *sim.Table) error {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), ResultSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	header := make([]interface{}, t.NCol())
	for j, c := range t.Columns {
		header[j] = c
	}
	if err := xl.SetSheetRow(ResultSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := 0; i < t.NRow; i++ {
		row := make([]interface{}, t.NCol())
		for j, v := range t.Row(i) {
			if !math.IsNaN(v) {
				row[j] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := xl.SetSheetRow(ResultSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	if _, err := xl.NewSheet("run"); err != nil {
		return fmt.Errorf("adding run sheet: %w", err)
	}
	info := [][]interface{}{
		{"id", meta.ID},
		{"model", meta.Model},
		{"timestamp", meta.Timestamp.Format(time.RFC3339)},
		{"subjects", meta.Subjects},
		{"rows", meta.Rows},
	}
	for i, kv := range info {
		if err := xl.SetSheetRow("run", fmt.Sprintf("A%d", i+1), &kv); err != nil {
			return fmt.Errorf("writing run info: %w", err)
		}
	}
	if err := xl.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// WriteFile writes t to path in the format given by its extension: .csv,
// .json or .xlsx.
func WriteFile(path string, meta RunMetadata, t *sim.Table) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" {
		return WriteXLSX(path, meta, t)
	}
	if ext != ".csv" && ext != ".json" {
		return fmt.Errorf("unsupported output format %q (use .csv, .json or .xlsx)", ext)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() { _ = file.Close() }()
	if ext == ".json" {
		return WriteJSON(file, meta, t)
	}
	return WriteCSV(file, t)
}
