// Package data reads dosing data sets and per-subject data sets from CSV
// and XLSX files and exposes them to the simulator.
package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("required column missing")
	// ErrNotNumeric is returned for a cell that does not parse as a number.
	ErrNotNumeric = errors.New("non-numeric value")
	// ErrEmpty is returned for a file without a header row.
	ErrEmpty = errors.New("no header row")
)

// Frame is a numeric table with named columns. Empty cells, "." and "NA"
// are read as NaN.
type Frame struct {
	Columns []string
	Rows    [][]float64
}

// NewFrame parses string cells into a Frame. Short rows are padded with
// NaN; line numbers in errors count the header as line 1.
func NewFrame(header []string, cells [][]string) (*Frame, error) {
	if len(header) == 0 {
		return nil, ErrEmpty
	}
	f := &Frame{Columns: make([]string, len(header))}
	for i, h := range header {
		f.Columns[i] = strings.TrimSpace(h)
	}
	for r, row := range cells {
		if len(row) > len(header) {
			return nil, fmt.Errorf("line %d has %d values, header has %d", r+2, len(row), len(header))
		}
		values := make([]float64, len(header))
		for c := range values {
			values[c] = math.NaN()
			if c >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[c])
			if cell == "" || cell == "." || cell == "NA" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %s: %q", ErrNotNumeric, r+2, f.Columns[c], cell)
			}
			values[c] = v
		}
		f.Rows = append(f.Rows, values)
	}
	return f, nil
}

// Column returns the index of a column, matched case-insensitively.
func (f *Frame) Column(name string) (int, bool) {
	for i, c := range f.Columns {
		if strings.EqualFold(c, name) {
			return i, true
		}
	}
	return -1, false
}

// Load reads a CSV or XLSX file, chosen by extension. For XLSX the first
// sheet is used.
func Load(path string) (*Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path, "")
	default:
		return LoadCSV(path)
	}
}

// LoadCSV reads a comma-separated file with a header row.
func LoadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening data file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	var cells [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		cells = append(cells, row)
	}
	frame, err := NewFrame(header, cells)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frame, nil
}

// LoadXLSX reads a worksheet whose first row is the header. An empty
// sheet name selects the first sheet.
func LoadXLSX(path, sheet string) (*Frame, error) {
	xl, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening xlsx: %w", err)
	}
	defer func() { _ = xl.Close() }()

	if sheet == "" {
		sheet = xl.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("%s: no sheets found", path)
		}
	}
	rows, err := xl.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	var cells [][]string
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		cells = append(cells, row)
	}
	frame, err := NewFrame(rows[0], cells)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frame, nil
}
