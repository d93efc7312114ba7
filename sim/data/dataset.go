package data

import (
	"fmt"
	"math"

	"github.com/pksim-dev/pksim/sim"
)

// Record columns. ID and time are required; the rest default to zero when
// the column is absent or the cell is empty.
var recordColumns = []string{"ID", "time", "evid", "amt", "cmt", "ii", "addl", "rate", "ss"}

const (
	colID = iota
	colTime
	colEvid
	colAmt
	colCmt
	colII
	colAddl
	colRate
	colSS
)

// binding maps a frame column onto a model vector index.
type binding struct {
	column int
	index  int
}

// DataSet is a dosing data set bound to a model. It implements
// sim.RowSource.
type DataSet struct {
	frame  *Frame
	record [9]int
	params []binding
}

// NewDataSet checks the record columns of f and binds columns named like
// model parameters.
func NewDataSet(f *Frame, spec sim.ModelSpec) (*DataSet, error) {
	d := &DataSet{frame: f}
	for i, name := range recordColumns {
		d.record[i], _ = f.Column(name)
	}
	for _, i := range []int{colID, colTime} {
		if d.record[i] < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, recordColumns[i])
		}
	}
	d.params = bindParameters(f, spec)
	return d, nil
}

func bindParameters(f *Frame, spec sim.ModelSpec) []binding {
	var out []binding
	for c, name := range f.Columns {
		if idx, ok := spec.ParameterIndex(name); ok {
			out = append(out, binding{column: c, index: idx})
		}
	}
	return out
}

// NRow returns the number of data rows.
func (d *DataSet) NRow() int {
	return len(d.frame.Rows)
}

// CopyParameters overwrites bound parameters with the values on row.
// Empty cells leave the parameter unchanged.
func (d *DataSet) CopyParameters(row int, param []float64) {
	values := d.frame.Rows[row]
	for _, b := range d.params {
		if v := values[b.column]; !math.IsNaN(v) {
			param[b.index] = v
		}
	}
}

// HasColumn reports whether name is a column, matched case-insensitively.
func (d *DataSet) HasColumn(name string) bool {
	_, ok := d.frame.Column(name)
	return ok
}

// Value returns a cell, or NaN for an unknown column.
func (d *DataSet) Value(row int, name string) float64 {
	c, ok := d.frame.Column(name)
	if !ok {
		return math.NaN()
	}
	return d.frame.Rows[row][c]
}

func (d *DataSet) field(row []float64, col int) float64 {
	if d.record[col] < 0 {
		return 0
	}
	v := row[d.record[col]]
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func (d *DataSet) integer(row []float64, line, col int) (int, error) {
	v := d.field(row, col)
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("row %d: %s must be a whole number, got %g", line, recordColumns[col], v)
	}
	return int(v), nil
}

// Subjects groups consecutive rows with the same ID into subjects.
func (d *DataSet) Subjects() ([]sim.Subject, error) {
	var subjects []sim.Subject
	for i, row := range d.frame.Rows {
		id := row[d.record[colID]]
		t := row[d.record[colTime]]
		if math.IsNaN(id) || math.IsNaN(t) {
			return nil, fmt.Errorf("row %d: ID and time must not be empty", i+1)
		}
		kind, err := d.integer(row, i+1, colEvid)
		if err != nil {
			return nil, err
		}
		cmt, err := d.integer(row, i+1, colCmt)
		if err != nil {
			return nil, err
		}
		addl, err := d.integer(row, i+1, colAddl)
		if err != nil {
			return nil, err
		}
		ss, err := d.integer(row, i+1, colSS)
		if err != nil {
			return nil, err
		}
		rec := sim.EventRecord{
			ID:     id,
			Time:   t,
			Kind:   sim.Kind(kind),
			Cmt:    cmt,
			Amt:    d.field(row, colAmt),
			Rate:   d.field(row, colRate),
			II:     d.field(row, colII),
			Addl:   addl,
			SS:     ss,
			Row:    i,
			Origin: sim.OriginData,
			Armed:  true,
			Output: true,
		}
		if len(subjects) == 0 || subjects[len(subjects)-1].ID != id {
			subjects = append(subjects, sim.Subject{ID: id, FirstRow: i})
		}
		last := &subjects[len(subjects)-1]
		last.Records = append(last.Records, rec)
	}
	return subjects, nil
}
