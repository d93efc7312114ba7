package data

import (
	"fmt"
	"math"

	"github.com/pksim-dev/pksim/sim"
)

// InitSuffix marks a per-subject column holding an initial amount, as in
// CENT_0.
const InitSuffix = "_0"

// IDataSet holds one row of parameters and initial amounts per subject.
// It implements sim.IDataSource.
type IDataSet struct {
	frame  *Frame
	rows   map[float64]int
	params []binding
	inits  []binding
}

// NewIDataSet indexes f by its ID column and binds parameter and
// <compartment>_0 columns to spec.
func NewIDataSet(f *Frame, spec sim.ModelSpec) (*IDataSet, error) {
	idc, ok := f.Column("ID")
	if !ok {
		return nil, fmt.Errorf("%w: ID", ErrMissingColumn)
	}
	d := &IDataSet{frame: f, rows: make(map[float64]int, len(f.Rows))}
	for i, row := range f.Rows {
		id := row[idc]
		if math.IsNaN(id) {
			return nil, fmt.Errorf("idata row %d: empty ID", i+1)
		}
		if prev, dup := d.rows[id]; dup {
			return nil, fmt.Errorf("idata rows %d and %d share ID %g", prev+1, i+1, id)
		}
		d.rows[id] = i
	}
	d.params = bindParameters(f, spec)
	for c, name := range f.Columns {
		if len(name) <= len(InitSuffix) || name[len(name)-len(InitSuffix):] != InitSuffix {
			continue
		}
		if eq, ok := spec.CompartmentIndex(name[:len(name)-len(InitSuffix)]); ok {
			d.inits = append(d.inits, binding{column: c, index: eq})
		}
	}
	return d, nil
}

func (d *IDataSet) copy(id float64, into []float64, bs []binding) {
	r, ok := d.rows[id]
	if !ok {
		return
	}
	for _, b := range bs {
		if v := d.frame.Rows[r][b.column]; !math.IsNaN(v) {
			into[b.index] = v
		}
	}
}

// CopyParameters overwrites bound parameters for subject id. Subjects
// without a row keep their values.
func (d *IDataSet) CopyParameters(id float64, param []float64) {
	d.copy(id, param, d.params)
}

// CopyInits overwrites initial amounts for subject id.
func (d *IDataSet) CopyInits(id float64, init []float64) {
	d.copy(id, init, d.inits)
}

// HasColumn reports whether name is a column.
func (d *IDataSet) HasColumn(name string) bool {
	_, ok := d.frame.Column(name)
	return ok
}

// Value returns subject id's value in column name, or NaN.
func (d *IDataSet) Value(id float64, name string) float64 {
	c, ok := d.frame.Column(name)
	if !ok {
		return math.NaN()
	}
	r, ok := d.rows[id]
	if !ok {
		return math.NaN()
	}
	return d.frame.Rows[r][c]
}

// Input assembles a simulator input from a data set and an optional
// per-subject data set.
func Input(d *DataSet, id *IDataSet) (*sim.Input, error) {
	subjects, err := d.Subjects()
	if err != nil {
		return nil, err
	}
	in := &sim.Input{Subjects: subjects, Rows: d}
	if id != nil {
		in.IData = id
	}
	return in, nil
}
