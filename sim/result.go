package sim

import (
	"fmt"
	"math"

	"github.com/cockroachdb/apd/v3"
)

// carryTranOrder is the fixed order of record-field carry columns.
var carryTranOrder = []string{"evid", "amt", "cmt", "ss", "ii", "addl", "rate", "augmented"}

// ValidCarryTran is the set of record fields that can be carried into the
// result table.
var ValidCarryTran = map[string]bool{
	"evid": true, "amt": true, "cmt": true, "ss": true,
	"ii": true, "addl": true, "rate": true, "augmented": true,
}

func carryTranValue(r *EventRecord, name string) float64 {
	switch name {
	case "evid":
		return float64(r.Kind)
	case "amt":
		return r.Amt
	case "cmt":
		return float64(r.Cmt)
	case "ss":
		return float64(r.SS)
	case "ii":
		return r.II
	case "addl":
		return float64(r.Addl)
	case "rate":
		return r.Rate
	case "augmented":
		if r.Origin == OriginDesign {
			return 1
		}
		return 0
	}
	return math.NaN()
}

// Table is the dense, row-major result of a run.
//
// Columns are ID, time, optional tad, carried columns, requested
// compartments and captured outputs, in that order. RequestStart is the
// index of the first requested compartment column.
type Table struct {
	Columns      []string
	NRow         int
	RequestStart int
	data         []float64
}

// NewTable allocates a table with nrow rows.
func NewTable(columns []string, nrow int) *Table {
	return &Table{
		Columns: columns,
		NRow:    nrow,
		data:    make([]float64, nrow*len(columns)),
	}
}

// NCol returns the number of columns.
func (t *Table) NCol() int {
	return len(t.Columns)
}

// At returns the value at row i, column j.
func (t *Table) At(i, j int) float64 {
	return t.data[i*len(t.Columns)+j]
}

// Set writes the value at row i, column j.
func (t *Table) Set(i, j int, v float64) {
	t.data[i*len(t.Columns)+j] = v
}

// Row returns row i. The slice aliases the table.
func (t *Table) Row(i int) []float64 {
	n := len(t.Columns)
	return t.data[i*n : (i+1)*n]
}

// ColumnIndex returns the index of a named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]float64, error) {
	j, ok := t.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("column %q not in result", name)
	}
	out := make([]float64, t.NRow)
	for i := range out {
		out[i] = t.At(i, j)
	}
	return out, nil
}

// RoundSignificant rounds requested and captured columns to digits
// significant digits.
func (t *Table) RoundSignificant(digits int) {
	for i := 0; i < t.NRow; i++ {
		for j := t.RequestStart; j < len(t.Columns); j++ {
			t.Set(i, j, Signif(t.At(i, j), digits))
		}
	}
}

// ScaleTime multiplies the time column by scale.
func (t *Table) ScaleTime(scale float64) {
	for i := 0; i < t.NRow; i++ {
		t.Set(i, 1, t.At(i, 1)*scale)
	}
}

// Signif rounds x to digits significant decimal digits, half away from
// zero. Zero, NaN, infinities and digits <= 0 return x unchanged.
func Signif(x float64, digits int) float64 {
	if digits <= 0 || x == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	var d apd.Decimal
	if _, err := d.SetFloat64(x); err != nil {
		return x
	}
	ctx := apd.BaseContext.WithPrecision(uint32(digits))
	ctx.Rounding = apd.RoundHalfUp
	var rounded apd.Decimal
	if _, err := ctx.Round(&rounded, &d); err != nil {
		return x
	}
	f, err := rounded.Float64()
	if err != nil {
		return x
	}
	return f
}
