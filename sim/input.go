package sim

import (
	"fmt"
	"sort"
)

// Subject is one individual's input records, in input order.
type Subject struct {
	ID      float64
	Records []EventRecord
	// FirstRow is the subject's first input row, or NoRow.
	FirstRow int
}

// RowSource gives access to the input rows records point at. sim/data
// implements it.
type RowSource interface {
	NRow() int
	// CopyParameters overwrites model parameters that have a column in
	// the input with the values on row.
	CopyParameters(row int, param []float64)
	HasColumn(name string) bool
	Value(row int, name string) float64
}

// IDataSource gives access to per-subject values keyed by subject id.
type IDataSource interface {
	CopyParameters(id float64, param []float64)
	// CopyInits overwrites initial amounts that have a column in the
	// per-subject data.
	CopyInits(id float64, init []float64)
	HasColumn(name string) bool
	Value(id float64, name string) float64
}

// Grid holds observation designs shared by all subjects. Assign selects a
// design per subject id; subjects without an entry use design 0.
type Grid struct {
	Designs [][]float64
	Assign  map[float64]int
}

// NewGrid returns a single-design grid from start to end by delta, plus
// any extra times, sorted and de-duplicated.
func NewGrid(start, end, delta float64, extra ...float64) (*Grid, error) {
	if delta <= 0 && end > start {
		return nil, fmt.Errorf("grid delta must be positive, got %g", delta)
	}
	var times []float64
	switch {
	case end < start:
	case delta <= 0:
		times = append(times, start)
	default:
		n := int((end-start)/delta + 1e-9)
		for i := 0; i <= n; i++ {
			times = append(times, start+float64(i)*delta)
		}
	}
	times = append(times, extra...)
	sort.Float64s(times)
	uniq := times[:0]
	for i, t := range times {
		if i == 0 || t != uniq[len(uniq)-1] {
			uniq = append(uniq, t)
		}
	}
	return &Grid{Designs: [][]float64{uniq}}, nil
}

// Validate checks every assignment against the designs. With more than
// one design every subject must be assigned.
func (g *Grid) Validate(subjects []Subject) error {
	if g == nil {
		return nil
	}
	for id, d := range g.Assign {
		if d < 0 || d >= len(g.Designs) {
			return fmt.Errorf("%w: subject %g uses design %d, %d design(s) given", ErrDesignIndex, id, d, len(g.Designs))
		}
	}
	if len(g.Designs) > 1 {
		for _, s := range subjects {
			if _, ok := g.Assign[s.ID]; !ok {
				return fmt.Errorf("%w: subject %g has no design assignment", ErrDesignIndex, s.ID)
			}
		}
	}
	return nil
}

// For returns the design times for subject id.
func (g *Grid) For(id float64) []float64 {
	if g == nil || len(g.Designs) == 0 {
		return nil
	}
	return g.Designs[g.Assign[id]]
}

// Input is everything a run consumes besides the model and the config.
type Input struct {
	Subjects []Subject
	Rows     RowSource
	IData    IDataSource
	Grid     *Grid
	// ETA holds one random-effect vector per subject, in Subjects order.
	ETA [][]float64
	// EPS holds one residual vector per output row.
	EPS [][]float64
}

// NRow returns the number of input rows, used to rank design observations
// after every input row.
func (in *Input) NRow() int {
	if in.Rows != nil {
		return in.Rows.NRow()
	}
	n := 0
	for _, s := range in.Subjects {
		for _, r := range s.Records {
			if r.Row >= n {
				n = r.Row + 1
			}
		}
	}
	return n
}
